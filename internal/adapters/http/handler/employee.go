package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/ogurasousui/employee-lifecycle/internal/core/employee"
	"github.com/sirupsen/logrus"
)

// EmployeeHandler は社員 API の HTTP 実装です。
type EmployeeHandler struct {
	svc      employee.UseCase
	validate *validator.Validate
	logger   logrus.FieldLogger
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(svc employee.UseCase, logger logrus.FieldLogger) *EmployeeHandler {
	return &EmployeeHandler{svc: svc, validate: newValidator(), logger: logger}
}

// Register はルートを登録します。固定パスは {emp_no} より先に登録する必要があります。
func (h *EmployeeHandler) Register(r *mux.Router) {
	r.HandleFunc("/employees/top-employee", h.TopEarners).Methods(http.MethodGet)
	r.HandleFunc("/employees/batch-delete", h.DeleteEmployees).Methods(http.MethodPost)
	r.HandleFunc("/employees", h.CreateEmployee).Methods(http.MethodPost)
	r.HandleFunc("/employees", h.SearchEmployees).Methods(http.MethodGet)
	r.HandleFunc("/employees/{emp_no}", h.GetEmployee).Methods(http.MethodGet)
	r.HandleFunc("/employees/{emp_no}", h.UpdateEmployee).Methods(http.MethodPut)
	r.HandleFunc("/employees/{emp_no}", h.DeleteEmployee).Methods(http.MethodDelete)
}

// CreateEmployee は社員を作成します。
func (h *EmployeeHandler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := decodeAndValidate(h.validate, r, w, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	in, err := req.toInput()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	created, err := h.svc.CreateEmployee(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, createEmployeeResponse{EmpNo: created.ID})
}

// GetEmployee は社員の現在のビューを返します。
func (h *EmployeeHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathEmployeeID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	view, err := h.svc.GetEmployee(r.Context(), employee.GetEmployeeInput{ID: id})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(view))
}

// UpdateEmployee は社員情報を更新します。
func (h *EmployeeHandler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathEmployeeID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req updateEmployeeRequest
	if err := decodeAndValidate(h.validate, r, w, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if _, err := h.svc.UpdateEmployee(r.Context(), req.toInput(id)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Update successful"})
}

// DeleteEmployee は社員を削除します。
func (h *EmployeeHandler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := pathEmployeeID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.DeleteEmployee(r.Context(), employee.DeleteEmployeeInput{ID: id}); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Employee deleted successfully"})
}

// DeleteEmployees は複数の社員をまとめて削除します。
func (h *EmployeeHandler) DeleteEmployees(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if err := decodeAndValidate(h.validate, r, w, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	n, err := h.svc.DeleteEmployees(r.Context(), employee.DeleteEmployeesInput{IDs: req.EmpNos})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("%d employees deleted", n)})
}

// SearchEmployees は name クエリで社員を検索します。
func (h *EmployeeHandler) SearchEmployees(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.SearchEmployees(r.Context(), employee.SearchEmployeesInput{Name: r.URL.Query().Get("name")})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponses(views))
}

// TopEarners は平均を上回る給与の社員を返します。
func (h *EmployeeHandler) TopEarners(w http.ResponseWriter, r *http.Request) {
	earners, err := h.svc.TopEarners(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toTopEarnerResponses(earners))
}

func pathEmployeeID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["emp_no"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", employee.ErrInvalidID, raw)
	}
	return id, nil
}
