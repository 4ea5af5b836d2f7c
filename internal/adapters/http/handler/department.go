package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ogurasousui/employee-lifecycle/internal/core/department"
	"github.com/sirupsen/logrus"
)

// DepartmentHandler は部署 API の HTTP 実装です。
type DepartmentHandler struct {
	svc    department.UseCase
	logger logrus.FieldLogger
}

// NewDepartmentHandler は DepartmentHandler を生成します。
func NewDepartmentHandler(svc department.UseCase, logger logrus.FieldLogger) *DepartmentHandler {
	return &DepartmentHandler{svc: svc, logger: logger}
}

func (h *DepartmentHandler) Register(r *mux.Router) {
	r.HandleFunc("/departments", h.ListDepartments).Methods(http.MethodGet)
}

// ListDepartments は部署一覧を返します。
func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.svc.ListDepartments(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, toDepartmentResponses(departments))
}
