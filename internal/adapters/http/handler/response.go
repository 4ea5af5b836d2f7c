package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ogurasousui/employee-lifecycle/internal/core/department"
	"github.com/ogurasousui/employee-lifecycle/internal/core/employee"
	"github.com/sirupsen/logrus"
)

type employeeResponse struct {
	EmpNo     int64  `json:"emp_no"`
	BirthDate string `json:"birth_date"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	HireDate  string `json:"hire_date"`
	Salary    int64  `json:"salary"`
	Title     string `json:"title"`
	DeptNo    string `json:"dept_no"`
	DeptName  string `json:"dept_name"`
}

type topEarnerResponse struct {
	EmpNo     int64  `json:"emp_no"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DeptName  string `json:"dept_name"`
	Salary    int64  `json:"salary"`
}

type departmentResponse struct {
	DeptNo   string `json:"dept_no"`
	DeptName string `json:"dept_name"`
}

type createEmployeeResponse struct {
	EmpNo int64 `json:"emp_no"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toEmployeeResponse(v *employee.CurrentView) employeeResponse {
	return employeeResponse{
		EmpNo:     v.ID,
		BirthDate: v.BirthDate.Format(dateLayout),
		FirstName: v.FirstName,
		LastName:  v.LastName,
		Gender:    string(v.Gender),
		HireDate:  v.HireDate.Format(dateLayout),
		Salary:    v.Salary,
		Title:     v.Title,
		DeptNo:    v.DepartmentNo,
		DeptName:  v.DepartmentName,
	}
}

func toEmployeeResponses(views []*employee.CurrentView) []employeeResponse {
	out := make([]employeeResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toEmployeeResponse(v))
	}
	return out
}

func toTopEarnerResponses(earners []*employee.TopEarner) []topEarnerResponse {
	out := make([]topEarnerResponse, 0, len(earners))
	for _, e := range earners {
		out = append(out, topEarnerResponse{
			EmpNo:     e.ID,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			DeptName:  e.DepartmentName,
			Salary:    e.Salary,
		})
	}
	return out
}

func toDepartmentResponses(departments []*department.Department) []departmentResponse {
	out := make([]departmentResponse, 0, len(departments))
	for _, d := range departments {
		out = append(out, departmentResponse{DeptNo: d.No, DeptName: d.Name})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError はエラーを {"error": ...} 形式で返します。500 の詳細はログにのみ出力します。
func writeError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	status, message := toHTTPError(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).
			WithField("request_id", RequestIDFromContext(r.Context())).
			WithField("path", r.URL.Path).
			Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: message})
}
