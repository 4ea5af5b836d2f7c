package handler

import (
	"errors"
	"net/http"

	"github.com/ogurasousui/employee-lifecycle/internal/core/department"
	"github.com/ogurasousui/employee-lifecycle/internal/core/employee"
)

const (
	storageFailureMessage = "storage failure"
	internalErrorMessage  = "internal error"
)

func toHTTPError(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, errInvalidRequest),
		errors.Is(err, employee.ErrMissingField),
		errors.Is(err, employee.ErrInvalidSalary),
		errors.Is(err, employee.ErrInvalidGender),
		errors.Is(err, employee.ErrInvalidDateRange),
		errors.Is(err, employee.ErrInvalidDepartment),
		errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrInvalidName),
		errors.Is(err, employee.ErrInvalidTitle),
		errors.Is(err, employee.ErrNoChanges),
		errors.Is(err, employee.ErrTooManyIDs):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, employee.ErrEmployeeNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, employee.ErrStorage), errors.Is(err, department.ErrStorage):
		return http.StatusInternalServerError, storageFailureMessage
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}
