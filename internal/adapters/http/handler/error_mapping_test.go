package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ogurasousui/employee-lifecycle/internal/core/department"
	"github.com/ogurasousui/employee-lifecycle/internal/core/employee"
)

func TestToHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"missing field", fmt.Errorf("%w: salary", employee.ErrMissingField), http.StatusBadRequest, "missing required field: salary"},
		{"no changes", employee.ErrNoChanges, http.StatusBadRequest, "no fields to update"},
		{"too many ids", employee.ErrTooManyIDs, http.StatusBadRequest, "too many employee ids"},
		{"date range", employee.ErrInvalidDateRange, http.StatusBadRequest, employee.ErrInvalidDateRange.Error()},
		{"not found in batch", fmt.Errorf("%w: 9999", employee.ErrEmployeeNotFound), http.StatusNotFound, "employee not found: 9999"},
		{"employee storage", fmt.Errorf("%w: password authentication failed", employee.ErrStorage), http.StatusInternalServerError, storageFailureMessage},
		{"department storage", fmt.Errorf("%w: timeout", department.ErrStorage), http.StatusInternalServerError, storageFailureMessage},
		{"unknown", errors.New("panic-ish"), http.StatusInternalServerError, internalErrorMessage},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, msg := toHTTPError(tt.err)
			if status != tt.wantStatus || msg != tt.wantMsg {
				t.Fatalf("expected (%d, %q), got (%d, %q)", tt.wantStatus, tt.wantMsg, status, msg)
			}
		})
	}
}
