package employee

import "errors"

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidSalary      = errors.New("salary must be a positive integer")
	ErrInvalidGender      = errors.New("gender must be M or F")
	ErrInvalidDateRange   = errors.New("hire_date must not be before birth_date")
	ErrInvalidDepartment  = errors.New("invalid department")
	ErrInvalidID          = errors.New("invalid employee id")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrNoChanges          = errors.New("no fields to update")
	ErrTooManyIDs         = errors.New("too many employee ids")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrStorage            = errors.New("storage failure")
)
