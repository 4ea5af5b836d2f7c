package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ogurasousui/employee-lifecycle/internal/core/employee"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20
)

var errInvalidRequest = errors.New("invalid request")

type createEmployeeRequest struct {
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	FirstName string `json:"first_name" validate:"required,max=14"`
	LastName  string `json:"last_name" validate:"required,max=16"`
	Gender    string `json:"gender" validate:"required,oneof=M F m f"`
	HireDate  string `json:"hire_date" validate:"required,datetime=2006-01-02"`
	Salary    *int64 `json:"salary" validate:"required,gt=0"`
	DeptName  string `json:"dept_name" validate:"required"`
	Title     string `json:"title" validate:"required,max=50"`
}

type updateEmployeeRequest struct {
	FirstName *string `json:"first_name" validate:"omitnil,max=14"`
	LastName  *string `json:"last_name" validate:"omitnil,max=16"`
	Salary    *int64  `json:"salary" validate:"omitnil,gt=0"`
	Title     *string `json:"title" validate:"omitnil,max=50"`
	DeptName  *string `json:"dept_name" validate:"omitnil"`
}

type batchDeleteRequest struct {
	EmpNos []int64 `json:"emp_nos" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate は JSON ボディを dst に読み込み、タグに従って検証します。
func decodeAndValidate(v *validator.Validate, r *http.Request, w http.ResponseWriter, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", errInvalidRequest)
		}
		return fmt.Errorf("%w: malformed JSON body", errInvalidRequest)
	}

	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return translateFieldError(verrs[0])
		}
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	return nil
}

// translateFieldError は検証エラーを社員ドメインのエラーに対応付けます。
func translateFieldError(fe validator.FieldError) error {
	field := fe.Field()
	switch {
	case fe.Tag() == "required":
		return fmt.Errorf("%w: %s", employee.ErrMissingField, field)
	case field == "salary":
		return employee.ErrInvalidSalary
	case field == "gender":
		return employee.ErrInvalidGender
	case field == "first_name", field == "last_name":
		return fmt.Errorf("%w: %s", employee.ErrInvalidName, field)
	case field == "title":
		return employee.ErrInvalidTitle
	case fe.Tag() == "datetime":
		return fmt.Errorf("%w: %s must be a YYYY-MM-DD date", errInvalidRequest, field)
	default:
		return fmt.Errorf("%w: %s failed %s", errInvalidRequest, field, fe.Tag())
	}
}

func (req createEmployeeRequest) toInput() (employee.CreateEmployeeInput, error) {
	birth, err := time.Parse(dateLayout, req.BirthDate)
	if err != nil {
		return employee.CreateEmployeeInput{}, fmt.Errorf("%w: birth_date must be a YYYY-MM-DD date", errInvalidRequest)
	}
	hire, err := time.Parse(dateLayout, req.HireDate)
	if err != nil {
		return employee.CreateEmployeeInput{}, fmt.Errorf("%w: hire_date must be a YYYY-MM-DD date", errInvalidRequest)
	}

	return employee.CreateEmployeeInput{
		BirthDate:      &birth,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Gender:         req.Gender,
		HireDate:       &hire,
		Salary:         req.Salary,
		DepartmentName: req.DeptName,
		Title:          req.Title,
	}, nil
}

func (req updateEmployeeRequest) toInput(id int64) employee.UpdateEmployeeInput {
	return employee.UpdateEmployeeInput{
		ID:             id,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Salary:         req.Salary,
		Title:          req.Title,
		DepartmentName: req.DeptName,
	}
}
