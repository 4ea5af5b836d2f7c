package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ogurasousui/employee-lifecycle/internal/core/department"
	pgdb "github.com/ogurasousui/employee-lifecycle/internal/platform/db/postgres"
)

// DepartmentRepository は PostgreSQL を利用した部署の読み取り実装です。
type DepartmentRepository struct {
	pool pgdb.Queryer
}

// NewDepartmentRepository は DepartmentRepository を生成します。
func NewDepartmentRepository(pool pgdb.Queryer) *DepartmentRepository {
	return &DepartmentRepository{pool: pool}
}

// List は全部署を部署名順に取得します。
func (r *DepartmentRepository) List(ctx context.Context) ([]*department.Department, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT dept_no, dept_name
          FROM departments
         ORDER BY dept_name
    `)
	if err != nil {
		return nil, translateDepartmentPgError(err)
	}
	defer rows.Close()

	departments := make([]*department.Department, 0)
	for rows.Next() {
		var d department.Department
		if err := rows.Scan(&d.No, &d.Name); err != nil {
			return nil, translateDepartmentPgError(err)
		}
		d.No = strings.TrimSpace(d.No)
		departments = append(departments, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDepartmentPgError(err)
	}

	return departments, nil
}

func translateDepartmentPgError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", department.ErrStorage, err)
}
