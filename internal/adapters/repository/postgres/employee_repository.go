package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/employee-lifecycle/internal/core/employee"
	pgdb "github.com/ogurasousui/employee-lifecycle/internal/platform/db/postgres"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"

	// employeeIDLockKey は社員番号採番用のアドバイザリロックキーです。
	employeeIDLockKey int64 = 0x656d705f6e6f
)

var errNextIDOutsideTx = errors.New("next id requires a transaction")

// EmployeeRepository は PostgreSQL を利用した社員と履歴テーブルの永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// NextID はアドバイザリロックを取得した上で MAX(emp_no)+1 を返します。
// ロックはトランザクション終了まで保持されるため、並行する採番は直列化されます。
func (r *EmployeeRepository) NextID(ctx context.Context) (int64, error) {
	if !pgdb.InTransaction(ctx) {
		return 0, fmt.Errorf("%w: %w", employee.ErrStorage, errNextIDOutsideTx)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	if _, err := exec.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, employeeIDLockKey); err != nil {
		return 0, translateEmployeePgError(err)
	}

	var id int64
	if err := exec.QueryRow(ctx, `SELECT COALESCE(MAX(emp_no), 0) + 1 FROM employees`).Scan(&id); err != nil {
		return 0, translateEmployeePgError(err)
	}
	return id, nil
}

// ResolveDepartment は部署名(大文字小文字を区別しない完全一致)から部署番号を取得します。
func (r *EmployeeRepository) ResolveDepartment(ctx context.Context, name string) (string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var deptNo string
	err := exec.QueryRow(ctx, `
        SELECT dept_no
          FROM departments
         WHERE LOWER(dept_name) = LOWER($1)
         LIMIT 1
    `, name).Scan(&deptNo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", employee.ErrDepartmentNotFound
		}
		return "", translateEmployeePgError(err)
	}
	return strings.TrimSpace(deptNo), nil
}

// Insert は社員を登録します。
func (r *EmployeeRepository) Insert(ctx context.Context, e *employee.Employee) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO employees (emp_no, birth_date, first_name, last_name, gender, hire_date)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, e.ID, e.BirthDate, e.FirstName, e.LastName, string(e.Gender), e.HireDate)
	if err != nil {
		return translateEmployeePgError(err)
	}
	return nil
}

// Exists は社員が存在するかを返します。
func (r *EmployeeRepository) Exists(ctx context.Context, id int64) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE emp_no = $1)`, id).Scan(&exists); err != nil {
		return false, translateEmployeePgError(err)
	}
	return exists, nil
}

// UpdateNames は氏名を更新します。nil の項目は変更しません。
func (r *EmployeeRepository) UpdateNames(ctx context.Context, id int64, firstName, lastName *string) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE employees
           SET first_name = COALESCE($1, first_name),
               last_name = COALESCE($2, last_name)
         WHERE emp_no = $3
    `, nullableString(firstName), nullableString(lastName), id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// CloseOpenSalary は有効な給与バージョンを closeDate で閉じます。
func (r *EmployeeRepository) CloseOpenSalary(ctx context.Context, id int64, closeDate time.Time) error {
	return r.closeOpen(ctx, "salaries", id, closeDate)
}

// InsertSalary は fromDate から有効な給与バージョンを追加します。
func (r *EmployeeRepository) InsertSalary(ctx context.Context, id int64, amount int64, fromDate time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO salaries (emp_no, salary, from_date, to_date)
        VALUES ($1, $2, $3, $4)
    `, id, amount, fromDate, employee.OpenEnded)
	if err != nil {
		return translateEmployeePgError(err)
	}
	return nil
}

// CloseOpenTitle は有効な役職バージョンを closeDate で閉じます。
func (r *EmployeeRepository) CloseOpenTitle(ctx context.Context, id int64, closeDate time.Time) error {
	return r.closeOpen(ctx, "titles", id, closeDate)
}

// InsertTitle は fromDate から有効な役職バージョンを追加します。
func (r *EmployeeRepository) InsertTitle(ctx context.Context, id int64, title string, fromDate time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO titles (emp_no, title, from_date, to_date)
        VALUES ($1, $2, $3, $4)
    `, id, title, fromDate, employee.OpenEnded)
	if err != nil {
		return translateEmployeePgError(err)
	}
	return nil
}

// CloseOpenDepartment は有効な所属バージョンを closeDate で閉じます。
func (r *EmployeeRepository) CloseOpenDepartment(ctx context.Context, id int64, closeDate time.Time) error {
	return r.closeOpen(ctx, "dept_emp", id, closeDate)
}

// InsertDepartment は fromDate から有効な所属バージョンを追加します。
func (r *EmployeeRepository) InsertDepartment(ctx context.Context, id int64, deptNo string, fromDate time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO dept_emp (emp_no, dept_no, from_date, to_date)
        VALUES ($1, $2, $3, $4)
    `, id, deptNo, fromDate, employee.OpenEnded)
	if err != nil {
		return translateEmployeePgError(err)
	}
	return nil
}

// table は固定の履歴テーブル名のみを受け付けます。
func (r *EmployeeRepository) closeOpen(ctx context.Context, table string, id int64, closeDate time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        UPDATE `+table+`
           SET to_date = $1
         WHERE emp_no = $2
           AND to_date = $3
    `, closeDate, id, employee.OpenEnded)
	if err != nil {
		return translateEmployeePgError(err)
	}
	return nil
}

// Delete は社員を削除します。履歴行は ON DELETE CASCADE で削除されます。
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE emp_no = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

const currentViewSelect = `
        SELECT e.emp_no, e.birth_date, e.first_name, e.last_name, e.gender, e.hire_date,
               COALESCE(s.salary, 0), COALESCE(t.title, ''), COALESCE(de.dept_no, ''), COALESCE(d.dept_name, '')
          FROM employees e
          LEFT JOIN salaries s ON s.emp_no = e.emp_no AND s.to_date = '9999-01-01'
          LEFT JOIN titles t ON t.emp_no = e.emp_no AND t.to_date = '9999-01-01'
          LEFT JOIN dept_emp de ON de.emp_no = e.emp_no AND de.to_date = '9999-01-01'
          LEFT JOIN departments d ON d.dept_no = de.dept_no`

// FindCurrentView は社員と現在有効な給与・役職・所属を取得します。
func (r *EmployeeRepository) FindCurrentView(ctx context.Context, id int64) (*employee.CurrentView, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, currentViewSelect+`
         WHERE e.emp_no = $1
    `, id)

	view, err := scanCurrentView(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return view, nil
}

// Search は姓・名の部分一致(大文字小文字を区別しない)で社員を検索します。
func (r *EmployeeRepository) Search(ctx context.Context, filter employee.SearchFilter) ([]*employee.CurrentView, error) {
	if filter.Limit <= 0 {
		return nil, fmt.Errorf("%w: invalid search limit %d", employee.ErrStorage, filter.Limit)
	}

	args := make([]any, 0, 2)
	whereClause := ""

	if name := strings.TrimSpace(filter.Name); name != "" {
		placeholder := "$" + strconv.Itoa(len(args)+1)
		whereClause = `
         WHERE e.first_name ILIKE ` + placeholder + ` ESCAPE '\'
            OR e.last_name ILIKE ` + placeholder + ` ESCAPE '\'`
		args = append(args, "%"+escapeLike(name)+"%")
	}

	limitPlaceholder := "$" + strconv.Itoa(len(args)+1)
	args = append(args, filter.Limit)

	query := currentViewSelect + whereClause + `
         ORDER BY e.last_name, e.first_name, e.emp_no
         LIMIT ` + limitPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	views := make([]*employee.CurrentView, 0)
	for rows.Next() {
		view, err := scanCurrentView(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}

	return views, nil
}

// TopEarners は現在給与が現在給与の平均を上回る社員を、給与の降順・社員番号の昇順で返します。
// 有効な給与は社員ごとに一件であることを部分ユニークインデックスが保証します。
func (r *EmployeeRepository) TopEarners(ctx context.Context, limit int) ([]*employee.TopEarner, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: invalid limit %d", employee.ErrStorage, limit)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        WITH current_salaries AS (
            SELECT emp_no, salary
              FROM salaries
             WHERE to_date = '9999-01-01'
        )
        SELECT e.emp_no, e.first_name, e.last_name, COALESCE(d.dept_name, ''), cs.salary
          FROM employees e
          JOIN current_salaries cs ON cs.emp_no = e.emp_no
          LEFT JOIN dept_emp de ON de.emp_no = e.emp_no AND de.to_date = '9999-01-01'
          LEFT JOIN departments d ON d.dept_no = de.dept_no
         WHERE cs.salary > (SELECT AVG(salary) FROM current_salaries)
         ORDER BY cs.salary DESC, e.emp_no
         LIMIT $1
    `, limit)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	earners := make([]*employee.TopEarner, 0, limit)
	for rows.Next() {
		var te employee.TopEarner
		if err := rows.Scan(&te.ID, &te.FirstName, &te.LastName, &te.DepartmentName, &te.Salary); err != nil {
			return nil, translateEmployeePgError(err)
		}
		earners = append(earners, &te)
	}
	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}

	return earners, nil
}

func scanCurrentView(row pgx.Row) (*employee.CurrentView, error) {
	var (
		view   employee.CurrentView
		gender string
		deptNo string
	)

	if err := row.Scan(
		&view.ID,
		&view.BirthDate,
		&view.FirstName,
		&view.LastName,
		&gender,
		&view.HireDate,
		&view.Salary,
		&view.Title,
		&deptNo,
		&view.DepartmentName,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	view.Gender = employee.Gender(strings.TrimSpace(gender))
	view.DepartmentNo = strings.TrimSpace(deptNo)
	view.BirthDate = view.BirthDate.UTC()
	view.HireDate = view.HireDate.UTC()
	return &view, nil
}

// translateEmployeePgError は永続化層のエラーを ErrStorage で包みます。
// 区別すべき結果(未検出)はそのまま返します。
func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, employee.ErrEmployeeNotFound) || errors.Is(err, employee.ErrStorage) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: unique violation on %s: %w", employee.ErrStorage, pgErr.ConstraintName, err)
		case foreignKeyViolationCode:
			return fmt.Errorf("%w: foreign key violation on %s: %w", employee.ErrStorage, pgErr.ConstraintName, err)
		case checkViolationCode:
			return fmt.Errorf("%w: check violation on %s: %w", employee.ErrStorage, pgErr.ConstraintName, err)
		}
	}

	return fmt.Errorf("%w: %w", employee.ErrStorage, err)
}

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
