//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ogurasousui/employee-lifecycle/internal/adapters/cache/memory"
	repo "github.com/ogurasousui/employee-lifecycle/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-lifecycle/internal/core/department"
	"github.com/ogurasousui/employee-lifecycle/internal/core/employee"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/config"
	pg "github.com/ogurasousui/employee-lifecycle/internal/platform/db/postgres"
	"github.com/sirupsen/logrus/hooks/test"
)

const (
	migrationsDir = "../assets/migrations"
	seedsDir      = "../assets/seeds"
)

func TestEmployeeLifecycleIntegration(t *testing.T) {
	cfgPath := configPathFromEnv()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	if err := applySeeds(cfg.Database.DSN(), seedsDir); err != nil {
		t.Fatalf("failed to apply seeds: %v", err)
	}

	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	pool, err := pg.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	today := time.Now().UTC().Truncate(24 * time.Hour)
	store := memory.New()
	txManager := pg.NewTransactionManager(pool)
	svc := employee.NewService(
		repo.NewEmployeeRepository(pool),
		stubClock{now: today},
		txManager,
		employee.WithCache(store),
		employee.WithLogger(logger),
	)
	deptSvc := department.NewService(repo.NewDepartmentRepository(pool), txManager, store, logger)

	departments, err := deptSvc.ListDepartments(ctx)
	if err != nil {
		t.Fatalf("ListDepartments error: %v", err)
	}
	if len(departments) != 9 {
		t.Fatalf("expected 9 seeded departments, got %d", len(departments))
	}

	birth := time.Date(1985, 3, 14, 0, 0, 0, 0, time.UTC)
	hire := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	low, high := int64(40000), int64(90000)

	first, err := svc.CreateEmployee(ctx, employee.CreateEmployeeInput{
		BirthDate: &birth, FirstName: "Georgi", LastName: "Facello", Gender: "M",
		HireDate: &hire, Salary: &low, DepartmentName: "development", Title: "Engineer",
	})
	if err != nil {
		t.Fatalf("CreateEmployee error: %v", err)
	}
	second, err := svc.CreateEmployee(ctx, employee.CreateEmployeeInput{
		BirthDate: &birth, FirstName: "Bezalel", LastName: "Simmel", Gender: "F",
		HireDate: &hire, Salary: &high, DepartmentName: "Sales", Title: "Staff",
	})
	if err != nil {
		t.Fatalf("CreateEmployee error: %v", err)
	}
	if second.ID != first.ID+1 {
		t.Fatalf("expected sequential ids, got %d then %d", first.ID, second.ID)
	}
	if first.DepartmentNo != "d005" || !first.HireDate.Equal(hire) {
		t.Fatalf("unexpected current view: %+v", first)
	}

	top, err := svc.TopEarners(ctx)
	if err != nil {
		t.Fatalf("TopEarners error: %v", err)
	}
	if len(top) != 1 || top[0].ID != second.ID {
		t.Fatalf("expected only the higher earner, got %+v", top)
	}

	raise := int64(120000)
	title := "Senior Engineer"
	if _, err := svc.UpdateEmployee(ctx, employee.UpdateEmployeeInput{ID: first.ID, Salary: &raise, Title: &title}); err != nil {
		t.Fatalf("UpdateEmployee error: %v", err)
	}

	var open, closed int
	if err := pool.QueryRow(ctx, `
        SELECT COUNT(*) FILTER (WHERE to_date = '9999-01-01'),
               COUNT(*) FILTER (WHERE to_date <> '9999-01-01')
          FROM salaries WHERE emp_no = $1`, first.ID).Scan(&open, &closed); err != nil {
		t.Fatalf("count salaries: %v", err)
	}
	if open != 1 || closed != 1 {
		t.Fatalf("expected 1 open and 1 closed salary, got open=%d closed=%d", open, closed)
	}

	top, err = svc.TopEarners(ctx)
	if err != nil {
		t.Fatalf("TopEarners error: %v", err)
	}
	if len(top) != 1 || top[0].ID != first.ID || top[0].Salary != raise {
		t.Fatalf("expected top earners to reflect the raise, got %+v", top)
	}

	view, err := svc.GetEmployee(ctx, employee.GetEmployeeInput{ID: first.ID})
	if err != nil {
		t.Fatalf("GetEmployee error: %v", err)
	}
	if view.Title != title || view.Salary != raise {
		t.Fatalf("update not visible: %+v", view)
	}

	missing := int64(100000)
	if _, err := svc.UpdateEmployee(ctx, employee.UpdateEmployeeInput{ID: 999999, Salary: &missing}); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	found, err := svc.SearchEmployees(ctx, employee.SearchEmployeesInput{Name: "face"})
	if err != nil {
		t.Fatalf("SearchEmployees error: %v", err)
	}
	if len(found) != 1 || found[0].ID != first.ID {
		t.Fatalf("unexpected search result: %+v", found)
	}

	if _, err := svc.DeleteEmployees(ctx, employee.DeleteEmployeesInput{IDs: []int64{first.ID, 999999}}); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected batch delete to fail on unknown id, got %v", err)
	}
	if _, err := svc.GetEmployee(ctx, employee.GetEmployeeInput{ID: first.ID}); err != nil {
		t.Fatalf("failed batch delete must not remove employees: %v", err)
	}

	n, err := svc.DeleteEmployees(ctx, employee.DeleteEmployeesInput{IDs: []int64{first.ID, second.ID}})
	if err != nil || n != 2 {
		t.Fatalf("DeleteEmployees: n=%d err=%v", n, err)
	}
	if _, err := svc.GetEmployee(ctx, employee.GetEmployeeInput{ID: second.ID}); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}

	var history int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM salaries WHERE emp_no IN ($1, $2)`, first.ID, second.ID).Scan(&history); err != nil {
		t.Fatalf("count history: %v", err)
	}
	if history != 0 {
		t.Fatalf("expected history rows to cascade, got %d", history)
	}
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func applySeeds(dsn, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	m, err := migrate.New("file://"+dir, dsn+"&x-migrations-table=seed_migrations")
	if err != nil {
		return err
	}
	defer m.Close()

	// スキーマを作り直したため seed の適用履歴も戻す。
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}
