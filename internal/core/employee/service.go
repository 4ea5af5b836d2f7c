package employee

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ogurasousui/employee-lifecycle/internal/core/readthrough"
	"github.com/sirupsen/logrus"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Cache は派生データ用のキャッシュです。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	// TopEmployeesCacheKey は高給与社員一覧のキャッシュキーです。
	TopEmployeesCacheKey = "top_employees"

	topEmployeesTTL = 5 * time.Minute
	employeeTTL     = 5 * time.Minute

	defaultSearchLimit     = 100
	defaultTopEarnersLimit = 10
	maxBatchDelete         = 100

	maxFirstNameLength = 14
	maxLastNameLength  = 16
	maxTitleLength     = 50
)

// EmployeeCacheKey は社員単位のキャッシュキーを返します。
func EmployeeCacheKey(id int64) string {
	return "employee:" + strconv.FormatInt(id, 10)
}

// Service は社員のライフサイクルに関するユースケースをまとめます。
type Service struct {
	repo   Repository
	clock  Clock
	tx     TransactionManager
	cache  Cache
	logger logrus.FieldLogger
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*CurrentView, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*CurrentView, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*CurrentView, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
	DeleteEmployees(ctx context.Context, in DeleteEmployeesInput) (int, error)
	SearchEmployees(ctx context.Context, in SearchEmployeesInput) ([]*CurrentView, error)
	TopEarners(ctx context.Context) ([]*TopEarner, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithCache はキャッシュを設定します。未指定の場合はキャッシュしません。
func WithCache(c Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:   repo,
		clock:  clock,
		tx:     tx,
		cache:  readthrough.Noop{},
		logger: readthrough.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEmployeeInput は社員作成時の入力です。ポインタの nil と空文字は未指定とみなします。
type CreateEmployeeInput struct {
	BirthDate      *time.Time
	FirstName      string
	LastName       string
	Gender         string
	HireDate       *time.Time
	Salary         *int64
	DepartmentName string
	Title          string
}

// UpdateEmployeeInput は社員更新時の入力です。nil のフィールドは変更しません。
type UpdateEmployeeInput struct {
	ID             int64
	FirstName      *string
	LastName       *string
	Salary         *int64
	Title          *string
	DepartmentName *string
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID int64
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID int64
}

// DeleteEmployeesInput は一括削除時の入力です。
type DeleteEmployeesInput struct {
	IDs []int64
}

// SearchEmployeesInput は検索時の入力です。
type SearchEmployeesInput struct {
	Name string
}

// CreateEmployee は社員と初期の給与・所属・役職を一つのトランザクションで登録します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*CurrentView, error) {
	fields, err := normalizeCreateInput(in)
	if err != nil {
		return nil, err
	}

	var created *CurrentView
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		deptNo, err := s.resolveDepartment(txCtx, fields.departmentName)
		if err != nil {
			return err
		}

		id, err := s.repo.NextID(txCtx)
		if err != nil {
			return err
		}

		emp := &Employee{
			ID:        id,
			BirthDate: fields.birthDate,
			FirstName: fields.firstName,
			LastName:  fields.lastName,
			Gender:    fields.gender,
			HireDate:  fields.hireDate,
		}
		if err := s.repo.Insert(txCtx, emp); err != nil {
			return err
		}
		if err := s.repo.InsertSalary(txCtx, id, fields.salary, fields.hireDate); err != nil {
			return err
		}
		if err := s.repo.InsertDepartment(txCtx, id, deptNo, fields.hireDate); err != nil {
			return err
		}
		if err := s.repo.InsertTitle(txCtx, id, fields.title, fields.hireDate); err != nil {
			return err
		}

		view, err := s.repo.FindCurrentView(txCtx, id)
		if err != nil {
			return err
		}
		created = view
		return nil
	}); err != nil {
		return nil, err
	}

	readthrough.Evict(ctx, s.cache, s.logger, TopEmployeesCacheKey)
	return created, nil
}

// GetEmployee は社員の現在のビューを取得します。結果は社員単位でキャッシュされます。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*CurrentView, error) {
	if in.ID <= 0 {
		return nil, ErrInvalidID
	}

	return readthrough.Load(ctx, s.cache, s.logger, EmployeeCacheKey(in.ID), employeeTTL, func(ctx context.Context) (*CurrentView, error) {
		var view *CurrentView
		if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
			found, err := s.repo.FindCurrentView(txCtx, in.ID)
			if err != nil {
				return err
			}
			view = found
			return nil
		}); err != nil {
			return nil, err
		}
		return view, nil
	})
}

// UpdateEmployee は氏名をその場で更新し、給与・役職・所属は本日付で新しいバージョンに切り替えます。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*CurrentView, error) {
	if err := validateUpdateInput(in); err != nil {
		return nil, err
	}

	today := dateOf(s.clock.Now())

	var updated *CurrentView
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureExists(txCtx, in.ID); err != nil {
			return err
		}

		if in.FirstName != nil || in.LastName != nil {
			if err := s.repo.UpdateNames(txCtx, in.ID, trimmed(in.FirstName), trimmed(in.LastName)); err != nil {
				return err
			}
		}

		if in.Salary != nil {
			if err := s.repo.CloseOpenSalary(txCtx, in.ID, today); err != nil {
				return err
			}
			if err := s.repo.InsertSalary(txCtx, in.ID, *in.Salary, today); err != nil {
				return err
			}
		}

		if in.Title != nil {
			if err := s.repo.CloseOpenTitle(txCtx, in.ID, today); err != nil {
				return err
			}
			if err := s.repo.InsertTitle(txCtx, in.ID, strings.TrimSpace(*in.Title), today); err != nil {
				return err
			}
		}

		if in.DepartmentName != nil {
			deptNo, err := s.resolveDepartment(txCtx, strings.TrimSpace(*in.DepartmentName))
			if err != nil {
				return err
			}
			if err := s.repo.CloseOpenDepartment(txCtx, in.ID, today); err != nil {
				return err
			}
			if err := s.repo.InsertDepartment(txCtx, in.ID, deptNo, today); err != nil {
				return err
			}
		}

		view, err := s.repo.FindCurrentView(txCtx, in.ID)
		if err != nil {
			return err
		}
		updated = view
		return nil
	}); err != nil {
		return nil, err
	}

	readthrough.Evict(ctx, s.cache, s.logger, TopEmployeesCacheKey, EmployeeCacheKey(in.ID))
	return updated, nil
}

// DeleteEmployee は有効なバージョンを本日付で閉じた上で社員を削除します。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	if in.ID <= 0 {
		return ErrInvalidID
	}

	today := dateOf(s.clock.Now())

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureExists(txCtx, in.ID); err != nil {
			return err
		}
		return s.closeAndDelete(txCtx, in.ID, today)
	}); err != nil {
		return err
	}

	readthrough.Evict(ctx, s.cache, s.logger, TopEmployeesCacheKey, EmployeeCacheKey(in.ID))
	return nil
}

// DeleteEmployees は複数の社員をまとめて削除します。一件でも存在しなければ何も削除しません。
func (s *Service) DeleteEmployees(ctx context.Context, in DeleteEmployeesInput) (int, error) {
	ids, err := normalizeIDs(in.IDs)
	if err != nil {
		return 0, err
	}

	today := dateOf(s.clock.Now())

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		for _, id := range ids {
			if err := s.ensureExists(txCtx, id); err != nil {
				return fmt.Errorf("%w: %d", err, id)
			}
		}
		for _, id := range ids {
			if err := s.closeAndDelete(txCtx, id, today); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, TopEmployeesCacheKey)
	for _, id := range ids {
		keys = append(keys, EmployeeCacheKey(id))
	}
	readthrough.Evict(ctx, s.cache, s.logger, keys...)

	return len(ids), nil
}

// SearchEmployees は氏名の部分一致で社員の現在のビューを検索します。
func (s *Service) SearchEmployees(ctx context.Context, in SearchEmployeesInput) ([]*CurrentView, error) {
	filter := SearchFilter{
		Name:  strings.TrimSpace(in.Name),
		Limit: defaultSearchLimit,
	}

	var result []*CurrentView
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.Search(txCtx, filter)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	if result == nil {
		result = []*CurrentView{}
	}
	return result, nil
}

// TopEarners は現在給与が平均を上回る社員を給与の降順で返します。結果はキャッシュされます。
func (s *Service) TopEarners(ctx context.Context) ([]*TopEarner, error) {
	return readthrough.Load(ctx, s.cache, s.logger, TopEmployeesCacheKey, topEmployeesTTL, func(ctx context.Context) ([]*TopEarner, error) {
		var result []*TopEarner
		if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
			found, err := s.repo.TopEarners(txCtx, defaultTopEarnersLimit)
			if err != nil {
				return err
			}
			result = found
			return nil
		}); err != nil {
			return nil, err
		}
		if result == nil {
			result = []*TopEarner{}
		}
		return result, nil
	})
}

func (s *Service) ensureExists(ctx context.Context, id int64) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Service) resolveDepartment(ctx context.Context, name string) (string, error) {
	deptNo, err := s.repo.ResolveDepartment(ctx, name)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return "", fmt.Errorf("%w: %s", ErrInvalidDepartment, name)
		}
		return "", err
	}
	return deptNo, nil
}

func (s *Service) closeAndDelete(ctx context.Context, id int64, today time.Time) error {
	if err := s.repo.CloseOpenSalary(ctx, id, today); err != nil {
		return err
	}
	if err := s.repo.CloseOpenTitle(ctx, id, today); err != nil {
		return err
	}
	if err := s.repo.CloseOpenDepartment(ctx, id, today); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

type createFields struct {
	birthDate      time.Time
	firstName      string
	lastName       string
	gender         Gender
	hireDate       time.Time
	salary         int64
	departmentName string
	title          string
}

func normalizeCreateInput(in CreateEmployeeInput) (createFields, error) {
	var f createFields

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	gender := strings.ToUpper(strings.TrimSpace(in.Gender))
	deptName := strings.TrimSpace(in.DepartmentName)
	title := strings.TrimSpace(in.Title)

	switch {
	case in.BirthDate == nil || in.BirthDate.IsZero():
		return f, fmt.Errorf("%w: birth_date", ErrMissingField)
	case firstName == "":
		return f, fmt.Errorf("%w: first_name", ErrMissingField)
	case lastName == "":
		return f, fmt.Errorf("%w: last_name", ErrMissingField)
	case gender == "":
		return f, fmt.Errorf("%w: gender", ErrMissingField)
	case in.HireDate == nil || in.HireDate.IsZero():
		return f, fmt.Errorf("%w: hire_date", ErrMissingField)
	case in.Salary == nil:
		return f, fmt.Errorf("%w: salary", ErrMissingField)
	case deptName == "":
		return f, fmt.Errorf("%w: dept_name", ErrMissingField)
	case title == "":
		return f, fmt.Errorf("%w: title", ErrMissingField)
	}

	if *in.Salary <= 0 {
		return f, ErrInvalidSalary
	}
	if !isValidGender(Gender(gender)) {
		return f, ErrInvalidGender
	}
	if err := validateName(firstName, maxFirstNameLength, "first_name"); err != nil {
		return f, err
	}
	if err := validateName(lastName, maxLastNameLength, "last_name"); err != nil {
		return f, err
	}
	if len([]rune(title)) > maxTitleLength {
		return f, ErrInvalidTitle
	}

	birthDate := dateOf(*in.BirthDate)
	hireDate := dateOf(*in.HireDate)
	if hireDate.Before(birthDate) {
		return f, ErrInvalidDateRange
	}

	f = createFields{
		birthDate:      birthDate,
		firstName:      firstName,
		lastName:       lastName,
		gender:         Gender(gender),
		hireDate:       hireDate,
		salary:         *in.Salary,
		departmentName: deptName,
		title:          title,
	}
	return f, nil
}

func validateUpdateInput(in UpdateEmployeeInput) error {
	if in.ID <= 0 {
		return ErrInvalidID
	}
	if in.FirstName == nil && in.LastName == nil && in.Salary == nil && in.Title == nil && in.DepartmentName == nil {
		return ErrNoChanges
	}
	if in.FirstName != nil {
		if err := validateName(strings.TrimSpace(*in.FirstName), maxFirstNameLength, "first_name"); err != nil {
			return err
		}
	}
	if in.LastName != nil {
		if err := validateName(strings.TrimSpace(*in.LastName), maxLastNameLength, "last_name"); err != nil {
			return err
		}
	}
	if in.Salary != nil && *in.Salary <= 0 {
		return ErrInvalidSalary
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" || len([]rune(title)) > maxTitleLength {
			return ErrInvalidTitle
		}
	}
	if in.DepartmentName != nil && strings.TrimSpace(*in.DepartmentName) == "" {
		return ErrInvalidDepartment
	}
	return nil
}

func normalizeIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, ErrInvalidID
	}

	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if len(out) > maxBatchDelete {
		return nil, ErrTooManyIDs
	}
	return out, nil
}

func validateName(name string, maxLen int, field string) error {
	if name == "" || len([]rune(name)) > maxLen {
		return fmt.Errorf("%w: %s", ErrInvalidName, field)
	}
	return nil
}

func isValidGender(g Gender) bool {
	switch g {
	case GenderMale, GenderFemale:
		return true
	default:
		return false
	}
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
