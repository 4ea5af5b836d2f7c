package employee

import (
	"context"
	"time"
)

// Repository は社員と履歴テーブル(給与・役職・所属)の永続化の抽象です。
// 書き込み系はトランザクション内で呼び出されることを前提とします。
type Repository interface {
	// NextID は未使用の社員番号を払い出します。トランザクション内でのみ競合しません。
	NextID(ctx context.Context) (int64, error)
	// ResolveDepartment は部署名から部署番号を引きます。存在しない場合は ErrDepartmentNotFound です。
	ResolveDepartment(ctx context.Context, name string) (string, error)
	Insert(ctx context.Context, employee *Employee) error
	Exists(ctx context.Context, id int64) (bool, error)
	UpdateNames(ctx context.Context, id int64, firstName, lastName *string) error

	CloseOpenSalary(ctx context.Context, id int64, closeDate time.Time) error
	InsertSalary(ctx context.Context, id int64, amount int64, fromDate time.Time) error
	CloseOpenTitle(ctx context.Context, id int64, closeDate time.Time) error
	InsertTitle(ctx context.Context, id int64, title string, fromDate time.Time) error
	CloseOpenDepartment(ctx context.Context, id int64, closeDate time.Time) error
	InsertDepartment(ctx context.Context, id int64, deptNo string, fromDate time.Time) error

	// Delete は社員を削除します。履歴行はカスケードで削除されます。
	Delete(ctx context.Context, id int64) error
	FindCurrentView(ctx context.Context, id int64) (*CurrentView, error)
	Search(ctx context.Context, filter SearchFilter) ([]*CurrentView, error)
	TopEarners(ctx context.Context, limit int) ([]*TopEarner, error)
}

// SearchFilter は検索条件です。Name は姓・名への部分一致で、空なら全件です。
type SearchFilter struct {
	Name  string
	Limit int
}
