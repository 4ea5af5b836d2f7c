package department

import (
	"context"
	"time"

	"github.com/ogurasousui/employee-lifecycle/internal/core/readthrough"
	"github.com/sirupsen/logrus"
)

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
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
	// DepartmentsCacheKey は部署一覧のキャッシュキーです。
	DepartmentsCacheKey = "departments"

	departmentsTTL = time.Hour
)

// Service は部署カタログのユースケースです。
type Service struct {
	repo   Repository
	tx     TransactionManager
	cache  Cache
	logger logrus.FieldLogger
}

// UseCase は部署ユースケースの公開インターフェースです。
type UseCase interface {
	ListDepartments(ctx context.Context) ([]*Department, error)
}

// NewService は Service を生成します。cache と logger は nil を許容します。
func NewService(repo Repository, tx TransactionManager, cache Cache, logger logrus.FieldLogger) *Service {
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if cache == nil {
		cache = readthrough.Noop{}
	}
	if logger == nil {
		logger = readthrough.DiscardLogger()
	}
	return &Service{repo: repo, tx: tx, cache: cache, logger: logger}
}

// ListDepartments は部署一覧を返します。結果は 1 時間キャッシュされます。
func (s *Service) ListDepartments(ctx context.Context) ([]*Department, error) {
	return readthrough.Load(ctx, s.cache, s.logger, DepartmentsCacheKey, departmentsTTL, func(ctx context.Context) ([]*Department, error) {
		var result []*Department
		if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
			found, err := s.repo.List(txCtx)
			if err != nil {
				return err
			}
			result = found
			return nil
		}); err != nil {
			return nil, err
		}
		if result == nil {
			result = []*Department{}
		}
		return result, nil
	})
}
