package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/config"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/retry"
	"github.com/sirupsen/logrus"
)

// BuildPoolConfig は database 設定から pgxpool.Config を構築します。
func BuildPoolConfig(cfg config.DatabaseConfig, logger logrus.FieldLogger) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}

	if logger != nil && cfg.SlowQueryThreshold > 0 {
		poolCfg.ConnConfig.Tracer = NewSlowQueryTracer(logger, cfg.SlowQueryThreshold)
	}

	return poolCfg, nil
}

// NewPool は pgxpool.Pool を生成し、再試行ポリシーに従って疎通確認を行います。
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger logrus.FieldLogger) (*pgxpool.Pool, error) {
	poolCfg, err := BuildPoolConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	err = retry.Do(ctx, retry.FromConfig(cfg.ConnectRetry), pool.Ping, func(attempt int, err error, wait time.Duration) {
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"wait":    wait.String(),
			}).Warn("postgres: ping failed, retrying")
		}
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return pool, nil
}
