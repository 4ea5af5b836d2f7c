package main

import (
	"context"
	"fmt"

	"github.com/ogurasousui/employee-lifecycle/internal/adapters/cache"
	"github.com/ogurasousui/employee-lifecycle/internal/adapters/cache/memory"
	rediscache "github.com/ogurasousui/employee-lifecycle/internal/adapters/cache/redis"
	"github.com/ogurasousui/employee-lifecycle/internal/adapters/http/handler"
	"github.com/ogurasousui/employee-lifecycle/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-lifecycle/internal/core/department"
	"github.com/ogurasousui/employee-lifecycle/internal/core/employee"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/config"
	pg "github.com/ogurasousui/employee-lifecycle/internal/platform/db/postgres"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/logging"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/redis"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/server"
	"github.com/sirupsen/logrus"
)

type serveOptions struct {
	configPath string
	envFiles   []string
}

func runServe(ctx context.Context, opts serveOptions) error {
	if _, err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}

	cfg, err := config.Load(config.ResolvePath(opts.configPath))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	isoLevel, err := pg.ParseIsolationLevel(cfg.Database.IsolationLevel)
	if err != nil {
		return err
	}
	txManager := pg.NewTransactionManager(dbPool, pg.WithIsolationLevel(isoLevel))

	store, closeStore, err := newCacheStore(ctx, cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	employeeSvc := employee.NewService(
		postgres.NewEmployeeRepository(dbPool),
		nil,
		txManager,
		employee.WithCache(store),
		employee.WithLogger(logger),
	)
	departmentSvc := department.NewService(
		postgres.NewDepartmentRepository(dbPool),
		txManager,
		store,
		logger,
	)

	routerCfg := handler.RouterConfig{
		Employees:        employeeSvc,
		Departments:      departmentSvc,
		Logger:           logger,
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: cfg.CORS.AllowCredentials,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	return server.New(cfg.Server, handler.NewRouter(routerCfg), logger).Run(ctx)
}

// newCacheStore は設定されたドライバのキャッシュストアを計測付きで生成します。
func newCacheStore(ctx context.Context, cfg config.CacheConfig, logger logrus.FieldLogger) (cache.Store, func(), error) {
	switch cfg.Driver {
	case config.CacheDriverMemory:
		store := memory.New()
		go store.Start()
		logger.Info("cache: using in-memory store")
		return cache.Instrument(store, cfg.Driver), store.Stop, nil
	default:
		client, err := redis.NewClient(ctx, cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize redis client: %w", err)
		}
		logger.WithField("addr", cfg.Addr).Info("cache: using redis store")
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.WithError(err).Warn("cache: close redis client")
			}
		}
		return cache.Instrument(rediscache.New(client, cfg.KeyPrefix), cfg.Driver), closeFn, nil
	}
}
