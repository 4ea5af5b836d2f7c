package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ogurasousui/employee-lifecycle/internal/platform/config"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// BuildOptions は cache 設定から redis.Options を構築します。
func BuildOptions(cfg config.CacheConfig) *goredis.Options {
	opts := &goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.DialTimeout,
	}

	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.TLSInsecureSkipVerify,
		}
	}

	return opts
}

// NewClient は redis.Client を生成し、再試行ポリシーに従って疎通確認を行います。
func NewClient(ctx context.Context, cfg config.CacheConfig, logger logrus.FieldLogger) (*goredis.Client, error) {
	client := goredis.NewClient(BuildOptions(cfg))

	err := retry.Do(ctx, retry.FromConfig(cfg.ConnectRetry), func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}, func(attempt int, err error, wait time.Duration) {
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"wait":    wait.String(),
			}).Warn("redis: ping failed, retrying")
		}
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return client, nil
}
