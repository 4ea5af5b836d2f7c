package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ogurasousui/employee-lifecycle/internal/platform/config"
)

// Policy は接続確立などの再試行ポリシーです。
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// FromConfig は設定値から Policy を生成します。
func FromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
	}
}

// Notify は再試行前に呼び出されます。
type Notify func(attempt int, err error, wait time.Duration)

// Do は op が成功するか試行回数を使い切るまで指数バックオフで再実行します。
// Permanent でラップされたエラーは即座に返却されます。
func Do(ctx context.Context, p Policy, op func(context.Context) error, notify Notify) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op(ctx)
	}, b, func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempt, err, wait)
		}
	})
}

// Permanent は再試行しないエラーを表します。
func Permanent(err error) error {
	return backoff.Permanent(err)
}
