// Package readthrough は派生データのキャッシュ読み込みと破棄を扱います。
// キャッシュは常に使い捨てであり、その失敗がユースケースを中断させることはありません。
package readthrough

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache はエンコード済みの値を保持するキャッシュの抽象です。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Noop は常にミスとなるキャッシュです。
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }

// DiscardLogger は出力を捨てるロガーを返します。
func DiscardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Load は key のキャッシュを読み、ヒットすればその値を返します。
// ミス時は compute の結果を ttl 付きで保存してから返します。
// 読み込み・書き込みの失敗とデコードできない値はミスとして扱います。
func Load[T any](ctx context.Context, c Cache, logger logrus.FieldLogger, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	entry := logger.WithField("cache_key", key)

	raw, ok, err := c.Get(ctx, key)
	switch {
	case err != nil:
		entry.WithError(err).Warn("cache: get failed")
	case ok:
		var cached T
		if err := json.Unmarshal(raw, &cached); err != nil {
			entry.WithError(err).Warn("cache: discarding undecodable entry")
			break
		}
		return cached, nil
	}

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		entry.WithError(err).Warn("cache: encode failed")
		return value, nil
	}
	if err := c.Set(ctx, key, encoded, ttl); err != nil {
		entry.WithError(err).Warn("cache: set failed")
	}

	return value, nil
}

// Evict は keys を破棄します。失敗はログに残すのみです。
func Evict(ctx context.Context, c Cache, logger logrus.FieldLogger, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.Delete(ctx, keys...); err != nil {
		logger.WithError(err).WithField("cache_keys", keys).Warn("cache: evict failed")
	}
}
