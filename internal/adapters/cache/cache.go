package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store はキャッシュストアの抽象です。値はエンコード済みのバイト列として扱います。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultOK    = "ok"
	resultError = "error"
)

var cacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "employees",
	Subsystem: "cache",
	Name:      "operations_total",
	Help:      "Total number of cache operations broken down by driver, operation and result.",
}, []string{"driver", "op", "result"})

type instrumentedStore struct {
	next   Store
	driver string
}

// Instrument は Store の操作結果を Prometheus のカウンタに記録するデコレータを返します。
func Instrument(next Store, driver string) Store {
	return &instrumentedStore{next: next, driver: driver}
}

func (s *instrumentedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := s.next.Get(ctx, key)
	switch {
	case err != nil:
		s.observe("get", resultError)
	case ok:
		s.observe("get", resultHit)
	default:
		s.observe("get", resultMiss)
	}
	return value, ok, err
}

func (s *instrumentedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.next.Set(ctx, key, value, ttl)
	s.observe("set", resultOf(err))
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, keys ...string) error {
	err := s.next.Delete(ctx, keys...)
	s.observe("delete", resultOf(err))
	return err
}

func (s *instrumentedStore) observe(op, result string) {
	cacheOperations.WithLabelValues(s.driver, op, result).Inc()
}

func resultOf(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}
