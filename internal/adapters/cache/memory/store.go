package memory

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Store は ttlcache を利用したプロセス内キャッシュです。
// 単一プロセスでの開発・検証用途を想定しています。
type Store struct {
	cache *ttlcache.Cache[string, []byte]
}

// New は Store を生成します。期限切れ項目の掃除は Start で開始します。
func New() *Store {
	return &Store{
		cache: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		),
	}
}

// Start は期限切れ項目の自動削除を開始します。Stop まで戻りません。
func (s *Store) Start() {
	s.cache.Start()
}

// Stop は自動削除を停止します。
func (s *Store) Stop() {
	s.cache.Stop()
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := s.cache.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return clone(item.Value()), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.Set(key, clone(value), ttl)
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Delete(key)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
