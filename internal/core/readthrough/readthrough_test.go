package readthrough

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type mapCache struct {
	values map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
	delErr error
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.values[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	if c.delErr != nil {
		return c.delErr
	}
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

type item struct {
	Name  string
	Value int
}

func TestLoad_MissThenHit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newMapCache()
	calls := 0
	compute := func(context.Context) ([]item, error) {
		calls++
		return []item{{Name: "a", Value: 1}}, nil
	}

	first, err := Load(ctx, c, DiscardLogger(), "items", time.Hour, compute)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := Load(ctx, c, DiscardLogger(), "items", time.Hour, compute)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected compute once, got %d", calls)
	}
	if c.ttls["items"] != time.Hour {
		t.Fatalf("unexpected ttl: %v", c.ttls["items"])
	}
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("unexpected values: %+v %+v", first, second)
	}
}

func TestLoad_CacheFailuresFallBackToCompute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	c := newMapCache()
	c.getErr = errors.New("get down")
	c.setErr = errors.New("set down")

	got, err := Load(ctx, c, logger, "items", time.Minute, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected computed value, got %d", got)
	}

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	if warnings != 2 {
		t.Fatalf("expected 2 warnings, got %d", warnings)
	}
}

func TestLoad_UndecodableEntryIsMiss(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newMapCache()
	c.values["items"] = []byte("not-json")

	got, err := Load(ctx, c, DiscardLogger(), "items", time.Minute, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected recomputed value, got %d", got)
	}
	if string(c.values["items"]) != "7" {
		t.Fatalf("expected entry to be replaced, got %q", c.values["items"])
	}
}

func TestLoad_ComputeErrorIsNotCached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newMapCache()
	boom := errors.New("boom")

	_, err := Load(ctx, c, DiscardLogger(), "items", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if _, ok := c.values["items"]; ok {
		t.Fatal("failed computation must not be cached")
	}
}

func TestEvict_SwallowsErrors(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	c := newMapCache()
	c.delErr = errors.New("del down")

	Evict(context.Background(), c, logger, "a", "b")

	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatal("expected a warning for the failed eviction")
	}
}
