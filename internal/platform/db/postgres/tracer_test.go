package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestSlowQueryTracer_LogsSlowQueries(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	tracer := NewSlowQueryTracer(logger, time.Second)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tracer.now = func() time.Time { return now }

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT   1\n  FROM employees"})
	now = now.Add(1500 * time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected slow query to be logged")
	}
	if entry.Level != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", entry.Level)
	}
	if entry.Data["sql"] != "SELECT 1 FROM employees" {
		t.Fatalf("expected compacted sql, got %v", entry.Data["sql"])
	}
}

func TestSlowQueryTracer_IgnoresFastQueries(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	tracer := NewSlowQueryTracer(logger, time.Second)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tracer.now = func() time.Time { return now }

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	now = now.Add(10 * time.Millisecond)
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected no log entries, got %d", len(hook.AllEntries()))
	}
}
