package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type queryStartKey struct{}

type queryStart struct {
	sql   string
	start time.Time
}

// SlowQueryTracer は閾値を超えたクエリを警告ログに出力する pgx.QueryTracer です。
type SlowQueryTracer struct {
	logger    logrus.FieldLogger
	threshold time.Duration
	now       func() time.Time
}

// NewSlowQueryTracer は SlowQueryTracer を生成します。
func NewSlowQueryTracer(logger logrus.FieldLogger, threshold time.Duration) *SlowQueryTracer {
	return &SlowQueryTracer{logger: logger, threshold: threshold, now: time.Now}
}

// TraceQueryStart はクエリ開始時刻をコンテキストに記録します。
func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, start: t.now()})
}

// TraceQueryEnd は経過時間が閾値を超えていればログを出力します。
func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	started, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}

	elapsed := t.now().Sub(started.start)
	if elapsed < t.threshold {
		return
	}

	entry := t.logger.WithFields(logrus.Fields{
		"elapsed": elapsed.String(),
		"sql":     compactSQL(started.sql),
	})
	if data.Err != nil {
		entry = entry.WithError(data.Err)
	}
	entry.Warn("postgres: slow query")
}

func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
