package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newTestGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func traceFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()

	t.Run("logs failed query as error", func(t *testing.T) {
		gl, logs := newTestGormLogger(gormlogger.Error)

		gl.Trace(ctx, time.Now(), traceFn("SELECT * FROM orders", 0), errors.New("connection reset"))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "query failed", entry.Message)
		assert.Equal(t, zap.ErrorLevel, entry.Level)
		assert.Equal(t, "SELECT * FROM orders", entry.ContextMap()["sql"])
	})

	t.Run("record not found is not logged as error", func(t *testing.T) {
		gl, logs := newTestGormLogger(gormlogger.Error)

		gl.Trace(ctx, time.Now(), traceFn("SELECT * FROM orders WHERE id = $1", 0), gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("slow query logged as warning", func(t *testing.T) {
		gl, logs := newTestGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

		gl.Trace(ctx, time.Now().Add(-time.Second), traceFn("SELECT * FROM order_items", 42), nil)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "slow query", entry.Message)
		assert.Equal(t, zap.WarnLevel, entry.Level)
		assert.Equal(t, int64(42), entry.ContextMap()["rows"])
	})

	t.Run("silent level suppresses everything", func(t *testing.T) {
		gl, logs := newTestGormLogger(gormlogger.Silent)

		gl.Trace(ctx, time.Now(), traceFn("SELECT 1", 1), errors.New("boom"))

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("info level logs queries at debug", func(t *testing.T) {
		gl, logs := newTestGormLogger(gormlogger.Info, WithSlowThreshold(time.Hour))

		gl.Trace(ctx, time.Now(), traceFn("SELECT 1", 1), nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zap.DebugLevel, logs.All()[0].Level)
	})
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, logs := newTestGormLogger(gormlogger.Silent)

	elevated := gl.LogMode(gormlogger.Error)
	elevated.Trace(context.Background(), time.Now(), traceFn("SELECT 1", 0), errors.New("boom"))

	// The original logger keeps its level.
	gl.Trace(context.Background(), time.Now(), traceFn("SELECT 1", 0), errors.New("boom"))

	assert.Equal(t, 1, logs.Len())
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, MapGormLogLevel(tt.input))
		})
	}
}
