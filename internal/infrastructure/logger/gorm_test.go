package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level), logs
}

func TestNewGormLogger(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	require.NotNil(t, gormLog)
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
	assert.Equal(t, 200*time.Millisecond, gormLog.slowThreshold)
}

func TestGormLoggerLogMode(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	silenced := gormLog.LogMode(gormlogger.Silent)
	require.NotSame(t, gormLog, silenced)
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
}

func TestGormLoggerTrace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM fact_orders", 3 }

	t.Run("logs queries at debug when level is info", func(t *testing.T) {
		gormLog, logs := newObservedGormLogger(gormlogger.Info)

		gormLog.Trace(context.Background(), time.Now(), query, nil)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "SQL Query", entries[0].Message)
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, "SELECT * FROM fact_orders", entries[0].ContextMap()["sql"])
	})

	t.Run("logs errors", func(t *testing.T) {
		gormLog, logs := newObservedGormLogger(gormlogger.Error)

		gormLog.Trace(context.Background(), time.Now(), query, errors.New("duplicate key"))

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "SQL Error", entries[0].Message)
	})

	t.Run("skips record not found", func(t *testing.T) {
		gormLog, logs := newObservedGormLogger(gormlogger.Error)

		gormLog.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		assert.Empty(t, logs.All())
	})

	t.Run("flags slow queries", func(t *testing.T) {
		gormLog, logs := newObservedGormLogger(gormlogger.Warn)

		gormLog.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Contains(t, entries[0].Message, "SLOW SQL")
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gormLog, logs := newObservedGormLogger(gormlogger.Silent)

		gormLog.Trace(context.Background(), time.Now(), query, errors.New("boom"))

		assert.Empty(t, logs.All())
	})

	t.Run("carries request id from context", func(t *testing.T) {
		gormLog, logs := newObservedGormLogger(gormlogger.Info)
		ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-9")

		gormLog.Trace(ctx, time.Now(), query, nil)

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, "req-9", entries[0].ContextMap()["request_id"])
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
