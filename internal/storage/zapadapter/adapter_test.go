package zapadapter

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogCarriesContextIDs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewLogger(zap.New(core))

	ctx := NewContextWithID(context.Background(), "req-1")
	ctx = NewContextWithCaller(ctx, "user-1")

	l.Log(ctx, pgx.LogLevelInfo, "Query", map[string]interface{}{"sql": "select 1"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "Query", entry.Message)
	fields := entry.ContextMap()
	require.Equal(t, "req-1", fields["request_id"])
	require.Equal(t, "user-1", fields["caller_id"])
	require.Equal(t, "select 1", fields["sql"])
}

func TestLogLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewLogger(zap.New(core))

	l.Log(context.Background(), pgx.LogLevelWarn, "warn", nil)
	l.Log(context.Background(), pgx.LogLevelError, "error", nil)
	l.Log(context.Background(), pgx.LogLevelTrace, "trace", nil)

	require.Equal(t, zap.WarnLevel, logs.FilterMessage("warn").All()[0].Level)
	require.Equal(t, zap.ErrorLevel, logs.FilterMessage("error").All()[0].Level)
	require.Equal(t, zap.DebugLevel, logs.FilterMessage("trace").All()[0].Level)
	_, ok := logs.FilterMessage("trace").All()[0].ContextMap()["PGX_LOG_LEVEL"]
	require.True(t, ok)
}

func TestIDFromContextMissing(t *testing.T) {
	_, ok := IDFromContext(context.Background())
	require.False(t, ok)
	require.Empty(t, ContextFields(context.Background()))
}
