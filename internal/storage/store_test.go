package storage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"minichat/internal/storage"
	mytesting "minichat/internal/testing"
)

// bootstrap connects to the database described by DB_* variables, tests are skipped without DB_HOST
func bootstrap(t *testing.T) *storage.Store {
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST is not set, skipping postgres tests")
	}

	cfg := storage.Config{}
	require.NoError(t, env.Parse(&cfg))

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	s, err := storage.New(context.Background(), logger.Sugar(), cfg, storage.ConnectionTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.InitSchema(context.Background()))

	return s
}

func TestStore(t *testing.T) {
	mytesting.RunStoreSuite(t, bootstrap(t))
}

func TestInitSchemaIsRepeatable(t *testing.T) {
	s := bootstrap(t)
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestNewUnreachable(t *testing.T) {
	logger := zap.NewNop().Sugar()
	cfg := storage.Config{Host: "127.0.0.1", Port: 1, User: "nobody", DBName: "nothing"}

	_, err := storage.New(context.Background(), logger, cfg, storage.ConnectionTimeout(time.Second))
	require.Error(t, err)
}
