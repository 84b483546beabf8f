package storage

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	config := Config{
		User:     "a",
		Password: "b",
		Host:     "c",
		Port:     5432,
		DBName:   "d",
	}
	expected := "user=a password=b host=c port=5432 dbname=d sslmode=disable"
	actual := config.DSN()
	require.Equal(t, expected, actual)
}

func TestDSNWithSSLMode(t *testing.T) {
	config := Config{User: "a", Password: "b", Host: "c", Port: 6432, DBName: "d", SSLMode: "require"}
	require.Equal(t, "user=a password=b host=c port=6432 dbname=d sslmode=require", config.DSN())
}

func TestOptions(t *testing.T) {
	poolConfig, err := pgxpool.ParseConfig(Config{User: "a", Password: "b", Host: "c", Port: 5432, DBName: "d"}.DSN())
	require.NoError(t, err)

	for _, opt := range []Option{ConnectionTimeout(3 * time.Second), MaxConns(7), MaxConns(0)} {
		opt.apply(poolConfig)
	}

	require.Equal(t, 3*time.Second, poolConfig.ConnConfig.ConnectTimeout)
	require.Equal(t, int32(7), poolConfig.MaxConns)
}
