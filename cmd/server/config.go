package main

import (
	"time"

	"minichat/internal/credential"
	"minichat/internal/server"
	"minichat/internal/storage"
)

const (
	backendPostgres = "postgres"
	backendMemory   = "memory"
)

// config gathers every environment driven setting of the application
type config struct {
	Server     server.EnvConfig
	Storage    storage.Config
	Credential credential.Config

	Backend          string        `env:"STORAGE" envDefault:"postgres"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"console"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"30s"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"10"`
}
