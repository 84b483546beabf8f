package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"minichat/internal/audit"
	"minichat/internal/chat"
	"minichat/internal/credential"
	"minichat/internal/server"
	"minichat/internal/storage"
	"minichat/internal/storage/memstore"
)

// backend is satisfied by both the postgres and the in-memory store
type backend interface {
	chat.UserStore
	chat.MessageStore
	credential.UserStore
	audit.Store
	Close()
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	// a missing .env file is fine, the environment may already be populated
	envFileErr := godotenv.Load()

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Cannot parse env config: %v", err)
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		log.Fatalf("zap.NewDevelopment: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")
	if envFileErr != nil {
		sugar.Debugf("No .env file loaded: %v", envFileErr)
	}

	store, err := openBackend(context.Background(), sugar, cfg)
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}

	credentials, err := credential.NewService(sugar, store, cfg.Credential)
	if err != nil {
		sugar.Fatalf("Cannot create credential service: %v", err)
	}

	services := server.Services{
		Chat:        chat.NewService(sugar, store, store),
		Credentials: credentials,
		Audit:       audit.NewService(sugar, store),
	}

	serverOpts := []server.Option{
		server.WithEnvConfig(cfg.Server),
		server.ReadTimeout(5 * time.Second),
		server.WriteTimeout(cfg.Server.HandlerTimeout + 5*time.Second),
		server.RegisterAfterShutdown(store.Close),
	}

	srv, err := server.NewServer(sugar, services, serverOpts...)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}

func openBackend(ctx context.Context, logger *zap.SugaredLogger, cfg config) (backend, error) {
	switch cfg.Backend {
	case backendMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memstore.New(), nil
	case backendPostgres:
		store, err := storage.New(ctx, logger, cfg.Storage,
			storage.ConnectionTimeout(cfg.DBConnectTimeout),
			storage.MaxConns(cfg.DBMaxConns),
		)
		if err != nil {
			return nil, err
		}

		if cfg.Storage.InitSchema {
			if err := store.InitSchema(ctx); err != nil {
				store.Close()
				return nil, err
			}
			logger.Info("Database schema is initialized")
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
