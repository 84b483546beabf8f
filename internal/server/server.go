package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"minichat/internal/audit"
	"minichat/internal/chat"
	"minichat/internal/credential"
)

const shutdownTimeout = 15 * time.Second

// Services groups the application services the HTTP layer delegates to
type Services struct {
	Chat        *chat.Service
	Credentials *credential.Service
	Audit       *audit.Service
}

// Server defines fields used in HTTP processing
type Server struct {
	logger        *zap.SugaredLogger
	httpServer    *http.Server
	afterShutdown []func()
}

// NewServer returns new Server struct with provided zap.SugaredLogger and services
func NewServer(logger *zap.SugaredLogger, services Services, opts ...Option) (*Server, error) {
	if services.Chat == nil || services.Credentials == nil || services.Audit == nil {
		return nil, errors.New("all services must be provided")
	}

	cfg := &config{
		httpServer:   &http.Server{Addr: ":9000"},
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	registry := prometheus.NewRegistry()
	h := &handler{
		logger:       logger,
		chat:         services.Chat,
		credentials:  services.Credentials,
		audit:        services.Audit,
		metrics:      newMetrics(registry),
		maxBodyBytes: cfg.maxBodyBytes,
		trustProxy:   cfg.trustProxy,
	}

	var api http.Handler = h.routes(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if cfg.handlerTimeout > 0 {
		api = http.TimeoutHandler(api, cfg.handlerTimeout, `{"error":"request timed out"}`)
	}
	cfg.httpServer.Handler = logRequests(api, logger.Desugar())

	return &Server{
		logger:        logger,
		httpServer:    cfg.httpServer,
		afterShutdown: cfg.afterShutdown,
	}, nil
}

// routes registers every endpoint on a new mux.Router
func (h *handler) routes(metricsHandler http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(h.instrument)

	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	// public routes are audited without a caller, protected ones after authentication
	public := func(next http.Handler) http.Handler {
		return h.recordAudit(next)
	}
	protected := func(next http.Handler) http.Handler {
		return h.authenticate(h.recordAudit(next))
	}

	router.Handle("/api/register", public(h.enforceJSON(http.HandlerFunc(h.register)))).Methods(http.MethodPost)
	router.Handle("/api/login", public(h.enforceJSON(http.HandlerFunc(h.login)))).Methods(http.MethodPost)

	router.Handle("/api/users", protected(http.HandlerFunc(h.listUsers))).Methods(http.MethodGet)
	router.Handle("/api/messages", protected(h.enforceJSON(http.HandlerFunc(h.createMessage)))).Methods(http.MethodPost)
	router.Handle("/api/messages", protected(http.HandlerFunc(h.conversation))).Methods(http.MethodGet)
	router.Handle("/api/messages/{id:[0-9]+}", protected(h.enforceJSON(http.HandlerFunc(h.editMessage)))).Methods(http.MethodPut)
	router.Handle("/api/messages/{id:[0-9]+}", protected(http.HandlerFunc(h.deleteMessage))).Methods(http.MethodDelete)
	router.Handle("/api/log", protected(http.HandlerFunc(h.logs))).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return router
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

// Handler exposes the fully wrapped http.Handler, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	for _, f := range s.afterShutdown {
		f()
	}

	return nil
}
