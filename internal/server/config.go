package server

import (
	"net/http"
	"strconv"
	"time"
)

const defaultMaxBodyBytes = 1 << 20

type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

// config defines fields used for configuring Server instance
type config struct {
	httpServer     *http.Server
	afterShutdown  []func()
	handlerTimeout time.Duration
	maxBodyBytes   int64
	trustProxy     bool
}

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	Host           string        `env:"HOST" envDefault:"0.0.0.0"`
	Port           uint16        `env:"PORT" envDefault:"9000"`
	HandlerTimeout time.Duration `env:"HANDLER_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	TrustProxy     bool          `env:"TRUST_PROXY" envDefault:"false"`
}

// WithEnvConfig enables processing exported EnvConfig struct to acts as a source of config parameters for http.Server
func WithEnvConfig(cfg EnvConfig) Option {
	return optionFunc(func(c *config) {
		c.httpServer.Addr = cfg.Host + ":" + strconv.FormatUint(uint64(cfg.Port), 10)
		c.handlerTimeout = cfg.HandlerTimeout
		if cfg.MaxBodyBytes > 0 {
			c.maxBodyBytes = cfg.MaxBodyBytes
		}
		c.trustProxy = cfg.TrustProxy
	})
}

// ReadTimeout sets read timeout for http.Server
func ReadTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.httpServer.ReadTimeout = d
	})
}

// WriteTimeout sets write timeout for http.Server
func WriteTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.httpServer.WriteTimeout = d
	})
}

// RegisterAfterShutdown registers a function to call after http.Server shutdown
// f will not be called in separated goroutine
func RegisterAfterShutdown(f func()) Option {
	return optionFunc(func(c *config) {
		c.afterShutdown = append(c.afterShutdown, f)
	})
}

// HandlerTimeout bounds the time each API handler may run, see http.TimeoutHandler
func HandlerTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.handlerTimeout = d
	})
}

// MaxBodyBytes limits the size of accepted request bodies
func MaxBodyBytes(n int64) Option {
	return optionFunc(func(c *config) {
		c.maxBodyBytes = n
	})
}

// TrustProxy makes audit entries record the client address from X-Forwarded-For
// set it only when every request passes through a proxy that overwrites the header
func TrustProxy(trust bool) Option {
	return optionFunc(func(c *config) {
		c.trustProxy = trust
	})
}
