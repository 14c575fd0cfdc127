// Package httpcontroller exposes the sync trigger, a status view and the
// Prometheus metrics over HTTP.
package httpcontroller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/masvision/shelfsync/internal/logger"
	"github.com/masvision/shelfsync/internal/pipeline"
	"github.com/masvision/shelfsync/internal/trigger"
)

// Runner starts sync runs and reports on them.
type Runner interface {
	RunFrom(ctx context.Context, source string, scopeIDs []string) ([]pipeline.CycleResult, error)
	Running() bool
	LastRun() *trigger.RunSummary
}

// Config holds the listener settings.
type Config struct {
	Host string
	Port int
	// UpdateRate is the sustained /update requests per second allowed per client.
	UpdateRate  float64
	UpdateBurst int
	ReadTimeout time.Duration
}

// Defaults for Config.
const (
	DefaultPort        = 8080
	DefaultUpdateRate  = 0.2
	DefaultUpdateBurst = 2
	DefaultReadTimeout = 30 * time.Second
)

// Server encapsulates the Echo server.
type Server struct {
	Echo    *echo.Echo
	cfg     Config
	runner  Runner
	metrics http.Handler
	log     logger.Logger
}

// New builds the server and registers its routes. metricsHandler may be nil.
func New(cfg Config, runner Runner, metricsHandler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	configureDefaults(&cfg)

	s := &Server{
		Echo:    echo.New(),
		cfg:     cfg,
		runner:  runner,
		metrics: metricsHandler,
		log:     log,
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.Server.ReadHeaderTimeout = cfg.ReadTimeout

	s.configureMiddleware()
	s.initRoutes()
	return s
}

func configureDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.UpdateRate <= 0 {
		cfg.UpdateRate = DefaultUpdateRate
	}
	if cfg.UpdateBurst <= 0 {
		cfg.UpdateBurst = DefaultUpdateBurst
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", logger.String("address", s.Addr()))
	if err := s.Echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones, including a
// running /update.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
