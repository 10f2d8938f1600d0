package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/artpar/coursesync/adapters/clock"
	apihttp "github.com/artpar/coursesync/adapters/http"
	"github.com/artpar/coursesync/adapters/memory"
	"github.com/artpar/coursesync/adapters/metrics"
	"github.com/artpar/coursesync/config"
	"github.com/artpar/coursesync/domain/course"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Server is the reference remote course authority served over HTTP.
type Server struct {
	Logger     zerolog.Logger
	Authority  *memory.CourseAuthority
	Metrics    *metrics.Collector
	HTTPServer *http.Server
}

// ServerOptions provides optional overrides for NewServer.
type ServerOptions struct {
	Version string
	// Registry receives and serves the metrics. Default: the global registry.
	Registry *prometheus.Registry
	Logger   *zerolog.Logger
	// Seed is stored in the authority at startup. Default: the sample catalogue.
	Seed []course.Document
}

// NewServer creates an in-memory authority and its HTTP server.
func NewServer(cfg *config.Config, opts ServerOptions) *Server {
	logger := NewLogger(cfg.Logging)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	seed := opts.Seed
	if seed == nil {
		seed = course.SampleCourses()
	}

	authority := memory.NewCourseAuthority(clock.Real{}).WithSlugSuggestions(true)
	authority.Seed(seed...)

	routerCfg := apihttp.RouterConfig{
		MetricsPath: cfg.Metrics.Path,
		Version:     opts.Version,
		Timeout:     cfg.Server.WriteTimeout,
	}
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		if opts.Registry != nil {
			collector = metrics.NewWithRegistry(opts.Registry)
			routerCfg.Gatherer = opts.Registry
		} else {
			collector = metrics.New()
		}
		routerCfg.Metrics = collector
	}

	router := apihttp.NewRouterWithConfig(authority, logger, routerCfg)

	return &Server{
		Logger:    logger,
		Authority: authority,
		Metrics:   collector,
		HTTPServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info().
			Str("addr", s.HTTPServer.Addr).
			Msg("starting course authority")
		if err := s.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		s.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.Logger.Info().Msg("course authority stopped")
	return nil
}
