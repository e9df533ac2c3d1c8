package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/codecanvas/internal/api/http"
	"github.com/GriffinCanCode/codecanvas/internal/api/middleware"
	"github.com/GriffinCanCode/codecanvas/internal/api/ws"
	"github.com/GriffinCanCode/codecanvas/internal/domain/preview/sandbox"
	"github.com/GriffinCanCode/codecanvas/internal/domain/starter"
	"github.com/GriffinCanCode/codecanvas/internal/domain/workspace"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/config"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/fetch"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/logging"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/codecanvas/internal/infrastructure/tracing"
)

// shutdownTimeout bounds how long Run waits for in-flight requests
const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	manager *workspace.Manager
	hub     *ws.Hub
	pool    *sandbox.Pool
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing CodeCanvas server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("headless", cfg.Preview.HeadlessEnabled),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("codecanvas", logger.Named("trace").Logger)

	templates, err := starter.NewRegistry()
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	if dir := cfg.Workspace.TemplatesDir; dir != "" {
		n, err := templates.LoadDir(context.Background(), dir)
		if err != nil {
			// Partial loads keep what parsed
			logger.Warn("Some templates failed to load", zap.String("dir", dir), zap.Error(err))
		}
		logger.Info("Loaded templates", zap.String("dir", dir), zap.Int("count", n))
	}

	hub := ws.NewHub(ws.Config{
		AttachTimeout: cfg.Preview.AttachTimeout,
		WriteTimeout:  cfg.Preview.WriteTimeout,
	}).WithLogger(logger.Named("ws").Logger).WithMetrics(metrics)

	manager := workspace.NewManager(templates, hub, workspace.Config{
		MaxWorkspaces: cfg.Workspace.Max,
		IdleTTL:       cfg.Workspace.IdleTTL,
	}).WithLogger(logger.Named("workspace").Logger).WithMetrics(metrics)

	sandboxConfig := sandbox.DefaultConfig()
	if cfg.Sandbox.Timeout > 0 {
		sandboxConfig.Timeout = cfg.Sandbox.Timeout
	}
	if cfg.Preview.HeadlessEnabled {
		manager.WithHeadless(sandboxConfig, resilience.Settings{
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		})
		logger.Info("Headless preview enabled", zap.Duration("script_timeout", sandboxConfig.Timeout))
	}

	var pool *sandbox.Pool
	if cfg.Sandbox.PoolSize > 0 {
		pool, err = sandbox.NewPool(sandboxConfig, cfg.Sandbox.PoolSize, 0)
		if err != nil {
			hub.Close()
			tracer.Close()
			return nil, fmt.Errorf("failed to create render pool: %w", err)
		}
		logger.Info("Render pool ready", zap.Int("size", cfg.Sandbox.PoolSize))
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.CORSOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))
	}

	handlers := httpapi.NewHandlers(manager, templates, pool, metrics, logger.Named("http").Logger, httpapi.Options{
		ExportBaseName: cfg.Export.FileName,
		ImportMaxBytes: cfg.Export.ImportMaxBytes,
	})
	if cfg.Export.ImportURLEnabled {
		fetchConfig := fetch.DefaultConfig()
		fetchConfig.Timeout = cfg.Export.ImportURLTimeout
		fetchConfig.MaxBytes = cfg.Export.ImportMaxBytes
		handlers.WithFetcher(fetch.NewClient(fetchConfig))
		logger.Info("Import from URL enabled")
	}
	handlers.Register(router)
	ws.NewHandler(hub, manager).Register(router)
	httpapi.NewMetricsAggregator(metrics, manager, pool).Register(router)

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		manager: manager,
		hub:     hub,
		pool:    pool,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Manager returns the workspace manager
func (s *Server) Manager() *workspace.Manager {
	return s.manager
}

// Run serves HTTP and reaps idle workspaces until ctx is done, then shuts
// the listener down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	reapCtx, stopReaping := context.WithCancel(ctx)
	defer stopReaping()
	go s.manager.Run(reapCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Sockets are hijacked and ignored by Shutdown; closing the hub ends them
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases every workspace and background resource
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.manager.Close()
	s.hub.Close()

	var errs []error
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Error("Failed to close render pool", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to close render pool: %w", err))
		}
	}
	s.tracer.Close()

	_ = s.logger.Sync()

	return errors.Join(errs...)
}
