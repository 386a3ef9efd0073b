package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/oneclick/internal/api/middleware"
	"github.com/GriffinCanCode/oneclick/internal/bridge"
	"github.com/GriffinCanCode/oneclick/internal/domain/action"
	"github.com/GriffinCanCode/oneclick/internal/domain/runner"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/config"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/logging"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/oneclick/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/oneclick/internal/ipc"
	"github.com/GriffinCanCode/oneclick/internal/sandbox"
	"github.com/GriffinCanCode/oneclick/internal/shell"
)

const shutdownTimeout = 5 * time.Second

// Server wires the shell, the bridge and the ipc boundary behind one
// loopback HTTP listener.
type Server struct {
	config     *config.Config
	router     *gin.Engine
	http       *http.Server
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
	registry   *action.Registry
	dispatcher *ipc.Dispatcher
	bridge     *bridge.Bridge
	shell      *shell.Shell
	serveErr   chan error
}

// Option customises server construction.
type Option func(*options)

type options struct {
	executor runner.Executor
	logger   *logging.Logger
}

// WithExecutor replaces the OS process executor.
func WithExecutor(e runner.Executor) Option {
	return func(o *options) { o.executor = e }
}

// WithLogger replaces the logger built from configuration.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
	}

	appDir, err := cfg.Shell.ResolveAppDir()
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing launcher",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("mode", cfg.Shell.Mode),
		zap.String("app_dir", appDir),
		zap.String("platform", config.Platform()),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("launcher", logger.Named("trace").Logger)

	registry, err := action.Default(appDir)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("load actions: %w", err)
	}

	runnerOpts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithTimeout(cfg.Runner.Timeout),
	}
	if o.executor != nil {
		runnerOpts = append(runnerOpts, runner.WithExecutor(o.executor))
	}
	run := runner.New(runnerOpts...).WithMetrics(metrics)

	dispatcher := ipc.NewDispatcher(logger).WithMetrics(metrics)
	if err := bridge.Register(dispatcher, registry, run); err != nil {
		tracer.Close()
		return nil, err
	}
	dispatcher.Seal()
	logger.Info("Actions registered", zap.Strings("channels", dispatcher.Channels()))

	b := bridge.New(registry, dispatcher)
	sh := shell.New(b, shell.Options{
		CloseGrace: cfg.Shell.CloseGrace,
		Persist:    cfg.Shell.PersistWithoutWindows(config.Platform()),
	}, logger).WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	hosts := middleware.NewHostAllowlist(middleware.LoopbackHosts(cfg.Server.Host), cfg.Server.Port)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.HostGuard(hosts))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig("http://" + cfg.Server.Addr())))
	router.Use(middleware.Isolation())

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limit = middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		})
	}

	s := &Server{
		config:     cfg,
		router:     router,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		registry:   registry,
		dispatcher: dispatcher,
		bridge:     b,
		shell:      sh,
		serveErr:   make(chan error, 1),
	}

	if err := sh.Mount(router); err != nil {
		tracer.Close()
		return nil, fmt.Errorf("mount shell: %w", err)
	}
	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	ipcServer := ipc.NewServer(dispatcher, sh.Hooks(), logger).WithMetrics(metrics).WithTracer(tracer).WithHostCheck(hosts.Allows)
	router.GET(bridge.Endpoint, limit, ipcServer.HandleConnection)
	b.Mount(router.Group("/bridge", limit))

	logger.Info("Server initialized", zap.Strings("methods", b.Methods()))
	return s, nil
}

// Router exposes the HTTP handler.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Shell returns the lifecycle owner.
func (s *Server) Shell() *shell.Shell {
	return s.shell
}

// Start listens on the configured address and signals the shell ready.
// It returns once the window URL is known.
func (s *Server) Start() (shell.Window, error) {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return shell.Window{}, fmt.Errorf("listen on %s: %w", s.config.Server.Addr(), err)
	}

	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()

	win, err := s.shell.Ready("http://" + ln.Addr().String() + "/")
	if err != nil {
		return shell.Window{}, err
	}
	s.logger.Info("Open the installer in your browser", zap.String("url", win.URL))
	return win, nil
}

// Run serves until the shell terminates, ctx is cancelled or the listener
// fails. In headless mode it runs the renderer once instead.
func (s *Server) Run(ctx context.Context) error {
	if s.config.Shell.Mode == config.ModeHeadless {
		return s.runHeadless(ctx)
	}

	if _, err := s.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
		s.shell.Quit()
		return nil
	case <-s.shell.Done():
		return nil
	case err := <-s.serveErr:
		s.shell.Quit()
		return fmt.Errorf("http server: %w", err)
	}
}

func (s *Server) runHeadless(ctx context.Context) error {
	report, err := s.shell.RunHeadless(ctx, s.headlessConfig())
	if err != nil {
		return fmt.Errorf("headless run: %w", err)
	}
	s.logger.Info("Installer report", zap.String("report", report))
	return nil
}

// headlessConfig bounds the renderer only when actions themselves are
// bounded; an unbounded install runs to completion.
func (s *Server) headlessConfig() sandbox.Config {
	cfg := sandbox.DefaultConfig()
	cfg.Timeout = 0
	if s.config.Runner.Timeout > 0 {
		cfg.Timeout = s.config.Runner.Timeout + time.Minute
	}
	return cfg
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"state":   s.shell.State().String(),
		"actions": s.registry.Names(),
		"methods": s.bridge.Methods(),
	}
	if win, ok := s.shell.Window(); ok {
		body["window"] = gin.H{
			"id":         win.ID.String(),
			"url":        win.URL,
			"created_at": win.CreatedAt,
		}
	}
	snap := s.metrics.Snapshot()
	body["invocations"] = gin.H{
		"total":  snap.TotalInvocations,
		"failed": snap.FailedInvocations,
		"active": snap.ActiveInvocations,
	}
	c.JSON(http.StatusOK, body)
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")
	s.shell.Quit()

	var err error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err = s.http.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to stop HTTP server", zap.Error(err))
			err = fmt.Errorf("failed to stop HTTP server: %w", err)
		}
	}
	s.tracer.Close()

	// Sync logger before exit
	s.logger.Sync()

	return err
}
