package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"student-console/internal/config"
	"student-console/internal/console"
	"student-console/internal/health"
	"student-console/internal/logger"
	"student-console/internal/messaging"
	"student-console/internal/metrics"
	"student-console/internal/middleware"
	"student-console/internal/query"
	"student-console/internal/studentclient"
	"student-console/internal/telemetry"
	"student-console/internal/web"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	cache     *query.Client
	producer  *messaging.Producer
	telemetry *telemetry.Telemetry
}

func New() (*App, error) {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "git_commit", GitCommit, "build_time", BuildTime)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env, "backend", cfg.Backend.BaseURL)

	return NewWithConfig(cfg, slogLogger)
}

// NewWithConfig wires the application from an already loaded config.
func NewWithConfig(cfg *config.Config, slogLogger *slog.Logger) (*App, error) {
	tel, err := telemetry.Init(context.Background(), cfg.Telemetry.OTLPEndpoint, ServiceName, Version, slogLogger)
	if err != nil {
		slogLogger.Warn("failed to initialize telemetry", "error", err)
		tel = nil
	}
	var m *metrics.Metrics
	if tel != nil {
		m = tel.Metrics
	}

	app := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		logger:    slogLogger,
		telemetry: tel,
	}

	app.cache = query.NewClient(query.Config{
		CacheTime:  cfg.Query.CacheTime,
		GCInterval: cfg.Query.GCInterval,
		Logger:     slogLogger,
		Metrics:    m,
	})

	// NATS is optional, mutations are not blocked on it
	var publisher console.Publisher
	if cfg.NATS.URL != "" {
		producer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, slogLogger)
		if err != nil {
			slogLogger.Warn("failed to initialize NATS producer", "error", err)
		} else {
			app.producer = producer
			publisher = producer
		}
	}

	backend := studentclient.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, slogLogger)
	studentConsole := console.New(backend, app.cache, console.Options{
		PageSize:         cfg.Query.PageSize,
		ListTimeout:      cfg.Query.ListTimeout,
		ListStaleTime:    cfg.Query.ListStaleTime,
		DetailStaleTime:  cfg.Query.DetailStaleTime,
		DetailRetry:      cfg.Query.DetailRetry,
		DetailRetryDelay: console.DefaultOptions().DetailRetryDelay,
	}, publisher, m, slogLogger)

	webHandler, err := web.NewHandler(studentConsole, slogLogger)
	if err != nil {
		app.cache.Close()
		return nil, err
	}

	app.router.Use(chimw.RequestID)
	app.router.Use(chimw.Recoverer)
	app.router.Use(middleware.RequestLogger(slogLogger))

	healthHandler := health.NewHandler(func(ctx context.Context) error {
		_, err := backend.ListStudents(ctx, 1, 1)
		return err
	})
	healthHandler.RegisterRoutes(app.router)
	webHandler.RegisterRoutes(app.router)

	slogLogger.Info("application initialized successfully")
	return app, nil
}

func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	errs = append(errs,
		a.cache.Close(),
		a.producer.Close(),
		a.telemetry.Shutdown(ctx, a.logger),
	)
	return errors.Join(errs...)
}
