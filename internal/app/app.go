package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"strompris/internal/config"
	"strompris/internal/dataprocessing"
	"strompris/internal/errors"
	"strompris/internal/infrastructure"
	customMiddleware "strompris/internal/middleware"
	"strompris/internal/services"
	handlers "strompris/internal/transport/http"
	"strompris/pkg/contracts"
)

// RepoURL is reported by /api/version
const RepoURL = "https://github.com/strompris/strompris"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Handler       http.Handler // Router wrapped in server-side tracing
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	ErrorHandler  *errors.ErrorHandler
	Services      *ServiceContainer

	watchCancel context.CancelFunc
	watchDone   sync.WaitGroup
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Prices  *services.PriceService
	Health  *services.HealthService
	HTTP    *infrastructure.HTTPMetrics
	Metrics *infrastructure.PipelineMetrics
}

// New loads configuration from file and environment, sets up the process
// logger and builds the application.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		if stderrors.Is(err, config.ErrInvalidConfig) {
			return nil, errors.NewAppValidationError("invalid configuration", err)
		}
		return nil, errors.NewConfigError("failed to load configuration", err)
	}

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	if !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = paths.GetLogPath(cfg.Logging.FilePath)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewApplication(cfg, logger)
}

// NewApplication wires every component from cfg. The initial dataset load
// must succeed: without a dataset there is nothing to serve.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	info := contracts.GetVersionInfo()
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", info.Version),
		slog.String("git_commit", info.GitCommit))

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the services and performs the startup load
func (a *Application) initializeServices() error {
	httpMetrics, err := infrastructure.NewHTTPMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	pipelineMetrics, err := infrastructure.NewPipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	policy, err := dataprocessing.ParseDuplicatePolicy(a.Config.Source.Duplicates)
	if err != nil {
		return errors.NewConfigError("invalid duplicate policy", err).
			WithContext("duplicates", a.Config.Source.Duplicates)
	}

	debounce := a.Config.Source.WatchDebounce
	if !a.Config.Source.Watch {
		debounce = 0
	}

	source := a.Config.WorkbookPath(a.Paths)
	prices := services.NewPriceService(services.PriceServiceConfig{
		Source:        source,
		BaseDir:       a.Paths.BaseDir,
		Normalizer:    dataprocessing.NormalizerConfig{Duplicates: policy},
		WatchDebounce: debounce,
	}, pipelineMetrics, a.Logger)

	ctx := infrastructure.WithTraceID(context.Background(), infrastructure.GenerateTraceID())
	if _, err := prices.Load(ctx); err != nil {
		return startupLoadError(source, err)
	}

	resolved := config.PathsConfig{
		BaseDir:   a.Paths.BaseDir,
		DataDir:   a.Paths.DataDir,
		LogsDir:   a.Paths.LogsDir,
		ExportDir: a.Paths.ExportDir,
	}
	health := services.NewHealthService(RepoURL, resolved, prices, a.Logger)

	a.Services = &ServiceContainer{
		Prices:  prices,
		Health:  health,
		HTTP:    httpMetrics,
		Metrics: pipelineMetrics,
	}
	return nil
}

// startupLoadError classifies a failed initial load
func startupLoadError(source string, err error) error {
	var appErr *errors.AppError
	switch {
	case stderrors.Is(err, dataprocessing.ErrSourceFileMissing):
		appErr = errors.NewNotFoundError("price workbook", err)
	case stderrors.Is(err, dataprocessing.ErrSchemaMismatch), stderrors.Is(err, dataprocessing.ErrDuplicateRecord):
		appErr = errors.NewSchemaError("price workbook rejected", err)
	default:
		appErr = errors.NewSourceError("initial dataset load failed", err)
	}
	return appErr.WithContext("source", source)
}

// setupRouter configures the HTTP router with all routes.
// Ordering: RequestID → RealIP → OTel → Logger → Recoverer → Timeout.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.Services.HTTP, a.Logger).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(a.ErrorHandler.Recoverer)
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))

	secure := customMiddleware.DefaultSecureHeaders()
	secure.DevMode = a.Config.Logging.Development
	r.Use(secure.Handler)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
		a.Logger.Info("CORS enabled", slog.Any("allowed_origins", a.Config.Security.AllowedOrigins))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
			a.ErrorHandler,
		).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP)
	if metricsHandler.Enabled() {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	a.Router = r
	a.Handler = otelhttp.NewHandler(r, config.AppID,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		priceHandler := handlers.NewPriceHandler(
			a.Services.Prices,
			customMiddleware.NewValidator(a.Logger),
			a.Logger,
			a.ErrorHandler,
		)
		r.Mount("/prices", priceHandler.Routes())
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Handler,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start launches the workbook watcher (when enabled) and the HTTP server.
// Server failures are reported on the returned channel.
func (a *Application) Start(ctx context.Context) <-chan error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level),
		slog.Bool("watch", a.Config.Source.Watch))

	if a.Config.Source.Watch {
		a.startWatcher(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			errCh <- err
		}
		close(errCh)
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return errCh
}

func (a *Application) startWatcher(ctx context.Context) {
	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel

	a.watchDone.Add(1)
	go func() {
		defer a.watchDone.Done()
		if err := a.Services.Prices.Watch(watchCtx); err != nil && !stderrors.Is(err, context.Canceled) {
			// The server keeps running on the last dataset; reloads stay
			// available over HTTP.
			a.Logger.ErrorContext(ctx, "workbook watcher stopped", slog.String("error", err.Error()))
		}
	}()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.watchCancel != nil {
		a.watchCancel()
		a.watchDone.Wait()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")

	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return stderrors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := a.Start(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("Received interrupt signal")
	case serveErr = <-errCh:
	}

	return stderrors.Join(serveErr, a.Stop(ctx))
}
