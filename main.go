package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"flux_backend/admission"
	"flux_backend/core"
	"flux_backend/core/validation"
	"flux_backend/dispatch"
	"flux_backend/fluxruntime"
	"flux_backend/history"
	"flux_backend/imaging"
	"flux_backend/logging"
	"flux_backend/metrics"
	"flux_backend/server"
	"flux_backend/service"
	"flux_backend/shutdown"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"

	// Run startup validation before heavy initialization. The suite prints
	// its own progress and returns the validated configuration.
	result := validation.NewValidationSuite().
		WithShowProgress(true).
		Validate()
	if !result.Success {
		fmt.Printf("Startup validation failed: %v\n", result.GetFirstError())
		os.Exit(core.ExitCodeConfigError)
	}
	config := result.Config

	logger, err := logging.NewLogger(isDevelopment, config.LogFile)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
	}()

	logger.Info("Configuration loaded",
		zap.String("listen", config.ListenAddr()),
		zap.String("backend", config.BackendKind),
		zap.String("model", config.ModelName),
		zap.Int("max_batch", config.MaxBatchSize),
		zap.Int("max_steps", config.MaxInferenceSteps),
		zap.Int("workers", config.WorkerCount),
		zap.Int("rate_limit", config.RateLimitCount),
		zap.Duration("rate_window", config.RateLimitWindow),
		zap.String("output_dir", config.OutputDir),
		zap.String("history_db", config.HistoryDB),
		zap.Bool("dev_mode", isDevelopment),
	)

	if err := run(config, logger); err != nil {
		logger.Error("Service failed", zap.Error(err))
		os.Exit(core.ExitCodeError)
	}
}

// run wires the components together and blocks until shutdown.
func run(config *core.Config, logger *logging.Logger) error {
	manager := shutdown.NewManager(logger, shutdown.WithTimeout(45*time.Second))
	manager.Start()

	backend, err := buildBackend(config)
	if err != nil {
		return fmt.Errorf("failed to create model backend: %w", err)
	}

	limits := fluxruntime.Limits{
		MaxSteps: config.MaxInferenceSteps,
		MaxBatch: config.MaxBatchSize,
	}
	runtime := fluxruntime.NewRuntime(backend, limits, config.LoadTimeout, logger)
	manager.Register("model-runtime", 30, func(ctx context.Context) error {
		return runtime.Close()
	})

	dispatcher, err := dispatch.New(config.WorkerCount, logger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	store, err := imaging.NewStore(config.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to create image store: %w", err)
	}
	assembler := service.NewAssembler(store, publicBaseURL(config), config.StaticPrefix)

	db, err := history.Open(history.DefaultDatabaseConfig(config.HistoryDB))
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	manager.Register("history-db", 35, func(ctx context.Context) error {
		return db.Close()
	})
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}
	records := history.NewRepository(db)

	catalog, err := server.LoadCatalog(config.CatalogPath, config.ModelName)
	if err != nil {
		return fmt.Errorf("failed to load model catalog: %w", err)
	}

	stats := metrics.NewStore(metrics.DefaultHistorySize)
	gpuCollector := metrics.NewGPUCollector(stats, nil, 5*time.Second)
	gpuCollector.Start(manager.Context())
	manager.Register("gpu-collector", 20, func(ctx context.Context) error {
		gpuCollector.Stop()
		return nil
	})

	svc := service.New(config, runtime, dispatcher, assembler, records, stats, logger)

	limiter := admission.NewLimiter(config.RateLimitCount, config.RateLimitWindow)
	limiter.StartCleanupTicker(manager.Context(), 5*time.Minute)

	serverConfig := server.DefaultServerConfig()
	serverConfig.Host = config.Host
	serverConfig.Port = config.Port
	serverConfig.MaxRequestBytes = config.MaxRequestBytes
	serverConfig.RateLimitCount = config.RateLimitCount
	serverConfig.RateLimitWindow = config.RateLimitWindow
	serverConfig.StaticDir = config.OutputDir
	serverConfig.StaticPrefix = config.StaticPrefix

	srv, err := server.NewServer(serverConfig, svc, runtime, limiter, catalog, stats, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	manager.Register("http-server", 10, srv.Shutdown)
	manager.Register("edit-staging", 45, shutdown.CleanupEditStaging(logger))

	// Warm the model in the background so the first request does not pay
	// the load cost. A failed preload is not fatal; requests observe the
	// failed state and return 503 while the cause is in the logs.
	go func() {
		if err := runtime.EnsureReady(manager.Context()); err != nil {
			logger.Warn("Model preload failed", zap.Error(err))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-manager.Context().Done():
		if err := manager.Shutdown(); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		logger.Info("Goodbye!")
		return nil
	case err := <-serverErr:
		manager.Shutdown()
		return err
	}
}

// buildBackend selects the model backend from configuration.
func buildBackend(config *core.Config) (fluxruntime.Backend, error) {
	switch config.BackendKind {
	case "openai":
		return fluxruntime.NewOpenAIBackend(fluxruntime.OpenAIBackendConfig{
			BaseURL: config.RemoteBaseURL,
			APIKey:  config.RemoteAPIKey,
			Model:   config.ModelName,
		})
	default:
		return fluxruntime.NewStubBackend(), nil
	}
}

// publicBaseURL derives the base URL used in image links. An explicit
// BASE_URL wins; otherwise the listen address is used, with the wildcard
// bind address rewritten to something a client can actually reach.
func publicBaseURL(config *core.Config) string {
	if config.BaseURL != "" {
		return config.BaseURL
	}
	host := config.Host
	if host == "0.0.0.0" || host == "::" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, config.Port)
}
