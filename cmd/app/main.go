package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas-ai-orchestrator/internal/config"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/infra/adapters/provider"
	pg "saas-ai-orchestrator/internal/infra/db/postgres"
	"saas-ai-orchestrator/internal/infra/hardware"
	"saas-ai-orchestrator/internal/infra/logging"
	red "saas-ai-orchestrator/internal/infra/redis"
	"saas-ai-orchestrator/internal/infra/sched"
	"saas-ai-orchestrator/internal/infra/web"
	"saas-ai-orchestrator/internal/infra/worker"
	"saas-ai-orchestrator/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (header auth, quota bypass)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect")
	}
	defer redisClient.Close()
	publisher := red.NewEventPublisher(redisClient)
	availCache := red.NewAvailabilityCache(redisClient, 2*cfg.Housekeeping.AvailabilityInterval)

	// ---- Hardware ----
	hw := hardware.Detect(logger)
	optimal := hw.Optimal("ollama", "openai")
	logger.Info().
		Str("classification", string(hw.Classify())).
		Int("parallel_capacity", optimal.ParallelJobCapacity).
		Bool("local_models", optimal.CanRunLocalModels).
		Msg("hardware profile")

	// ---- Repositories ----
	modelRepo := pg.NewAIModelRepo(pool)
	jobRepo := pg.NewJobRepo(pool)
	tenantRepo := pg.NewTenantRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Providers ----
	concurrency := cfg.Orchestrator.ConcurrentLimit
	if concurrency <= 0 {
		concurrency = optimal.ParallelJobCapacity
	}
	providers := provider.NewRegistry()
	if cfg.Providers.OpenAIKey != "" {
		openai, err := provider.NewOpenAIAdapter(cfg.Providers.OpenAIKey, cfg.Providers.OpenAIBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		providers.Register(provider.NewLimited(openai, concurrency))
		logger.Info().Msg("provider registered: openai")
	}
	if cfg.Providers.GeminiKey != "" {
		gemini, err := provider.NewGeminiAdapter(ctx, cfg.Providers.GeminiKey, cfg.Providers.GeminiBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		providers.Register(provider.NewLimited(gemini, concurrency))
		logger.Info().Msg("provider registered: gemini")
	}
	if optimal.CanRunLocalModels && cfg.Providers.OllamaBaseURL != "" {
		ollama := provider.NewOllamaAdapter(cfg.Providers.OllamaBaseURL)
		providers.Register(provider.NewLimited(ollama, concurrency))
		logger.Info().Msg("provider registered: ollama")
	}
	if len(providers.Names()) == 0 {
		logger.Fatal().Msg("no provider configured: set OPENAI_API_KEY, GEMINI_API_KEY or providers.ollama_base_url")
	}

	// ---- Use cases ----
	registryUC := usecase.NewRegistryUseCase(modelRepo, logger)
	if err := registryUC.SyncFromConfig(ctx, cfg.Models); err != nil {
		logger.Fatal().Err(err).Msg("model catalog sync")
	}

	assignmentUC := usecase.NewAssignmentUseCase(cfg.Assignment, modelRepo, hw.Profile(), logger)
	if err := assignmentUC.Recompute(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial assignment recompute failed, using configured lists")
	}

	quotaUC := usecase.NewQuotaUseCase(jobRepo, tenantRepo, planLimits(cfg.Quota), logger)

	orchestratorUC := usecase.NewOrchestratorUseCase(usecase.OrchestratorParams{
		Jobs:             jobRepo,
		TxManager:        txManager,
		Registry:         registryUC,
		Assignment:       assignmentUC,
		Quota:            quotaUC,
		Providers:        providers,
		Publisher:        publisher,
		Classification:   hw.Classify(),
		DefaultModel:     cfg.Orchestrator.DefaultModel,
		MaxPromptChars:   cfg.Orchestrator.MaxPromptChars,
		ProviderTimeout:  cfg.Orchestrator.ProviderTimeout,
		ChunkIdleTimeout: cfg.Orchestrator.ChunkIdleTimeout,
		DevMode:          cfg.Runtime.Dev,
	}, logger)

	// ---- Housekeeping ----
	pool2 := worker.NewPool(concurrency, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	availabilityWorker := sched.NewAvailabilityWorker(
		cfg.Housekeeping.AvailabilityInterval, registryUC, assignmentUC, providers, availCache, pool2, logger)
	go func() { _ = availabilityWorker.Run(ctx) }()

	retention := time.Duration(cfg.Housekeeping.RetentionDays) * 24 * time.Hour
	purgeWorker := sched.NewPurgeWorker(
		cfg.Housekeeping.PurgeInterval, retention, cfg.Housekeeping.StaleJobAge, jobRepo, logger)
	go func() { _ = purgeWorker.Run(ctx) }()

	updateWorker := sched.NewModelUpdateWorker(
		cfg.Housekeeping.UpdateCheckInterval, providers.UpdateCheckers(), logger)
	go func() { _ = updateWorker.Run(ctx) }()

	loadSampler := sched.NewLoadSampler(cfg.Housekeeping.LoadSampleInterval, hw, logger)
	go func() { _ = loadSampler.Run(ctx) }()

	// ---- HTTP ----
	srv := web.NewServer(web.ServerParams{
		Orchestrator:   orchestratorUC,
		Quota:          quotaUC,
		Registry:       registryUC,
		Assignment:     assignmentUC,
		Providers:      providers,
		Hardware:       hw,
		Availability:   availCache,
		LocalProvider:  "ollama",
		HostedProvider: "openai",
	}, cfg.Server, cfg.Runtime.Dev, logger)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(cfg.Server),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

// planLimits overlays configured allowances on the built-in table.
func planLimits(cfg config.QuotaConfig) model.PlanLimits {
	limits := model.DefaultPlanLimits()
	for tier, features := range cfg.Limits {
		row := limits[model.PlanTier(tier)]
		if row == nil {
			row = map[model.Feature]int64{}
			limits[model.PlanTier(tier)] = row
		}
		for feature, allowance := range features {
			row[model.Feature(feature)] = allowance
		}
	}
	return limits
}
