package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/analyzer"
	"github.com/dvloznov/statement-analyzer/internal/api"
	"github.com/dvloznov/statement-analyzer/internal/api/handlers"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/jobs"
	"github.com/dvloznov/statement-analyzer/internal/jobs/inmemory"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "analyzer.yaml", "Path to the YAML configuration file")
	port := flag.String("port", "", "HTTP server port (overrides server.port)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	ctx := logger.WithContext(context.Background(), log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []analyzer.Option{analyzer.WithStorage(gcsuploader.NewGCSStorageService())}
	if cfg.BigQuery.Project != "" {
		repo, err := infraBQ.NewBigQueryRunRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create run repository")
		}
		defer repo.Close()
		opts = append(opts, analyzer.WithRecorder(infraBQ.NewRunRecorder(repo, cfg.LLM.Model)))
	} else {
		log.Warn().Msg("No BigQuery project configured - analysis runs will not be persisted")
	}

	a, err := analyzer.NewFromConfig(ctx, cfg, m, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build analyzer")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Jobs.Buffer, jobStore,
		inmemory.WithWorkers(cfg.Jobs.Workers),
		inmemory.WithMaxRetries(cfg.Jobs.MaxRetries),
	)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Jobs.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.NewAnalyzeHandler(a)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	routes := api.Routes{
		Analyses:   handlers.NewAnalysesHandler(a, jobQueue, cfg.Limits.MaxFileBytes, log),
		Jobs:       handlers.NewJobsHandler(jobStore, log),
		Categories: handlers.NewCategoriesHandler(domain.DefaultVocabulary()),
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(routes, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("provider", cfg.LLM.Provider).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	session := a.Session()
	log.Info().
		Int("analyses", session.AnalysesPerformed).
		Int("llm_calls", session.TotalLLMCalls).
		Float64("total_cost", session.TotalCost).
		Msg("Server exited")
}
