package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/analyzer"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/jobs"
	"github.com/dvloznov/statement-analyzer/internal/jobs/inmemory"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/metrics"
)

const pollInterval = time.Second

func main() {
	configPath := flag.String("config", "analyzer.yaml", "Path to the YAML configuration file")
	prefix := flag.String("prefix", "", "GCS prefix to analyze, e.g. gs://bucket/statements/ (defaults to the whole storage.bucket)")
	aiInsights := flag.Bool("ai-insights", false, "Ask the model for additional insights on every statement")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
	}

	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)

	if *prefix == "" && cfg.Storage.Bucket != "" {
		*prefix = "gs://" + cfg.Storage.Bucket + "/"
	}
	if *prefix == "" {
		log.Fatal().Msg("Error: --prefix or storage.bucket is required")
	}

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	storage := gcsuploader.NewGCSStorageService()
	opts := []analyzer.Option{analyzer.WithStorage(storage)}
	if cfg.BigQuery.Project != "" {
		repo, err := infraBQ.NewBigQueryRunRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create run repository")
		}
		defer repo.Close()
		opts = append(opts, analyzer.WithRecorder(infraBQ.NewRunRecorder(repo, cfg.LLM.Model)))
	}

	a, err := analyzer.NewFromConfig(ctx, cfg, metrics.Default(), opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build analyzer")
	}

	uris, err := storage.ListPDFs(ctx, *prefix)
	if err != nil {
		log.Fatal().Err(err).Str("prefix", *prefix).Msg("Failed to list statements")
	}
	if len(uris) == 0 {
		log.Info().Str("prefix", *prefix).Msg("No PDF statements found")
		return
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(uris), jobStore,
		inmemory.WithWorkers(cfg.Jobs.Workers),
		inmemory.WithMaxRetries(cfg.Jobs.MaxRetries),
	)

	log.Info().
		Str("prefix", *prefix).
		Int("statements", len(uris)).
		Int("workers", cfg.Jobs.Workers).
		Msg("Starting worker service")

	if err := jobQueue.Start(ctx, jobs.NewAnalyzeHandler(a)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	for _, uri := range uris {
		job := &jobs.AnalyzeStatementJob{Source: uri, AIInsights: *aiInsights}
		if err := jobQueue.PublishAnalyzeStatement(ctx, job); err != nil {
			log.Fatal().Err(err).Str("source", uri).Msg("Failed to enqueue statement")
		}
	}

	finished := waitForJobs(ctx, jobStore, len(uris))

	log.Info().Msg("Shutting down worker service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	printSummary(finished)

	session := a.Session()
	log.Info().
		Int("analyses", session.AnalysesPerformed).
		Int("llm_calls", session.TotalLLMCalls).
		Float64("total_cost", session.TotalCost).
		Msg("Worker service exited")
}

// waitForJobs polls the store until every job is completed or failed, or ctx ends.
func waitForJobs(ctx context.Context, store jobs.JobStore, total int) []*jobs.AnalyzeStatementJob {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		all, err := store.ListJobs(ctx, jobs.JobFilter{Limit: total})
		if err == nil && countDone(all) == total {
			return all
		}

		select {
		case <-ctx.Done():
			all, _ := store.ListJobs(context.Background(), jobs.JobFilter{Limit: total})
			return all
		case <-ticker.C:
		}
	}
}

func countDone(all []*jobs.AnalyzeStatementJob) int {
	n := 0
	for _, j := range all {
		if j.Status == jobs.JobStatusCompleted || j.Status == jobs.JobStatusFailed {
			n++
		}
	}
	return n
}

func printSummary(all []*jobs.AnalyzeStatementJob) {
	var completed, failed int
	for _, j := range all {
		switch j.Status {
		case jobs.JobStatusCompleted:
			completed++
			fmt.Printf("OK      %s  run=%s\n", j.Source, j.RunID)
		case jobs.JobStatusFailed:
			failed++
			fmt.Printf("FAILED  %s  %s\n", j.Source, j.Error)
		default:
			fmt.Printf("%-7s %s\n", j.Status, j.Source)
		}
	}
	fmt.Printf("\n%d completed, %d failed, %d total.\n", completed, failed, len(all))
}
