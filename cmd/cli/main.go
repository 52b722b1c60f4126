package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dvloznov/statement-analyzer/internal/analyzer"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-analyzer/internal/infra/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/dvloznov/statement-analyzer/internal/notionsync"
	"github.com/dvloznov/statement-analyzer/internal/pipeline"
	"github.com/dvloznov/statement-analyzer/internal/writer"
	"github.com/rs/zerolog"
)

const defaultConfigPath = "analyzer.yaml"

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(log)
	case "upload":
		runUpload(log)
	case "inspect":
		runInspect(log)
	case "categories":
		runCategories(log)
	case "sync-notion":
		runSyncNotion(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Analyzer CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  analyze       Analyze a bank statement PDF (local path or GCS URI)")
	fmt.Println("  upload        Upload a PDF file to GCS")
	fmt.Println("  inspect       Show a persisted analysis run and its transactions")
	fmt.Println("  categories    List the category vocabulary and keyword rules")
	fmt.Println("  sync-notion   Export a persisted run's transactions to Notion")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// loadConfig loads the configuration and swaps in a logger built from it.
func loadConfig(log zerolog.Logger, path string) (*config.Config, zerolog.Logger) {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("config", path).Msg("Failed to load configuration")
	}
	return cfg, logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
}

func runAnalyze(log zerolog.Logger) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to the YAML configuration file")
	filePath := fs.String("file", "", "Path to a local statement PDF")
	gcsURI := fs.String("gcs-uri", "", "GCS URI of the statement PDF")
	aiInsights := fs.Bool("ai-insights", false, "Ask the model for additional insights")
	strict := fs.Bool("strict", false, "Drop lines with unparsable dates or amounts")
	csvPath := fs.String("csv", "", "Write categorized transactions to this CSV file")
	persist := fs.Bool("persist", false, "Store the run in BigQuery")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")
	fs.Parse(os.Args[2:])

	source := *filePath
	if *gcsURI != "" {
		source = *gcsURI
	}
	if source == "" || (*filePath != "" && *gcsURI != "") {
		log.Fatal().Msg("Usage: cli analyze (-file PATH | -gcs-uri gs://bucket/object) [-ai-insights] [-strict] [-csv OUT] [-persist] [-json]")
	}

	cfg, log := loadConfig(log, *configPath)
	if *strict {
		cfg.Parser.Strict = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var opts []analyzer.Option
	if gcsuploader.IsGCSURI(source) {
		opts = append(opts, analyzer.WithStorage(gcsuploader.NewGCSStorageService()))
	}
	if *persist {
		if cfg.BigQuery.Project == "" {
			log.Fatal().Msg("Error: bigquery.project must be set to use -persist")
		}
		repo, err := infraBQ.NewBigQueryRunRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
		}
		defer repo.Close()
		opts = append(opts, analyzer.WithRecorder(infraBQ.NewRunRecorder(repo, cfg.LLM.Model)))
	}

	a, err := analyzer.NewFromConfig(ctx, cfg, nil, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build analyzer")
	}

	log.Info().
		Str("source", source).
		Bool("ai_insights", *aiInsights).
		Bool("strict", cfg.Parser.Strict).
		Str("provider", cfg.LLM.Provider).
		Msg("Starting analysis")

	result, err := a.AnalyzeFile(ctx, source, analyzer.Options{AIInsights: *aiInsights})
	if err != nil {
		var inputErr *analyzer.InputError
		if errors.As(err, &inputErr) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", inputErr.Reason)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode result")
		}
	} else {
		printResult(os.Stdout, result)
	}

	if !result.Success {
		os.Exit(1)
	}

	if *csvPath != "" {
		w := &writer.CSVWriter{RunID: result.RunID}
		if err := w.WriteToFile(*csvPath, result.Transactions); err != nil {
			log.Fatal().Err(err).Msg("Failed to write CSV")
		}
		fmt.Fprintf(os.Stderr, "Wrote %d transactions to %s\n", len(result.Transactions), *csvPath)
	}
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to the YAML configuration file")
	bucketName := fs.String("bucket", "", "GCS bucket name (defaults to storage.bucket)")
	objectName := fs.String("object", "", "GCS object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local PDF file")
	fs.Parse(os.Args[2:])

	cfg, log := loadConfig(log, *configPath)
	if *bucketName == "" {
		*bucketName = cfg.Storage.Bucket
	}
	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}

	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	log.Info().
		Str("bucket", *bucketName).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	storage := gcsuploader.NewGCSStorageService()
	if err := storage.UploadFile(ctx, *bucketName, *objectName, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to gs://%s/%s\n", *filePath, *bucketName, *objectName)
}

func runInspect(log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to the YAML configuration file")
	runID := fs.String("run-id", "", "Analysis run ID to inspect")
	fs.Parse(os.Args[2:])

	if *runID == "" {
		log.Fatal().Msg("Error: --run-id is required")
	}

	cfg, log := loadConfig(log, *configPath)
	ctx := logger.WithContext(context.Background(), log)

	repo, err := infraBQ.NewBigQueryRunRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create repository")
	}
	defer repo.Close()

	run, err := repo.GetAnalysisRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load analysis run")
	}
	if run == nil {
		log.Fatal().Str("run_id", *runID).Msg("Analysis run not found")
	}

	rows, err := repo.ListTransactionsByRun(ctx, *runID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	printRun(os.Stdout, run, rows)
}

func runCategories(log zerolog.Logger) {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to the YAML configuration file")
	fs.Parse(os.Args[2:])

	cfg, log := loadConfig(log, *configPath)

	rules := pipeline.DefaultRules()
	if cfg.Rules.CategoriesFile != "" {
		loaded, err := pipeline.LoadRules(cfg.Rules.CategoriesFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load category rules")
		}
		rules = loaded
	}

	printCategories(os.Stdout, domain.DefaultVocabulary(), rules)
}

func runSyncNotion(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to the YAML configuration file")
	runID := fs.String("run-id", "", "Analysis run ID to export (required)")
	notionToken := fs.String("notion-token", os.Getenv("NOTION_TOKEN"), "Notion API token (defaults to NOTION_TOKEN)")
	notionDBID := fs.String("notion-db-id", "", "Notion database ID (required)")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	fs.Parse(os.Args[2:])

	if *runID == "" {
		log.Fatal().Msg("Error: --run-id is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	cfg, log := loadConfig(log, *configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	repo, err := infraBQ.NewBigQueryRunRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize BigQuery repository")
	}
	defer repo.Close()

	stats, err := notionsync.SyncRun(ctx, repo, notionsync.NewNotionClient(*notionToken), *notionDBID, *runID, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d skipped, %d failed.\n", stats.Created, stats.Skipped, stats.Failed)
}
