package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/statement-analyzer/internal/config"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

type migrator struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
	log       zerolog.Logger
}

func main() {
	configPath := flag.String("config", "analyzer.yaml", "Path to the YAML configuration file")
	projectID := flag.String("project", "", "GCP project ID (defaults to bigquery.project)")
	datasetID := flag.String("dataset", "", "BigQuery dataset ID (defaults to bigquery.dataset)")
	appliedBy := flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir := flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
	dryRun := flag.Bool("dry-run", false, "List pending migrations without applying them")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *projectID == "" {
		*projectID = cfg.BigQuery.Project
	}
	if *datasetID == "" {
		*datasetID = cfg.BigQuery.Dataset
	}
	if *projectID == "" {
		log.Fatal().Msg("Error: -project flag or bigquery.project is required")
	}

	dir, err := findMigrationsDir(*migrationsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to locate migrations")
	}
	migrations, err := readMigrations(os.DirFS(dir), *projectID, *datasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Str("dir", dir).Msg("Found migration files")

	ctx := logger.WithContext(context.Background(), log)

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	m := &migrator{
		client:    client,
		projectID: *projectID,
		datasetID: *datasetID,
		appliedBy: *appliedBy,
		log:       log,
	}

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	if err := m.ensureDataset(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure dataset")
	}
	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	for _, w := range checksumMismatches(migrations, applied) {
		log.Warn().Msg(w)
	}

	pending := pendingMigrations(migrations, applied)
	for _, migration := range pending {
		label := fmt.Sprintf("%04d_%s", migration.Version, migration.Name)
		if *dryRun {
			log.Info().Str("migration", label).Msg("[DRY RUN] Would apply")
			continue
		}

		log.Info().Str("migration", label).Msg("Applying")
		if err := m.run(ctx, migration.SQL, nil); err != nil {
			log.Fatal().Err(err).Str("migration", label).Msg("Failed to execute migration")
		}
		if err := m.recordMigration(ctx, migration); err != nil {
			log.Fatal().Err(err).Str("migration", label).Msg("Failed to record migration")
		}
		log.Info().Str("migration", label).Msg("Applied")
	}

	switch {
	case len(pending) == 0:
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	case *dryRun:
		log.Info().Int("pending", len(pending)).Msg("Dry run finished")
	default:
		log.Info().Int("applied", len(pending)).Msg("Successfully applied migrations")
	}
}

// findMigrationsDir resolves dir from the working directory or, when run
// from cmd/migrate, from the repository root.
func findMigrationsDir(dir string) (string, error) {
	for _, candidate := range []string{dir, "../../" + dir} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}

// readMigrations reads every migration file in fsys, sorted by version, with
// placeholders replaced. The checksum covers the file as written, so the same
// migration has the same checksum in every project.
func readMigrations(fsys fs.FS, projectID, datasetID string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", projectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", datasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// pendingMigrations returns the migrations whose version has not been applied.
func pendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}
	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// checksumMismatches describes applied migrations whose file has changed since.
func checksumMismatches(all []Migration, applied []AppliedMigration) []string {
	byVersion := make(map[int]Migration, len(all))
	for _, m := range all {
		byVersion[m.Version] = m
	}
	var out []string
	for _, am := range applied {
		m, ok := byVersion[am.Version]
		if !ok || am.Checksum == "" || am.Checksum == m.Checksum {
			continue
		}
		out = append(out, fmt.Sprintf("migration %04d_%s changed after it was applied", m.Version, m.Name))
	}
	return out
}

func (m *migrator) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", m.projectID, m.datasetID, name)
}

// ensureDataset creates the dataset when it does not exist yet.
func (m *migrator) ensureDataset(ctx context.Context) error {
	ds := m.client.Dataset(m.datasetID)
	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("ensureDataset: reading metadata: %w", err)
	}

	m.log.Info().Str("dataset", m.datasetID).Msg("Creating dataset")
	if err := ds.Create(ctx, &bigquery.DatasetMetadata{Description: "Bank statement analysis runs"}); err != nil {
		return fmt.Errorf("ensureDataset: creating dataset: %w", err)
	}
	return nil
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func (m *migrator) ensureSchemaMigrationsTable(ctx context.Context) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, m.table("schema_migrations"))

	if err := m.run(ctx, sql, nil); err != nil {
		return fmt.Errorf("ensureSchemaMigrationsTable: %w", err)
	}
	return nil
}

// getAppliedMigrations retrieves the list of already applied migrations
func (m *migrator) getAppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, m.table("schema_migrations"))

	it, err := m.client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("getAppliedMigrations: reading: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("getAppliedMigrations: iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func (m *migrator) recordMigration(ctx context.Context, migration Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, m.table("schema_migrations"))

	params := []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: m.appliedBy},
	}
	if err := m.run(ctx, sql, params); err != nil {
		return fmt.Errorf("recordMigration: %w", err)
	}
	return nil
}

// run executes one statement and waits for it to finish.
func (m *migrator) run(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	query := m.client.Query(sql)
	query.Parameters = params

	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
