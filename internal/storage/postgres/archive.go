// Package postgres archives finished jobs and their pages in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/webextract/internal/crawler"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ArchiveConfig controls the Postgres connection pool and table names.
type ArchiveConfig struct {
	DSN             string
	JobsTable       string
	PagesTable      string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Archive writes one jobs row and one pages row per extracted page.
type Archive struct {
	pool       pool
	jobsTable  string
	pagesTable string
}

// NewArchive connects to Postgres using cfg.
func NewArchive(ctx context.Context, cfg ArchiveConfig) (*Archive, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a, err := NewArchiveWithPool(p, cfg.JobsTable, cfg.PagesTable)
	if err != nil {
		p.Close()
		return nil, err
	}
	return a, nil
}

// NewArchiveWithPool constructs an archive from an existing pool (primarily for testing).
func NewArchiveWithPool(p pool, jobsTable, pagesTable string) (*Archive, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if jobsTable == "" {
		jobsTable = "jobs"
	}
	if pagesTable == "" {
		pagesTable = "pages"
	}
	for _, table := range []string{jobsTable, pagesTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return &Archive{pool: p, jobsTable: jobsTable, pagesTable: pagesTable}, nil
}

// Close releases the underlying pool resources.
func (a *Archive) Close() {
	if a == nil || a.pool == nil {
		return
	}
	a.pool.Close()
}

// EnsureSchema creates the archive tables when missing.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	max_pages INTEGER NOT NULL,
	custom_instructions TEXT NOT NULL DEFAULT '',
	pages_scraped INTEGER NOT NULL DEFAULT 0,
	failed_pages INTEGER NOT NULL DEFAULT 0,
	average_quality DOUBLE PRECISION NOT NULL DEFAULT 0,
	word_count INTEGER NOT NULL DEFAULT 0,
	export_uri TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	finished_at TIMESTAMPTZ
)`, a.jobsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	job_id TEXT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	url TEXT NOT NULL,
	final_url TEXT NOT NULL DEFAULT '',
	status_code INTEGER NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	word_count INTEGER NOT NULL,
	quality_score INTEGER NOT NULL,
	extraction_method TEXT NOT NULL,
	custom_instructions_applied BOOLEAN NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	links JSONB NOT NULL,
	key_information JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (job_id, position)
)`, a.pagesTable, a.jobsTable),
	}
	for _, stmt := range stmts {
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveJob upserts the job row and replaces its page rows in one transaction.
func (a *Archive) SaveJob(ctx context.Context, job crawler.Job) (err error) {
	if a == nil || a.pool == nil {
		return fmt.Errorf("archive is not configured")
	}
	if job.ID == "" {
		return fmt.Errorf("job id is required")
	}

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, a.upsertJobSQL(), jobArgs(job)...); err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	if _, err = tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE job_id = $1`, a.pagesTable), job.ID); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	for i, page := range job.Pages {
		args, argErr := pageArgs(job.ID, i, page)
		if argErr != nil {
			err = argErr
			return err
		}
		if _, err = tx.Exec(ctx, a.insertPageSQL(), args...); err != nil {
			return fmt.Errorf("insert page %d: %w", i, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (a *Archive) upsertJobSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s (
	id,
	url,
	status,
	message,
	error,
	max_pages,
	custom_instructions,
	pages_scraped,
	failed_pages,
	average_quality,
	word_count,
	export_uri,
	created_at,
	started_at,
	finished_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	message = EXCLUDED.message,
	error = EXCLUDED.error,
	pages_scraped = EXCLUDED.pages_scraped,
	failed_pages = EXCLUDED.failed_pages,
	average_quality = EXCLUDED.average_quality,
	word_count = EXCLUDED.word_count,
	export_uri = EXCLUDED.export_uri,
	started_at = EXCLUDED.started_at,
	finished_at = EXCLUDED.finished_at`, a.jobsTable)
}

func (a *Archive) insertPageSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s (
	job_id,
	position,
	url,
	final_url,
	status_code,
	title,
	description,
	language,
	word_count,
	quality_score,
	extraction_method,
	custom_instructions_applied,
	content_hash,
	content,
	links,
	key_information,
	fetched_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)`, a.pagesTable)
}

func jobArgs(job crawler.Job) []any {
	var (
		avg   float64
		words int
	)
	if job.Result != nil {
		avg = job.Result.AverageQuality
		words = job.Result.WordCount
	}
	return []any{
		job.ID,
		job.Parameters.URL,
		string(job.Status),
		job.Message,
		job.Error,
		job.Parameters.MaxPages,
		job.Parameters.CustomInstructions,
		len(job.Pages),
		len(job.Failures),
		avg,
		words,
		job.ExportURI,
		job.CreatedAt,
		job.StartedAt,
		job.FinishedAt,
	}
}

func pageArgs(jobID string, position int, page crawler.PageResult) ([]any, error) {
	links := page.Links
	if links == nil {
		links = []crawler.LinkCandidate{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("marshal links: %w", err)
	}
	keyJSON, err := json.Marshal(page.KeyInformation)
	if err != nil {
		return nil, fmt.Errorf("marshal key information: %w", err)
	}
	return []any{
		jobID,
		position,
		page.URL,
		page.FinalURL,
		page.StatusCode,
		page.Title,
		page.Description,
		page.Language,
		page.CleanedContent.WordCount,
		page.Quality.Total,
		page.ExtractionMethod,
		page.CustomInstructionsApplied,
		page.ContentHash,
		page.CleanedContent.Text,
		linksJSON,
		keyJSON,
		page.FetchedAt,
	}, nil
}
