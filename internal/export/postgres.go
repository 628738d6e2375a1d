package export

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Caia-Tech/ff6-dataset/pkg/dataset"
	"github.com/Caia-Tech/ff6-dataset/pkg/logging"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS wiki_pages (
	id         BIGSERIAL PRIMARY KEY,
	title      TEXT NOT NULL UNIQUE,
	url        TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS wiki_sections (
	id         TEXT PRIMARY KEY,
	page_id    BIGINT NOT NULL REFERENCES wiki_pages(id) ON DELETE CASCADE,
	heading    TEXT NOT NULL,
	content    TEXT NOT NULL,
	versions   TEXT[] NOT NULL,
	sort_order INT NOT NULL
);
CREATE TABLE IF NOT EXISTS training_pairs (
	id          TEXT PRIMARY KEY,
	instruction TEXT NOT NULL,
	input       TEXT NOT NULL,
	output      TEXT NOT NULL,
	exported_at TIMESTAMPTZ NOT NULL
);`

const upsertPageSQL = `
	INSERT INTO wiki_pages (title, url, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (title)
	DO UPDATE SET url = EXCLUDED.url, updated_at = EXCLUDED.updated_at
	RETURNING id`

const insertSectionSQL = `
	INSERT INTO wiki_sections (id, page_id, heading, content, versions, sort_order)
	VALUES ($1, $2, $3, $4, $5, $6)`

const insertPairSQL = `
	INSERT INTO training_pairs (id, instruction, input, output, exported_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO NOTHING`

// pgExecutor is the subset of pgxpool.Pool the sink needs
type pgExecutor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink writes pages, sections and pairs to PostgreSQL
type PostgresSink struct {
	db     pgExecutor
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresSink connects to the database at connString
func NewPostgresSink(ctx context.Context, connString string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	s := newPostgresSink(pool)
	s.pool = pool
	return s, nil
}

func newPostgresSink(db pgExecutor) *PostgresSink {
	return &PostgresSink{
		db:     db,
		logger: logging.GetLogger("export.postgres"),
	}
}

// EnsureSchema creates the export tables when absent
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SavePage upserts a page by title and replaces its sections
func (s *PostgresSink) SavePage(ctx context.Context, page dataset.Page) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var pageID int64
	if err := tx.QueryRow(ctx, upsertPageSQL, page.Title, page.URL, time.Now()).Scan(&pageID); err != nil {
		return fmt.Errorf("failed to save page %s: %w", page.Title, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM wiki_sections WHERE page_id = $1`, pageID); err != nil {
		return fmt.Errorf("failed to delete old sections: %w", err)
	}

	for i, section := range page.Sections {
		versions := make([]string, len(section.Versions))
		for j, v := range section.Versions {
			versions[j] = string(v)
		}
		_, err := tx.Exec(ctx, insertSectionSQL,
			SectionID(page.Title, i, section.Heading),
			pageID,
			section.Heading,
			section.Content,
			versions,
			i)
		if err != nil {
			return fmt.Errorf("failed to save section %d of %s: %w", i, page.Title, err)
		}
	}
	return tx.Commit(ctx)
}

// SavePairs inserts pairs in one transaction, skipping ones already stored.
// It returns the number of rows actually inserted.
func (s *PostgresSink) SavePairs(ctx context.Context, pairs []dataset.TrainingPair) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	var inserted int64
	for _, p := range pairs {
		tag, err := tx.Exec(ctx, insertPairSQL, PairID(p), p.Instruction, p.Input, p.Output, now)
		if err != nil {
			return 0, fmt.Errorf("failed to save pair: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// Export implements Sink. A page that fails is logged and counted.
func (s *PostgresSink) Export(ctx context.Context, pages []dataset.Page, pairs []dataset.TrainingPair) (*ExportStats, error) {
	start := time.Now()
	stats := &ExportStats{Target: TargetPostgres}

	if err := s.EnsureSchema(ctx); err != nil {
		return stats, err
	}

	for _, page := range pages {
		if err := s.SavePage(ctx, page); err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			s.logger.Warn().Err(err).Str("title", page.Title).Msg("Failed to export page")
			stats.Failed++
			continue
		}
		stats.Pages++
		stats.Sections += len(page.Sections)
	}

	inserted, err := s.SavePairs(ctx, pairs)
	if err != nil {
		return stats, err
	}
	stats.Pairs = inserted
	stats.Duration = time.Since(start)

	s.logger.Info().
		Int("pages", stats.Pages).
		Int("sections", stats.Sections).
		Int("pairs", stats.Pairs).
		Int("failed", stats.Failed).
		Msg("Postgres export complete")
	return stats, nil
}

// Close releases the connection pool
func (s *PostgresSink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
