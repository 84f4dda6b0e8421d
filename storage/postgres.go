package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/paurush33/alberta-procurement-scraper/config"
	"github.com/paurush33/alberta-procurement-scraper/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore mirrors scraped opportunities into Postgres. The JSONL file
// stays the source of truth; the table is for querying across runs.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg config.Config) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer schemaCancel()
	if err := store.ensureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveRecords upserts one page worth of records, keyed by URL. A record seen
// again on a later run keeps its row and gets the latest title, description
// and page position.
func (s *PostgresStore) SaveRecords(ctx context.Context, runID string, page int, records []models.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO opportunities (run_id, page, title, url, description)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO UPDATE
		SET
			run_id = EXCLUDED.run_id,
			page = EXCLUDED.page,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			updated_at = NOW()`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, rec := range records {
		if rec.URL == "" {
			continue
		}
		var desc sql.NullString
		if rec.Description != nil {
			desc = sql.NullString{String: *rec.Description, Valid: true}
		}
		if _, err = stmt.ExecContext(
			ctx,
			runID,
			page,
			rec.Title,
			rec.URL,
			desc,
		); err != nil {
			return 0, fmt.Errorf("insert opportunity %q: %w", rec.URL, err)
		}
		total++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return total, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS opportunities (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			page INT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_opportunities_run ON opportunities(run_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
