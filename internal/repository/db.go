package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	// DSN selects the driver: postgres:// or postgresql:// prefixes use pgx,
	// anything else is treated as a sqlite database path.
	DSN         string
	DialTimeout time.Duration
}

// Open connects to the record store and applies the lightweight migration.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver := "sqlite"
	if isPostgres(cfg.DSN) {
		driver = "pgx"
	}
	logger.Info("db.open", "driver", driver)

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("db.ready", "driver", driver)
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Migrate applies the schema. Dates are stored as ISO strings and the
// review metadata as JSON text, which keeps the schema portable between
// sqlite and postgres.
func Migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS contracts (
	id                    TEXT PRIMARY KEY,
	file_name             TEXT NOT NULL,
	display_name          TEXT,
	vendor_name           TEXT,
	start_date            TEXT,
	end_date              TEXT,
	renewal_date          TEXT,
	renewal_term          TEXT,
	notice_period_days    INTEGER,
	notice_deadline       TEXT,
	extraction_status     TEXT NOT NULL DEFAULT 'pending',
	extraction_confidence REAL,
	needs_review          INTEGER NOT NULL DEFAULT 0,
	extraction_notes      TEXT,
	uncertain_fields      TEXT,
	candidate_dates       TEXT,
	pdf_path              TEXT NOT NULL,
	created_at            TEXT NOT NULL,
	updated_at            TEXT NOT NULL
)`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// rebind converts ?-style placeholders to the $n form pgx expects.
func rebind(pg bool, query string) string {
	if !pg {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
