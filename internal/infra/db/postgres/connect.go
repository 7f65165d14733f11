package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the monitoring tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS abnormalities (
  id VARCHAR(36) PRIMARY KEY,
  container_id VARCHAR(128) NOT NULL,
  container_name VARCHAR(255) NOT NULL,
  log_snippet TEXT NOT NULL,
  analysis TEXT,
  status VARCHAR(16) NOT NULL DEFAULT 'unresolved',
  first_detected_at TIMESTAMPTZ NOT NULL,
  last_detected_at TIMESTAMPTZ NOT NULL,
  resolution_notes TEXT,
  log_archive_url VARCHAR(512)
);`,
		`CREATE INDEX IF NOT EXISTS idx_abnormalities_container_status ON abnormalities (container_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_abnormalities_last_detected ON abnormalities (last_detected_at);`,
		`CREATE TABLE IF NOT EXISTS summary_history (
  id BIGSERIAL PRIMARY KEY,
  generated_at TIMESTAMPTZ NOT NULL,
  summary_text TEXT,
  error_text TEXT,
  status VARCHAR(16) NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_summary_history_generated ON summary_history (generated_at);`,
		`CREATE TABLE IF NOT EXISTS monitor_settings (
  setting_key VARCHAR(64) PRIMARY KEY,
  setting_value TEXT NOT NULL
);`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
