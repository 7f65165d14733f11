package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/adampdxdotcom/GeordiLogger/internal/domain/abnormalities"
)

type AbnormalityRepository struct {
	db *sql.DB
}

func NewAbnormalityRepository(db *sql.DB) *AbnormalityRepository {
	return &AbnormalityRepository{db: db}
}

const abnormalityColumns = `id, container_id, container_name, log_snippet, analysis, status,
       first_detected_at, last_detected_at, resolution_notes, log_archive_url`

func (r *AbnormalityRepository) FindMostRecent(ctx context.Context, containerID string) (*domain.Abnormality, error) {
	const q = `
SELECT ` + abnormalityColumns + `
FROM abnormalities
WHERE container_id = $1
ORDER BY last_detected_at DESC, id DESC
LIMIT 1;`
	a, err := scanAbnormality(r.db.QueryRowContext(ctx, q, containerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *AbnormalityRepository) Create(ctx context.Context, a *domain.Abnormality) error {
	const q = `
INSERT INTO abnormalities
(id, container_id, container_name, log_snippet, analysis, status,
 first_detected_at, last_detected_at, resolution_notes, log_archive_url)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.ContainerID, a.ContainerName, a.LogSnippet, a.Analysis, a.Status,
		a.FirstDetectedAt, a.LastDetectedAt,
		nullIfEmpty(a.ResolutionNotes), nullIfEmpty(a.LogArchiveURL),
	)
	return err
}

func (r *AbnormalityRepository) ExtendOpen(ctx context.Context, id domain.ID, analysis string, at time.Time) error {
	const q = `
UPDATE abnormalities
SET last_detected_at = $1, analysis = $2
WHERE id = $3 AND status = 'unresolved';`
	res, err := r.db.ExecContext(ctx, q, at, analysis, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNoOpenRecord
	}
	return nil
}

func (r *AbnormalityRepository) Get(ctx context.Context, id domain.ID) (*domain.Abnormality, error) {
	const q = `
SELECT ` + abnormalityColumns + `
FROM abnormalities
WHERE id = $1 LIMIT 1;`
	return scanAbnormality(r.db.QueryRowContext(ctx, q, id))
}

func (r *AbnormalityRepository) UpdateStatus(ctx context.Context, id domain.ID, status domain.Status, notes string) error {
	if notes != "" {
		const q = `UPDATE abnormalities SET status = $1, resolution_notes = $2 WHERE id = $3;`
		_, err := r.db.ExecContext(ctx, q, status, notes, id)
		return err
	}
	const q = `UPDATE abnormalities SET status = $1 WHERE id = $2;`
	_, err := r.db.ExecContext(ctx, q, status, id)
	return err
}

func (r *AbnormalityRepository) ListRecentSince(ctx context.Context, since time.Time, limit int) ([]*domain.Abnormality, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + abnormalityColumns + `
FROM abnormalities
WHERE last_detected_at >= $1
ORDER BY last_detected_at DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAbnormalities(rows)
}

func (r *AbnormalityRepository) ListByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Abnormality, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		const q = `
SELECT ` + abnormalityColumns + `
FROM abnormalities
ORDER BY last_detected_at DESC
LIMIT $1;`
		rows, err = r.db.QueryContext(ctx, q, limit)
	} else {
		const q = `
SELECT ` + abnormalityColumns + `
FROM abnormalities
WHERE status = $1
ORDER BY last_detected_at DESC
LIMIT $2;`
		rows, err = r.db.QueryContext(ctx, q, status, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAbnormalities(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAbnormality(row rowScanner) (*domain.Abnormality, error) {
	var a domain.Abnormality
	var notes, archive sql.NullString
	if err := row.Scan(
		&a.ID, &a.ContainerID, &a.ContainerName, &a.LogSnippet, &a.Analysis, &a.Status,
		&a.FirstDetectedAt, &a.LastDetectedAt, &notes, &archive,
	); err != nil {
		return nil, err
	}
	a.ResolutionNotes = notes.String
	a.LogArchiveURL = archive.String
	return &a, nil
}

func collectAbnormalities(rows *sql.Rows) ([]*domain.Abnormality, error) {
	var out []*domain.Abnormality
	for rows.Next() {
		a, err := scanAbnormality(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
