package mysql

import (
	"context"
	"database/sql"

	domain "github.com/adampdxdotcom/GeordiLogger/internal/domain/summaries"
)

type SummaryRepository struct {
	db *sql.DB
}

func NewSummaryRepository(db *sql.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) Save(ctx context.Context, s *domain.Summary) error {
	const q = `
INSERT INTO summary_history (generated_at, summary_text, error_text, status)
VALUES (?,?,?,?);`
	res, err := r.db.ExecContext(ctx, q,
		s.GeneratedAt, nullIfEmpty(s.Text), nullIfEmpty(s.ErrorText), s.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err == nil {
		s.ID = id
	}
	return nil
}

func (r *SummaryRepository) Latest(ctx context.Context, limit int) ([]*domain.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, generated_at, summary_text, error_text, status
FROM summary_history
ORDER BY generated_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Summary
	for rows.Next() {
		var s domain.Summary
		var text, errText sql.NullString
		if err := rows.Scan(&s.ID, &s.GeneratedAt, &text, &errText, &s.Status); err != nil {
			return nil, err
		}
		s.Text = text.String
		s.ErrorText = errText.String
		out = append(out, &s)
	}
	return out, rows.Err()
}
