package summaries

import "context"

// Repository port for summary history
type Repository interface {
	Save(ctx context.Context, s *Summary) error
	Latest(ctx context.Context, limit int) ([]*Summary, error)
}
