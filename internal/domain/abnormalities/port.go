package abnormalities

import (
	"context"
	"errors"
	"time"
)

// ErrNoOpenRecord is returned by ExtendOpen when the target record is no
// longer unresolved.
var ErrNoOpenRecord = errors.New("no open abnormality record")

// Repository port (interface untuk persistence)
type Repository interface {
	// FindMostRecent returns the newest record for a container by
	// last_detected_at, or (nil, nil) when the container has no history.
	FindMostRecent(ctx context.Context, containerID string) (*Abnormality, error)
	Create(ctx context.Context, a *Abnormality) error
	// ExtendOpen bumps last_detected_at and replaces the analysis text of
	// an unresolved record.
	ExtendOpen(ctx context.Context, id ID, analysis string, at time.Time) error
	Get(ctx context.Context, id ID) (*Abnormality, error)
	UpdateStatus(ctx context.Context, id ID, status Status, notes string) error
	ListRecentSince(ctx context.Context, since time.Time, limit int) ([]*Abnormality, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Abnormality, error)
}

// Archive port for storing the full log text that triggered a record.
// Implementations upload the content and return a retrievable URL.
type Archive interface {
	Store(ctx context.Context, key string, content []byte) (string, error)
}
