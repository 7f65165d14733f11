package containers

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a container disappears between listing and
// log fetch.
var ErrNotFound = errors.New("container not found")

// ErrConnection indicates the container platform itself is unreachable.
var ErrConnection = errors.New("container platform unreachable")

// LogProvider port (interface to the container platform)
type LogProvider interface {
	ListActive(ctx context.Context) ([]Ref, error)
	RecentLogs(ctx context.Context, containerID string, tailLines int) (string, error)
}
