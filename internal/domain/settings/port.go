package settings

import "context"

// Repository port backed by the key/value settings table. Load returns only
// the keys present in storage; merging over Defaults is the service's job.
type Repository interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
}
