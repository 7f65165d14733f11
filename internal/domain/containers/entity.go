package containers

import (
	"time"
)

// Ref identifies a running container as reported by the platform.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HealthStatus enum
type HealthStatus string

const (
	StatusPending          HealthStatus = "pending"
	StatusHealthy          HealthStatus = "healthy"
	StatusUnhealthy        HealthStatus = "unhealthy"
	StatusAwaitingScan     HealthStatus = "awaiting_scan"
	StatusErrorFetch       HealthStatus = "error_fetch"
	StatusErrorAnalysis    HealthStatus = "error_analysis"
	StatusErrorPersistence HealthStatus = "error_persistence"
)

// Health is the in-memory health view for a single container.
// Invariant: Status == unhealthy implies AbnormalityID references an
// unresolved record.
type Health struct {
	ContainerID   string       `json:"container_id"`
	Name          string       `json:"name"`
	Status        HealthStatus `json:"status"`
	AbnormalityID string       `json:"abnormality_id,omitempty"`
	ErrorDetail   string       `json:"error_detail,omitempty"`
	LastScanAt    time.Time    `json:"last_scan_at"`
}
