package monitor

import (
	"time"

	"github.com/adampdxdotcom/GeordiLogger/internal/domain/containers"
)

// Outcome records what happened to a single container during one run.
type Outcome struct {
	ContainerID   string                  `json:"container_id"`
	Name          string                  `json:"name"`
	Status        containers.HealthStatus `json:"status"`
	AbnormalityID string                  `json:"abnormality_id,omitempty"`
	Detail        string                  `json:"detail,omitempty"`
}

// ScanRun is the ephemeral result of one executor pass. It is complete even
// when the run was cancelled: outcomes exist for every container processed
// before the cancellation signal was observed.
type ScanRun struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Cancelled   bool      `json:"cancelled"`
	Outcomes    []Outcome `json:"outcomes"`
}

// Unhealthy counts outcomes flagged unhealthy.
func (r *ScanRun) Unhealthy() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == containers.StatusUnhealthy {
			n++
		}
	}
	return n
}

// Errors counts outcomes that ended in an error_* status.
func (r *ScanRun) Errors() int {
	n := 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case containers.StatusErrorFetch, containers.StatusErrorAnalysis, containers.StatusErrorPersistence:
			n++
		}
	}
	return n
}
