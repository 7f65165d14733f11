package abnormalities

import "time"

// ID tipe untuk Abnormality
type ID string

// Status enum
type Status string

const (
	StatusUnresolved Status = "unresolved"
	StatusResolved   Status = "resolved"
	StatusIgnored    Status = "ignored"
)

// Valid reports whether s is one of the persisted status values.
func (s Status) Valid() bool {
	switch s {
	case StatusUnresolved, StatusResolved, StatusIgnored:
		return true
	}
	return false
}

// Closed reports whether the record no longer counts as a live issue.
func (s Status) Closed() bool {
	return s == StatusResolved || s == StatusIgnored
}

// Aggregate Root: Abnormality
//
// At most one unresolved record may exist per container at any time; the
// scan path enforces this by extending the open record instead of creating
// a second one. Status transitions happen only through the management API.
type Abnormality struct {
	ID              ID        `json:"id"`
	ContainerID     string    `json:"container_id"`
	ContainerName   string    `json:"container_name"`
	LogSnippet      string    `json:"log_snippet"`
	Analysis        string    `json:"analysis"`
	Status          Status    `json:"status"`
	FirstDetectedAt time.Time `json:"first_detected_at"`
	LastDetectedAt  time.Time `json:"last_detected_at"`
	ResolutionNotes string    `json:"resolution_notes,omitempty"`
	LogArchiveURL   string    `json:"log_archive_url,omitempty"`
}
