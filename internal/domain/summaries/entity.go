package summaries

import "time"

// Status enum
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Summary is one timestamped AI health summary attempt. Exactly one of
// Text and ErrorText is set for success/error; skipped records carry the
// skip reason in ErrorText.
type Summary struct {
	ID          int64     `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Text        string    `json:"text,omitempty"`
	ErrorText   string    `json:"error_text,omitempty"`
	Status      Status    `json:"status"`
}
