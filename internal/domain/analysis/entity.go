package analysis

// Verdict enum
type Verdict string

const (
	VerdictNormal   Verdict = "normal"
	VerdictAbnormal Verdict = "abnormal"
)

// Classification is the outcome of running one container's logs through the
// inference service. Snippet and Analysis are only set for abnormal verdicts.
type Classification struct {
	Verdict  Verdict `json:"verdict"`
	Snippet  string  `json:"snippet,omitempty"`
	Analysis string  `json:"analysis,omitempty"`
}

// Normal is the classification for clean logs.
var Normal = Classification{Verdict: VerdictNormal}

// Abnormal builds an abnormal classification.
func Abnormal(snippet, analysisText string) Classification {
	return Classification{Verdict: VerdictAbnormal, Snippet: snippet, Analysis: analysisText}
}
