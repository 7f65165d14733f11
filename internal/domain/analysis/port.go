package analysis

import (
	"context"

	"github.com/adampdxdotcom/GeordiLogger/internal/domain/abnormalities"
)

// Classifier port (interface to the inference service)
type Classifier interface {
	// Classify runs the logs through the model. Inference failures are
	// returned as errors, never as classifications.
	Classify(ctx context.Context, logs, model, prompt string) (Classification, error)
	// Summarize produces a short health summary over recent records.
	Summarize(ctx context.Context, recent []*abnormalities.Abnormality, model string) (string, error)
	// ListModels returns the model names available on the provider.
	ListModels(ctx context.Context) ([]string, error)
}
