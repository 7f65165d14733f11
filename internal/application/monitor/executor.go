package monitor

import (
	"context"
	"fmt"
	"log"

	"github.com/adampdxdotcom/GeordiLogger/internal/application"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/analysis"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/containers"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/settings"
)

// Executor runs one scan pass over a set of containers. Failures are
// isolated per container: a bad fetch or a classifier error is recorded as
// that container's outcome and the pass moves on.
type Executor struct {
	Provider   containers.LogProvider
	Classifier analysis.Classifier
	Policy     *Policy
	Store      *HealthStore
	Clock      application.Clock
}

// RunOnce scans every listed container not in the ignore set. The ctx
// cancellation signal is checked between containers only; per-container
// I/O runs on a detached context so already-dispatched work always
// finishes. The returned ScanRun is complete even when cancelled.
func (e *Executor) RunOnce(ctx context.Context, refs []containers.Ref, st settings.Settings) *ScanRun {
	run := &ScanRun{StartedAt: e.Clock.Now().UTC()}
	ioCtx := context.WithoutCancel(ctx)
	ignored := st.IgnoreSet()

	keep := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ignored[ref.Name] {
			continue
		}
		keep[ref.ID] = true
	}

	for _, ref := range refs {
		if ctx.Err() != nil {
			run.Cancelled = true
			log.Printf("scan cancelled after %d containers", len(run.Outcomes))
			break
		}
		if ignored[ref.Name] {
			e.Store.Remove(ref.ID)
			continue
		}

		run.Outcomes = append(run.Outcomes, e.scanOne(ioCtx, ref, st))
	}

	// Prune containers that are gone. The listing is authoritative even on
	// a cancelled run, so pruning stays safe either way.
	e.Store.RetainOnly(keep)

	run.CompletedAt = e.Clock.Now().UTC()
	return run
}

func (e *Executor) scanOne(ctx context.Context, ref containers.Ref, st settings.Settings) Outcome {
	logs, err := e.Provider.RecentLogs(ctx, ref.ID, st.LogLines)
	if err != nil {
		return e.Policy.Fail(ref, containers.StatusErrorFetch, fmt.Errorf("fetch logs: %w", err))
	}
	if logs == "" {
		// Nothing to analyze; silence is healthy.
		return e.Policy.Apply(ctx, ref, analysis.Normal, "")
	}

	cls, err := e.Classifier.Classify(ctx, logs, st.Model, st.AnalysisPrompt)
	if err != nil {
		return e.Policy.Fail(ref, containers.StatusErrorAnalysis, fmt.Errorf("classify: %w", err))
	}

	return e.Policy.Apply(ctx, ref, cls, logs)
}
