package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adampdxdotcom/GeordiLogger/internal/application"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/abnormalities"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/analysis"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/containers"
)

// Policy converts one container's classification into repository writes and
// a health store update. The read-then-write sequence it performs is only
// safe because the controller guarantees a single active scan; nothing else
// writes abnormality records on the scan path.
type Policy struct {
	Repo    abnormalities.Repository
	Store   *HealthStore
	Archive abnormalities.Archive // optional; nil disables log archiving
	Clock   application.Clock
}

// normalizeSnippet collapses all whitespace runs so trailing newlines or
// indentation differences never count as a distinct issue. Two snippets are
// the same issue exactly when their normalized forms are equal.
func normalizeSnippet(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sameIssue(a, b string) bool {
	return normalizeSnippet(a) == normalizeSnippet(b)
}

// Apply handles normal and abnormal classifications. Fetch and analysis
// failures never reach here; the executor routes those through Fail.
func (p *Policy) Apply(ctx context.Context, ref containers.Ref, c analysis.Classification, rawLogs string) Outcome {
	now := p.Clock.Now().UTC()

	recent, err := p.Repo.FindMostRecent(ctx, ref.ID)
	if err != nil {
		return p.Fail(ref, containers.StatusErrorPersistence, fmt.Errorf("lookup history: %w", err))
	}

	switch c.Verdict {
	case analysis.VerdictNormal:
		return p.applyNormal(ref, recent, now)
	case analysis.VerdictAbnormal:
		return p.applyAbnormal(ctx, ref, c, recent, rawLogs, now)
	default:
		return p.Fail(ref, containers.StatusErrorAnalysis, fmt.Errorf("unknown verdict %q", c.Verdict))
	}
}

func (p *Policy) applyNormal(ref containers.Ref, recent *abnormalities.Abnormality, now time.Time) Outcome {
	// An open record is never auto-resolved by a clean scan; resolution is
	// a human action. The container stays unhealthy, linked to the open
	// record, until an operator closes it.
	if recent != nil && recent.Status == abnormalities.StatusUnresolved {
		return p.setHealth(ref, containers.StatusUnhealthy, string(recent.ID), "", now)
	}

	linked := ""
	if recent != nil {
		// Keep the most recent closed record linked for the audit trail.
		linked = string(recent.ID)
	}
	return p.setHealth(ref, containers.StatusHealthy, linked, "", now)
}

func (p *Policy) applyAbnormal(ctx context.Context, ref containers.Ref, c analysis.Classification, recent *abnormalities.Abnormality, rawLogs string, now time.Time) Outcome {
	if recent != nil && recent.Status == abnormalities.StatusUnresolved {
		// One live issue per container: a distinct snippet while a record
		// is open extends that record rather than opening a second one.
		err := p.Repo.ExtendOpen(ctx, recent.ID, c.Analysis, now)
		switch {
		case err == nil:
			return p.setHealth(ref, containers.StatusUnhealthy, string(recent.ID), "", now)
		case errors.Is(err, abnormalities.ErrNoOpenRecord):
			// Closed between lookup and extend (operator action); treat
			// the detection as brand new.
			return p.create(ctx, ref, c, rawLogs, now)
		default:
			return p.Fail(ref, containers.StatusErrorPersistence, fmt.Errorf("extend record %s: %w", recent.ID, err))
		}
	}

	if recent != nil && recent.Status.Closed() && sameIssue(recent.LogSnippet, c.Snippet) {
		// Known, already-resolved problem resurfacing with the same
		// snippet: suppress, do not re-flag.
		return p.setHealth(ref, containers.StatusHealthy, string(recent.ID), "", now)
	}

	return p.create(ctx, ref, c, rawLogs, now)
}

func (p *Policy) create(ctx context.Context, ref containers.Ref, c analysis.Classification, rawLogs string, now time.Time) Outcome {
	rec := &abnormalities.Abnormality{
		ID:              abnormalities.ID(uuid.New().String()),
		ContainerID:     ref.ID,
		ContainerName:   ref.Name,
		LogSnippet:      c.Snippet,
		Analysis:        c.Analysis,
		Status:          abnormalities.StatusUnresolved,
		FirstDetectedAt: now,
		LastDetectedAt:  now,
	}

	if p.Archive != nil && rawLogs != "" {
		key := fmt.Sprintf("%s/%s.log", ref.Name, rec.ID)
		url, err := p.Archive.Store(ctx, key, []byte(rawLogs))
		if err != nil {
			// Archiving is best effort; the record is still created.
			log.Printf("log archive failed for %s: %v", ref.Name, err)
		} else {
			rec.LogArchiveURL = url
		}
	}

	if err := p.Repo.Create(ctx, rec); err != nil {
		return p.Fail(ref, containers.StatusErrorPersistence, fmt.Errorf("create record: %w", err))
	}
	return p.setHealth(ref, containers.StatusUnhealthy, string(rec.ID), "", now)
}

// Fail records an error_* status for the container without touching the
// abnormality repository.
func (p *Policy) Fail(ref containers.Ref, status containers.HealthStatus, err error) Outcome {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return p.setHealth(ref, status, "", detail, p.Clock.Now().UTC())
}

func (p *Policy) setHealth(ref containers.Ref, status containers.HealthStatus, linkedID, detail string, now time.Time) Outcome {
	p.Store.Upsert(ref.ID, func(h *containers.Health) {
		h.Name = ref.Name
		h.Status = status
		h.AbnormalityID = linkedID
		h.ErrorDetail = detail
		h.LastScanAt = now
	})
	return Outcome{
		ContainerID:   ref.ID,
		Name:          ref.Name,
		Status:        status,
		AbnormalityID: linkedID,
		Detail:        detail,
	}
}
