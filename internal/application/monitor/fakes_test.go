package monitor_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/adampdxdotcom/GeordiLogger/internal/domain/abnormalities"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/analysis"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/containers"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/summaries"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// fakeRepo is an in-memory abnormalities.Repository.
type fakeRepo struct {
	mu      sync.Mutex
	records map[abnormalities.ID]*abnormalities.Abnormality

	findErr   error
	createErr error
	extendErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[abnormalities.ID]*abnormalities.Abnormality)}
}

func (r *fakeRepo) FindMostRecent(ctx context.Context, containerID string) (*abnormalities.Abnormality, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var best *abnormalities.Abnormality
	for _, a := range r.records {
		if a.ContainerID != containerID {
			continue
		}
		if best == nil || a.LastDetectedAt.After(best.LastDetectedAt) {
			best = a
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *fakeRepo) Create(ctx context.Context, a *abnormalities.Abnormality) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *a
	r.records[a.ID] = &cp
	return nil
}

func (r *fakeRepo) ExtendOpen(ctx context.Context, id abnormalities.ID, analysisText string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.extendErr != nil {
		return r.extendErr
	}
	a, ok := r.records[id]
	if !ok || a.Status != abnormalities.StatusUnresolved {
		return abnormalities.ErrNoOpenRecord
	}
	a.Analysis = analysisText
	a.LastDetectedAt = at
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id abnormalities.ID) (*abnormalities.Abnormality, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id abnormalities.ID, status abnormalities.Status, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	a.ResolutionNotes = notes
	return nil
}

func (r *fakeRepo) ListRecentSince(ctx context.Context, since time.Time, limit int) ([]*abnormalities.Abnormality, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*abnormalities.Abnormality
	for _, a := range r.records {
		if a.LastDetectedAt.Before(since) {
			continue
		}
		cp := *a
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByStatus(ctx context.Context, status abnormalities.Status, limit int) ([]*abnormalities.Abnormality, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*abnormalities.Abnormality
	for _, a := range r.records {
		if status != "" && a.Status != status {
			continue
		}
		cp := *a
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *fakeRepo) only() *abnormalities.Abnormality {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.records {
		cp := *a
		return &cp
	}
	return nil
}

// fakeArchive records stored keys and returns a predictable URL.
type fakeArchive struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (a *fakeArchive) Store(ctx context.Context, key string, content []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.keys = append(a.keys, key)
	return "http://archive.local/" + key, nil
}

// fakeProvider serves canned listings and per-container logs.
type fakeProvider struct {
	mu      sync.Mutex
	refs    []containers.Ref
	logs    map[string]string
	logsErr map[string]error
	listErr error
}

func (p *fakeProvider) ListActive(ctx context.Context) ([]containers.Ref, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	return append([]containers.Ref(nil), p.refs...), nil
}

func (p *fakeProvider) RecentLogs(ctx context.Context, containerID string, tailLines int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.logsErr[containerID]; err != nil {
		return "", err
	}
	return p.logs[containerID], nil
}

// fakeClassifier delegates to per-test funcs.
type fakeClassifier struct {
	classifyFn  func(ctx context.Context, logs string) (analysis.Classification, error)
	summarizeFn func(ctx context.Context, recent []*abnormalities.Abnormality) (string, error)
}

func (c *fakeClassifier) Classify(ctx context.Context, logs, model, prompt string) (analysis.Classification, error) {
	if c.classifyFn == nil {
		return analysis.Normal, nil
	}
	return c.classifyFn(ctx, logs)
}

func (c *fakeClassifier) Summarize(ctx context.Context, recent []*abnormalities.Abnormality, model string) (string, error) {
	if c.summarizeFn == nil {
		return "all quiet", nil
	}
	return c.summarizeFn(ctx, recent)
}

func (c *fakeClassifier) ListModels(ctx context.Context) ([]string, error) {
	return []string{"phi3"}, nil
}

// fakeSummaryRepo captures saved summary records.
type fakeSummaryRepo struct {
	mu    sync.Mutex
	saved []*summaries.Summary
}

func (r *fakeSummaryRepo) Save(ctx context.Context, s *summaries.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.saved = append(r.saved, &cp)
	return nil
}

func (r *fakeSummaryRepo) Latest(ctx context.Context, limit int) ([]*summaries.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]*summaries.Summary(nil), r.saved...)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *fakeSummaryRepo) lastSaved() *summaries.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return nil
	}
	cp := *r.saved[len(r.saved)-1]
	return &cp
}

// fakeSettingsRepo is an in-memory settings key/value store.
type fakeSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{values: make(map[string]string)}
}

func (r *fakeSettingsRepo) Load(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

func (r *fakeSettingsRepo) Save(ctx context.Context, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range values {
		r.values[k] = v
	}
	return nil
}
