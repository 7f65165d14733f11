package monitor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adampdxdotcom/GeordiLogger/internal/application/monitor"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/abnormalities"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/analysis"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/containers"
)

var web = containers.Ref{ID: "c1", Name: "web"}

func newPolicy(repo *fakeRepo, now time.Time) (*monitor.Policy, *monitor.HealthStore) {
	store := monitor.NewHealthStore()
	return &monitor.Policy{
		Repo:  repo,
		Store: store,
		Clock: fixedClock{now},
	}, store
}

func TestApplyAbnormalCreatesRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, store := newPolicy(repo, now)

	out := p.Apply(context.Background(), web, analysis.Abnormal("OOM killed", "ERROR: out of memory"), "raw logs")

	require.Equal(t, containers.StatusUnhealthy, out.Status)
	require.Equal(t, 1, repo.count())

	rec := repo.only()
	require.Equal(t, abnormalities.StatusUnresolved, rec.Status)
	require.Equal(t, "OOM killed", rec.LogSnippet)
	require.Equal(t, "web", rec.ContainerName)
	require.Equal(t, now, rec.FirstDetectedAt)
	require.Equal(t, now, rec.LastDetectedAt)
	require.Equal(t, string(rec.ID), out.AbnormalityID)

	h, ok := store.Get("c1")
	require.True(t, ok)
	require.Equal(t, containers.StatusUnhealthy, h.Status)
	require.Equal(t, string(rec.ID), h.AbnormalityID)
}

func TestApplyAbnormalExtendsOpenRecord(t *testing.T) {
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	repo := newFakeRepo()

	p, _ := newPolicy(repo, first)
	out1 := p.Apply(context.Background(), web, analysis.Abnormal("OOM killed", "ERROR: oom"), "")

	// Same issue seen again an hour later.
	p.Clock = fixedClock{second}
	out2 := p.Apply(context.Background(), web, analysis.Abnormal("OOM killed", "ERROR: oom again"), "")

	require.Equal(t, 1, repo.count(), "repeat detection must not open a second record")
	require.Equal(t, out1.AbnormalityID, out2.AbnormalityID)

	rec := repo.only()
	require.Equal(t, first, rec.FirstDetectedAt)
	require.Equal(t, second, rec.LastDetectedAt)
	require.Equal(t, "ERROR: oom again", rec.Analysis)
	require.Equal(t, "OOM killed", rec.LogSnippet, "original snippet is kept")
}

func TestApplyAbnormalDistinctSnippetExtendsOpenRecord(t *testing.T) {
	// While a record is open, a different snippet still extends it: one
	// live issue per container.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, _ := newPolicy(repo, now)

	p.Apply(context.Background(), web, analysis.Abnormal("disk full", "ERROR: disk"), "")
	out := p.Apply(context.Background(), web, analysis.Abnormal("segfault in worker", "ERROR: crash"), "")

	require.Equal(t, containers.StatusUnhealthy, out.Status)
	require.Equal(t, 1, repo.count())
	require.Equal(t, "ERROR: crash", repo.only().Analysis)
}

func TestApplyAbnormalRecordClosedMidScan(t *testing.T) {
	// Operator resolves between the lookup and the extend; the detection
	// is treated as brand new.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, _ := newPolicy(repo, now)

	p.Apply(context.Background(), web, analysis.Abnormal("disk full", "ERROR: disk"), "")
	old := repo.only()

	repo.extendErr = abnormalities.ErrNoOpenRecord
	out := p.Apply(context.Background(), web, analysis.Abnormal("disk still full", "ERROR: disk"), "")

	require.Equal(t, containers.StatusUnhealthy, out.Status)
	require.Equal(t, 2, repo.count())
	require.NotEqual(t, string(old.ID), out.AbnormalityID)
}

func TestApplyNormalNoHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, store := newPolicy(repo, now)

	out := p.Apply(context.Background(), web, analysis.Normal, "")

	require.Equal(t, containers.StatusHealthy, out.Status)
	require.Empty(t, out.AbnormalityID)
	h, _ := store.Get("c1")
	require.Equal(t, now, h.LastScanAt)
}

func TestApplyNormalWithOpenRecordStaysUnhealthy(t *testing.T) {
	// A clean scan never auto-resolves an open record.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, _ := newPolicy(repo, now)

	p.Apply(context.Background(), web, analysis.Abnormal("OOM killed", "ERROR: oom"), "")
	rec := repo.only()

	out := p.Apply(context.Background(), web, analysis.Normal, "")

	require.Equal(t, containers.StatusUnhealthy, out.Status)
	require.Equal(t, string(rec.ID), out.AbnormalityID)
	require.Equal(t, abnormalities.StatusUnresolved, repo.only().Status)
}

func TestApplyNormalAfterResolutionIsHealthy(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, _ := newPolicy(repo, now)

	p.Apply(context.Background(), web, analysis.Abnormal("OOM killed", "ERROR: oom"), "")
	rec := repo.only()
	require.NoError(t, repo.UpdateStatus(context.Background(), rec.ID, abnormalities.StatusResolved, "restarted"))

	out := p.Apply(context.Background(), web, analysis.Normal, "")

	require.Equal(t, containers.StatusHealthy, out.Status)
	require.Equal(t, string(rec.ID), out.AbnormalityID, "closed record stays linked for the audit trail")
}

func TestApplyAbnormalSuppressedAfterResolution(t *testing.T) {
	// The same snippet resurfacing after the operator resolved it is a
	// known issue: healthy, no new record.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, _ := newPolicy(repo, now)

	p.Apply(context.Background(), web, analysis.Abnormal("OOM killed", "ERROR: oom"), "")
	rec := repo.only()
	require.NoError(t, repo.UpdateStatus(context.Background(), rec.ID, abnormalities.StatusResolved, ""))

	out := p.Apply(context.Background(), web, analysis.Abnormal("  OOM   killed \n", "ERROR: oom"), "")

	require.Equal(t, containers.StatusHealthy, out.Status, "whitespace differences are not a distinct issue")
	require.Equal(t, string(rec.ID), out.AbnormalityID)
	require.Equal(t, 1, repo.count())
}

func TestApplyAbnormalDistinctAfterResolutionCreatesNew(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, _ := newPolicy(repo, now)

	p.Apply(context.Background(), web, analysis.Abnormal("OOM killed", "ERROR: oom"), "")
	rec := repo.only()
	require.NoError(t, repo.UpdateStatus(context.Background(), rec.ID, abnormalities.StatusIgnored, ""))

	out := p.Apply(context.Background(), web, analysis.Abnormal("disk full", "ERROR: disk"), "")

	require.Equal(t, containers.StatusUnhealthy, out.Status)
	require.Equal(t, 2, repo.count())
	require.NotEqual(t, string(rec.ID), out.AbnormalityID)
}

func TestApplyLookupFailureMarksPersistenceError(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.findErr = errors.New("connection reset")
	p, store := newPolicy(repo, now)

	out := p.Apply(context.Background(), web, analysis.Abnormal("x", "y"), "")

	require.Equal(t, containers.StatusErrorPersistence, out.Status)
	require.Contains(t, out.Detail, "connection reset")
	require.Equal(t, 0, repo.count())
	h, _ := store.Get("c1")
	require.Equal(t, containers.StatusErrorPersistence, h.Status)
}

func TestApplyCreateFailureMarksPersistenceError(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.createErr = errors.New("disk full")
	p, _ := newPolicy(repo, now)

	out := p.Apply(context.Background(), web, analysis.Abnormal("x", "y"), "")

	require.Equal(t, containers.StatusErrorPersistence, out.Status)
	require.Contains(t, out.Detail, "disk full")
}

func TestApplyArchivesRawLogsOnCreate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, _ := newPolicy(repo, now)
	archive := &fakeArchive{}
	p.Archive = archive

	p.Apply(context.Background(), web, analysis.Abnormal("OOM killed", "ERROR: oom"), "full raw logs here")

	rec := repo.only()
	require.NotEmpty(t, rec.LogArchiveURL)
	require.Len(t, archive.keys, 1)
	require.Contains(t, archive.keys[0], "web/")
}

func TestApplyArchiveFailureIsBestEffort(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	p, _ := newPolicy(repo, now)
	p.Archive = &fakeArchive{err: errors.New("bucket gone")}

	out := p.Apply(context.Background(), web, analysis.Abnormal("OOM killed", "ERROR: oom"), "raw")

	require.Equal(t, containers.StatusUnhealthy, out.Status)
	rec := repo.only()
	require.NotNil(t, rec)
	require.Empty(t, rec.LogArchiveURL)
}
