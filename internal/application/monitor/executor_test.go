package monitor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adampdxdotcom/GeordiLogger/internal/application/monitor"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/analysis"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/containers"
	"github.com/adampdxdotcom/GeordiLogger/internal/domain/settings"
)

func newExecutor(provider *fakeProvider, classifier *fakeClassifier, repo *fakeRepo) (*monitor.Executor, *monitor.HealthStore) {
	clock := fixedClock{time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := monitor.NewHealthStore()
	return &monitor.Executor{
		Provider:   provider,
		Classifier: classifier,
		Policy:     &monitor.Policy{Repo: repo, Store: store, Clock: clock},
		Store:      store,
		Clock:      clock,
	}, store
}

func TestRunOnceIsolatesFailures(t *testing.T) {
	provider := &fakeProvider{
		refs: []containers.Ref{
			{ID: "c1", Name: "broken"},
			{ID: "c2", Name: "web"},
			{ID: "c3", Name: "flaky-model"},
		},
		logs:    map[string]string{"c2": "all good", "c3": "some logs"},
		logsErr: map[string]error{"c1": errors.New("daemon unreachable")},
	}
	classifier := &fakeClassifier{
		classifyFn: func(ctx context.Context, logs string) (analysis.Classification, error) {
			if logs == "some logs" {
				return analysis.Classification{}, errors.New("model timeout")
			}
			return analysis.Normal, nil
		},
	}
	exec, store := newExecutor(provider, classifier, newFakeRepo())

	run := exec.RunOnce(context.Background(), provider.refs, settings.Defaults())

	require.False(t, run.Cancelled)
	require.Len(t, run.Outcomes, 3)
	require.Equal(t, containers.StatusErrorFetch, run.Outcomes[0].Status)
	require.Equal(t, containers.StatusHealthy, run.Outcomes[1].Status)
	require.Equal(t, containers.StatusErrorAnalysis, run.Outcomes[2].Status)
	require.Equal(t, 2, run.Errors())

	h, _ := store.Get("c1")
	require.Contains(t, h.ErrorDetail, "daemon unreachable")
}

func TestRunOnceEmptyLogsAreHealthy(t *testing.T) {
	provider := &fakeProvider{
		refs: []containers.Ref{{ID: "c1", Name: "quiet"}},
		logs: map[string]string{},
	}
	classifier := &fakeClassifier{
		classifyFn: func(ctx context.Context, logs string) (analysis.Classification, error) {
			t.Fatal("classifier must not be called for empty logs")
			return analysis.Normal, nil
		},
	}
	exec, _ := newExecutor(provider, classifier, newFakeRepo())

	run := exec.RunOnce(context.Background(), provider.refs, settings.Defaults())

	require.Len(t, run.Outcomes, 1)
	require.Equal(t, containers.StatusHealthy, run.Outcomes[0].Status)
}

func TestRunOnceSkipsIgnoredContainers(t *testing.T) {
	provider := &fakeProvider{
		refs: []containers.Ref{
			{ID: "c1", Name: "web"},
			{ID: "c2", Name: "noisy-cron"},
		},
		logs: map[string]string{"c1": "fine", "c2": "ERROR everywhere"},
	}
	exec, store := newExecutor(provider, &fakeClassifier{}, newFakeRepo())

	// Entry from an earlier scan, before the operator ignored it.
	store.Upsert("c2", func(h *containers.Health) { h.Name = "noisy-cron" })

	st := settings.Defaults()
	st.IgnoredContainers = []string{"noisy-cron"}
	run := exec.RunOnce(context.Background(), provider.refs, st)

	require.Len(t, run.Outcomes, 1)
	require.Equal(t, "c1", run.Outcomes[0].ContainerID)
	_, ok := store.Get("c2")
	require.False(t, ok, "ignored containers disappear from the dashboard")
}

func TestRunOncePrunesGoneContainers(t *testing.T) {
	provider := &fakeProvider{
		refs: []containers.Ref{{ID: "c1", Name: "web"}},
		logs: map[string]string{"c1": "fine"},
	}
	exec, store := newExecutor(provider, &fakeClassifier{}, newFakeRepo())
	store.Upsert("gone", func(h *containers.Health) { h.Name = "removed-service" })

	exec.RunOnce(context.Background(), provider.refs, settings.Defaults())

	_, ok := store.Get("gone")
	require.False(t, ok)
	_, ok = store.Get("c1")
	require.True(t, ok)
}

func TestRunOnceCancellationStopsBetweenContainers(t *testing.T) {
	refs := []containers.Ref{
		{ID: "c1", Name: "one"},
		{ID: "c2", Name: "two"},
		{ID: "c3", Name: "three"},
	}
	provider := &fakeProvider{
		refs: refs,
		logs: map[string]string{"c1": "a", "c2": "b", "c3": "c"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	classifier := &fakeClassifier{
		classifyFn: func(_ context.Context, logs string) (analysis.Classification, error) {
			if logs == "a" {
				// Cancel while the first container is in flight; its result
				// must still be recorded.
				cancel()
			}
			return analysis.Normal, nil
		},
	}
	exec, _ := newExecutor(provider, classifier, newFakeRepo())

	run := exec.RunOnce(ctx, refs, settings.Defaults())

	require.True(t, run.Cancelled)
	require.Len(t, run.Outcomes, 1)
	require.Equal(t, containers.StatusHealthy, run.Outcomes[0].Status)
}

func TestRunOnceAlreadyCancelled(t *testing.T) {
	provider := &fakeProvider{
		refs: []containers.Ref{{ID: "c1", Name: "web"}},
		logs: map[string]string{"c1": "fine"},
	}
	exec, _ := newExecutor(provider, &fakeClassifier{}, newFakeRepo())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run := exec.RunOnce(ctx, provider.refs, settings.Defaults())

	require.True(t, run.Cancelled)
	require.Empty(t, run.Outcomes)
}
