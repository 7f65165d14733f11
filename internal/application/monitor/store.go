package monitor

import (
	"sort"
	"strings"
	"sync"

	"github.com/adampdxdotcom/GeordiLogger/internal/domain/containers"
)

// HealthStore is the single source of truth for per-container health. It is
// mutated by the scan worker and by management calls, and read by the API
// layer; every operation holds the lock for no longer than a map copy and
// never performs I/O.
type HealthStore struct {
	mu      sync.RWMutex
	entries map[string]containers.Health
}

func NewHealthStore() *HealthStore {
	return &HealthStore{entries: make(map[string]containers.Health)}
}

// Snapshot returns a copy of every entry ordered by container name. Callers
// receive values, never references into the store.
func (s *HealthStore) Snapshot() []containers.Health {
	s.mu.RLock()
	out := make([]containers.Health, 0, len(s.entries))
	for _, h := range s.entries {
		out = append(out, h)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Get returns the entry for a container, if present.
func (s *HealthStore) Get(containerID string) (containers.Health, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.entries[containerID]
	return h, ok
}

// Upsert applies mutate to the entry for containerID under the lock,
// creating a pending entry first if the container was never seen.
func (s *HealthStore) Upsert(containerID string, mutate func(*containers.Health)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.entries[containerID]
	if !ok {
		h = containers.Health{ContainerID: containerID, Status: containers.StatusPending}
	}
	mutate(&h)
	h.ContainerID = containerID
	s.entries[containerID] = h
}

// Remove drops a container that is no longer observed.
func (s *HealthStore) Remove(containerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, containerID)
}

// MarkAwaitingScan flags a container as awaiting the next scan. Called right
// after an operator resolves or ignores an issue so the dashboard shows a
// transitional state instead of a stale "unhealthy".
func (s *HealthStore) MarkAwaitingScan(containerID string) {
	s.Upsert(containerID, func(h *containers.Health) {
		h.Status = containers.StatusAwaitingScan
		h.ErrorDetail = ""
	})
}

// RetainOnly removes every entry whose container ID is not in keep.
// The scan worker calls this after a complete listing so containers that
// stopped disappear from the dashboard.
func (s *HealthStore) RetainOnly(keep map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.entries {
		if !keep[id] {
			delete(s.entries, id)
		}
	}
}
