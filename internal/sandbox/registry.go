package sandbox

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// reapGrace is how far past its deadline an execution may run before the
// reaper force-removes it. The executor's own timeout handling fires first;
// the reaper only catches executions whose goroutine died with them.
const reapGrace = 30 * time.Second

type registered struct {
	containerID string
	deadline    time.Time
}

// Registry tracks live executions by execution ID so that nothing outlives
// its deadline even if the owning goroutine is gone.
type Registry struct {
	mu      sync.Mutex
	entries map[string]registered
	runtime Runtime
}

// NewRegistry returns an empty registry reaping through the given runtime.
func NewRegistry(rt Runtime) *Registry {
	return &Registry{
		entries: make(map[string]registered),
		runtime: rt,
	}
}

// Add registers a running container under its execution ID.
func (r *Registry) Add(execID, containerID string, deadline time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[execID] = registered{containerID: containerID, deadline: deadline}
}

// Remove drops an execution from the registry. Called only from the
// teardown path so the reaper and normal completion cannot race a removal.
func (r *Registry) Remove(execID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, execID)
}

// Len returns the number of live executions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reap force-removes every execution whose deadline passed more than
// reapGrace ago, and returns how many were reaped.
func (r *Registry) Reap(ctx context.Context, now time.Time) int {
	r.mu.Lock()
	var overdue []string
	for id, e := range r.entries {
		if now.After(e.deadline.Add(reapGrace)) {
			overdue = append(overdue, id)
		}
	}
	r.mu.Unlock()

	reaped := 0
	for _, id := range overdue {
		r.mu.Lock()
		e, ok := r.entries[id]
		r.mu.Unlock()
		if !ok {
			continue
		}
		if err := r.runtime.Remove(ctx, e.containerID); err != nil {
			slog.Warn("sandbox: reap failed", "execution_id", id, "error", err)
			continue
		}
		r.Remove(id)
		reaped++
		slog.Info("sandbox: reaped overdue execution", "execution_id", id)
	}
	return reaped
}

// Run scans for overdue executions every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Reap(ctx, now)
		}
	}
}
