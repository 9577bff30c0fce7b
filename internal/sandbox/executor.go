package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ppiankov/skillgate/internal/model"
	"github.com/ppiankov/skillgate/internal/tracer"
)

const (
	// DefaultMaxConcurrent bounds simultaneous sandboxed executions.
	DefaultMaxConcurrent = 4

	// DefaultQueueWait bounds how long a request waits for a free slot.
	DefaultQueueWait = 30 * time.Second

	// oomExitStatus is what container engines report for a memory-limit kill.
	oomExitStatus = 137

	provisionRetryDelay = 500 * time.Millisecond
	teardownTimeout     = 10 * time.Second
)

// Executor runs validated commands in sandboxed containers with a global
// concurrency ceiling.
type Executor struct {
	runtime   Runtime
	registry  *Registry
	sem       chan struct{}
	queueWait time.Duration
}

// NewExecutor returns an executor over the given runtime. Non-positive
// maxConcurrent and queueWait fall back to the defaults.
func NewExecutor(rt Runtime, reg *Registry, maxConcurrent int, queueWait time.Duration) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if queueWait <= 0 {
		queueWait = DefaultQueueWait
	}
	return &Executor{
		runtime:   rt,
		registry:  reg,
		sem:       make(chan struct{}, maxConcurrent),
		queueWait: queueWait,
	}
}

// Run executes cfg's command in a fresh container and returns the captured
// result. Abnormal endings that the caller should present as results
// (timeout, OOM kill, queue timeout) come back as results with the matching
// outcome; only infrastructure failures return an error. The container is
// removed on every exit path.
func (e *Executor) Run(ctx context.Context, cfg Config) (*model.ExecutionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Concurrency gate with its own wait budget.
	select {
	case e.sem <- struct{}{}:
	case <-time.After(e.queueWait):
		return &model.ExecutionResult{
			ExitStatus: -1,
			Outcome:    model.OutcomeQueueTimeout,
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-e.sem }()

	containerID, err := e.provision(ctx, cfg)
	if err != nil {
		return nil, err
	}

	execID := tracer.NewExecutionID()
	e.registry.Add(execID, containerID, time.Now().Add(cfg.Timeout))

	// Teardown is the only place that touches the registry entry and the
	// container; once.Do keeps it idempotent across exit paths.
	var once sync.Once
	teardown := func() {
		rctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		if err := e.runtime.Remove(rctx, containerID); err != nil {
			fmt.Fprintf(os.Stderr, "sandbox: teardown %s: %v\n", execID, err)
		}
		e.registry.Remove(execID)
	}
	defer once.Do(teardown)

	if err := e.runtime.Start(ctx, containerID); err != nil {
		return nil, err
	}

	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	exit, waitErr := e.runtime.Wait(runCtx, containerID)
	duration := time.Since(started)

	outcome := model.OutcomeCompleted
	switch {
	case waitErr == nil:
		if exit == oomExitStatus {
			outcome = model.OutcomeOOMKilled
		}
	case ctx.Err() != nil:
		// Caller cancelled; not a sandbox outcome.
		return nil, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		outcome = model.OutcomeTimeout
		exit = -1
	default:
		return nil, fmt.Errorf("sandbox: wait: %w", waitErr)
	}

	// Logs must be read before teardown removes the container. For a
	// timed-out run this snapshots whatever was written so far.
	stdout, stderr, truncated := e.collectLogs(containerID, cfg.OutputLimitKB)

	return &model.ExecutionResult{
		ExitStatus: exit,
		Stdout:     stdout,
		Stderr:     stderr,
		DurationMS: duration.Milliseconds(),
		Truncated:  truncated,
		Outcome:    outcome,
	}, nil
}

// provision creates the container, retrying once: transient engine errors
// (image pull races, briefly exhausted resources) resolve on the second
// attempt or not at all.
func (e *Executor) provision(ctx context.Context, cfg Config) (string, error) {
	id, err := e.runtime.Create(ctx, cfg)
	if err == nil {
		return id, nil
	}

	select {
	case <-time.After(provisionRetryDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	id, retryErr := e.runtime.Create(ctx, cfg)
	if retryErr != nil {
		return "", fmt.Errorf("sandbox: provision failed after retry: %w", retryErr)
	}
	return id, nil
}

// collectLogs is best-effort: a result without output beats no result.
func (e *Executor) collectLogs(containerID string, limitKB int) (stdout, stderr []byte, truncated bool) {
	outBuf := newBoundedBuffer(limitKB * 1024)
	errBuf := newBoundedBuffer(limitKB * 1024)

	lctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if err := e.runtime.Logs(lctx, containerID, outBuf, errBuf); err != nil {
		fmt.Fprintf(os.Stderr, "sandbox: collect logs: %v\n", err)
	}
	return outBuf.Bytes(), errBuf.Bytes(), outBuf.Truncated() || errBuf.Truncated()
}
