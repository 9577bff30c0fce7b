package sandbox

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by runtime operations on a container that no
// longer exists. Teardown treats it as success.
var ErrNotFound = errors.New("sandbox: container not found")

// Runtime is the container engine surface the executor needs. One real
// implementation drives the docker CLI; tests use an in-memory fake.
type Runtime interface {
	// Create provisions a stopped container and returns its ID.
	Create(ctx context.Context, cfg Config) (string, error)

	// Start begins execution of a created container.
	Start(ctx context.Context, id string) error

	// Wait blocks until the container exits and returns its exit status.
	Wait(ctx context.Context, id string) (int, error)

	// Logs copies the container's stdout and stderr into the writers.
	Logs(ctx context.Context, id string, stdout, stderr io.Writer) error

	// Remove force-removes the container. Idempotent: removing a container
	// that is already gone returns nil.
	Remove(ctx context.Context, id string) error
}
