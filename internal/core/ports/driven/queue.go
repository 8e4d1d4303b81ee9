package driven

import (
	"context"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

// JobQueue is the transport between the API surface and the agents. One
// logical queue exists per agent domain (see domain.Queue* constants).
// Retry and backoff policy belong to the transport, not to this platform:
// a handler that returns an error simply surfaces it to the queue.
type JobQueue interface {
	// Enqueue submits a payload (JSON-encoded) to the named queue and
	// returns the assigned job id.
	Enqueue(ctx context.Context, queue string, payload any) (string, error)

	// Dequeue blocks until a job is available on the named queue, the
	// context is cancelled, or the queue is closed
	// (domain.ErrQueueClosed).
	Dequeue(ctx context.Context, queue string) (*domain.Job, error)

	// Close releases the transport.
	Close() error
}
