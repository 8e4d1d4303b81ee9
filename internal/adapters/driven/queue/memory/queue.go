// Package memory provides an in-process job queue backed by channels.
// It is the default transport for single-binary deployments and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.JobQueue = (*Queue)(nil)

// DefaultCapacity is the per-queue channel buffer size.
const DefaultCapacity = 256

// Queue is a channel-backed job queue. Each logical queue name gets its
// own buffered channel, created on first use.
type Queue struct {
	mu       sync.Mutex
	queues   map[string]chan *domain.Job
	capacity int
	closed   bool
	done     chan struct{}
}

// NewQueue creates an in-memory queue with the default capacity.
func NewQueue() *Queue {
	return NewQueueWithCapacity(DefaultCapacity)
}

// NewQueueWithCapacity creates an in-memory queue with a specific
// per-queue buffer size.
func NewQueueWithCapacity(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		queues:   make(map[string]chan *domain.Job),
		capacity: capacity,
		done:     make(chan struct{}),
	}
}

// channel returns the channel for a queue name, creating it if needed.
func (q *Queue) channel(name string) (chan *domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, domain.ErrQueueClosed
	}
	ch, ok := q.queues[name]
	if !ok {
		ch = make(chan *domain.Job, q.capacity)
		q.queues[name] = ch
	}
	return ch, nil
}

// Enqueue submits a payload to the named queue.
func (q *Queue) Enqueue(ctx context.Context, queue string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshalling payload: %w", err)
	}

	ch, err := q.channel(queue)
	if err != nil {
		return "", err
	}

	job := &domain.Job{
		ID:         uuid.New().String(),
		Queue:      queue,
		Payload:    body,
		EnqueuedAt: time.Now().UTC(),
	}

	select {
	case ch <- job:
		return job.ID, nil
	case <-q.done:
		return "", domain.ErrQueueClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Dequeue blocks until a job is available on the named queue.
func (q *Queue) Dequeue(ctx context.Context, queue string) (*domain.Job, error) {
	q.mu.Lock()
	ch, ok := q.queues[queue]
	if !ok {
		if q.closed {
			q.mu.Unlock()
			return nil, domain.ErrQueueClosed
		}
		ch = make(chan *domain.Job, q.capacity)
		q.queues[queue] = ch
	}
	q.mu.Unlock()

	select {
	case job := <-ch:
		return job, nil
	case <-q.done:
		// The queue was closed while waiting; hand out any job still
		// buffered before reporting closure.
		select {
		case job := <-ch:
			return job, nil
		default:
			return nil, domain.ErrQueueClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the queue down. Blocked Enqueue and Dequeue calls return
// domain.ErrQueueClosed; buffered jobs remain drainable. The job
// channels themselves stay open so a producer caught mid-send never
// panics.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}
