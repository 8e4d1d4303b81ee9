// Package agents runs the per-queue worker pools that drive the platform
// services from the job queue.
package agents

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
	"github.com/mediflow-labs/mediflow/internal/logger"
)

// Handler processes one dequeued job.
type Handler func(ctx context.Context, job *domain.Job) error

// dequeueRetryDelay is how long a worker waits before retrying after a
// transport error, so an unreachable broker does not spin the log.
const dequeueRetryDelay = 500 * time.Millisecond

// registration is one queue's worker pool configuration.
type registration struct {
	queue       string
	concurrency int
	limiter     *rate.Limiter
	handler     Handler
}

// Runner consumes jobs from the queue transport and dispatches them to
// registered handlers. Each queue gets its own pool of workers sharing
// one rate limiter, so a burst on one queue never starves another.
type Runner struct {
	queue driven.JobQueue

	mu            sync.Mutex
	registrations []registration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a runner over the given queue transport.
func NewRunner(queue driven.JobQueue) *Runner {
	return &Runner{queue: queue}
}

// Register adds a worker pool for a queue. Concurrency below one is
// raised to one; a non-positive jobs-per-second disables rate limiting.
// Register must be called before Start.
func (r *Runner) Register(queue string, concurrency int, jobsPerSecond float64, handler Handler) {
	if concurrency < 1 {
		concurrency = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if jobsPerSecond > 0 {
		burst := int(jobsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(jobsPerSecond), burst)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = append(r.registrations, registration{
		queue:       queue,
		concurrency: concurrency,
		limiter:     limiter,
		handler:     handler,
	})
}

// Start launches all worker pools. Workers run until Stop is called or
// the parent context is cancelled.
func (r *Runner) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.cancel = cancel
	registrations := r.registrations
	r.mu.Unlock()

	for _, reg := range registrations {
		for i := 0; i < reg.concurrency; i++ {
			r.wg.Add(1)
			go r.work(ctx, reg, i)
		}
		logger.Info("agent started: queue=%s concurrency=%d", reg.queue, reg.concurrency)
	}
}

// Stop cancels all workers and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// work is one worker's consume loop.
func (r *Runner) work(ctx context.Context, reg registration, worker int) {
	defer r.wg.Done()

	for {
		if err := reg.limiter.Wait(ctx); err != nil {
			return
		}

		job, err := r.queue.Dequeue(ctx, reg.queue)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if errors.Is(err, domain.ErrQueueClosed) {
				logger.Debug("queue %s closed, worker %d exiting", reg.queue, worker)
				return
			}
			logger.Error("dequeue from %s failed: %v", reg.queue, err)
			select {
			case <-time.After(dequeueRetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		if err := reg.handler(ctx, job); err != nil {
			logger.Error("job %s on %s failed: %v", job.ID, reg.queue, err)
			continue
		}
		logger.Debug("job %s on %s done", job.ID, reg.queue)
	}
}
