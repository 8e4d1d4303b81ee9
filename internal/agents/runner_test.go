package agents

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	queuemem "github.com/mediflow-labs/mediflow/internal/adapters/driven/queue/memory"
	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

func TestRunnerDispatchesJobs(t *testing.T) {
	q := queuemem.NewQueue()
	defer q.Close()

	var mu sync.Mutex
	var seen []string

	r := NewRunner(q)
	r.Register(domain.QueueRAG, 2, 0, func(ctx context.Context, job *domain.Job) error {
		var payload domain.IndexJob
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return err
		}
		mu.Lock()
		seen = append(seen, payload.DocumentID)
		mu.Unlock()
		return nil
	})

	ctx := context.Background()
	for _, id := range []string{"d1", "d2", "d3"} {
		_, err := q.Enqueue(ctx, domain.QueueRAG, domain.IndexJob{DocumentID: id})
		require.NoError(t, err)
	}

	r.Start(ctx)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()

	mu.Lock()
	assert.ElementsMatch(t, []string{"d1", "d2", "d3"}, seen)
	mu.Unlock()
}

func TestRunnerIsolatesQueues(t *testing.T) {
	q := queuemem.NewQueue()
	defer q.Close()

	var billing, security int32

	r := NewRunner(q)
	r.Register(domain.QueueBilling, 1, 0, func(ctx context.Context, job *domain.Job) error {
		atomic.AddInt32(&billing, 1)
		return nil
	})
	r.Register(domain.QueueSecurity, 1, 0, func(ctx context.Context, job *domain.Job) error {
		atomic.AddInt32(&security, 1)
		return nil
	})

	ctx := context.Background()
	_, err := q.Enqueue(ctx, domain.QueueBilling, domain.BillingJob{PatientID: "p1"})
	require.NoError(t, err)

	r.Start(ctx)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&billing) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&security))

	r.Stop()
}

func TestRunnerContinuesAfterHandlerError(t *testing.T) {
	q := queuemem.NewQueue()
	defer q.Close()

	var handled int32

	r := NewRunner(q)
	r.Register(domain.QueueIntake, 1, 0, func(ctx context.Context, job *domain.Job) error {
		n := atomic.AddInt32(&handled, 1)
		if n == 1 {
			return assert.AnError
		}
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := q.Enqueue(ctx, domain.QueueIntake, domain.IntakeJob{PatientID: "p1"})
		require.NoError(t, err)
	}

	r.Start(ctx)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&handled) == 2
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
}

func TestRunnerStopWaitsForWorkers(t *testing.T) {
	q := queuemem.NewQueue()
	defer q.Close()

	started := make(chan struct{})
	var finished int32

	r := NewRunner(q)
	r.Register(domain.QueueRAG, 1, 0, func(ctx context.Context, job *domain.Job) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
		return nil
	})

	ctx := context.Background()
	_, err := q.Enqueue(ctx, domain.QueueRAG, domain.IndexJob{DocumentID: "d1"})
	require.NoError(t, err)

	r.Start(ctx)
	<-started
	r.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&finished), "Stop must wait for the in-flight job")
}

func TestRunnerRateLimit(t *testing.T) {
	q := queuemem.NewQueue()
	defer q.Close()

	var handled int32

	r := NewRunner(q)
	// 10 jobs/sec with burst 10: the first burst passes immediately,
	// anything beyond it waits.
	r.Register(domain.QueueRAG, 1, 10, func(ctx context.Context, job *domain.Job) error {
		atomic.AddInt32(&handled, 1)
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, domain.QueueRAG, domain.IndexJob{})
		require.NoError(t, err)
	}

	r.Start(ctx)
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&handled) == 5
	}, 3*time.Second, 10*time.Millisecond)
	r.Stop()
}

// failingQueue always errors on Dequeue, standing in for an unreachable
// broker.
type failingQueue struct {
	dequeues int32
}

func (q *failingQueue) Enqueue(ctx context.Context, queue string, payload any) (string, error) {
	return "", assert.AnError
}

func (q *failingQueue) Dequeue(ctx context.Context, queue string) (*domain.Job, error) {
	atomic.AddInt32(&q.dequeues, 1)
	return nil, assert.AnError
}

func (q *failingQueue) Close() error { return nil }

func TestRunnerBacksOffAfterDequeueError(t *testing.T) {
	q := &failingQueue{}

	r := NewRunner(q)
	r.Register(domain.QueueRAG, 1, 0, func(ctx context.Context, job *domain.Job) error {
		return nil
	})

	r.Start(context.Background())
	time.Sleep(250 * time.Millisecond)
	r.Stop()

	// One attempt plus at most one retry inside the window; a hot loop
	// would rack up thousands.
	attempts := atomic.LoadInt32(&q.dequeues)
	assert.GreaterOrEqual(t, attempts, int32(1))
	assert.LessOrEqual(t, attempts, int32(3))
}
