package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driving"
)

// PoolConfig sizes one queue's worker pool.
type PoolConfig struct {
	// Concurrency is the number of workers for the queue.
	Concurrency int

	// JobsPerSecond caps the pool's throughput. Zero disables the cap.
	JobsPerSecond float64
}

// Pools holds per-queue worker pool configuration.
type Pools struct {
	Intake      PoolConfig
	RAG         PoolConfig
	Diagnostics PoolConfig
	Billing     PoolConfig
	Security    PoolConfig
}

// DefaultPools mirrors the workload shape of the agent domains: the RAG
// and diagnostics pipelines are the slow, model-bound paths and get more
// workers.
func DefaultPools() Pools {
	return Pools{
		Intake:      PoolConfig{Concurrency: 2},
		RAG:         PoolConfig{Concurrency: 3},
		Diagnostics: PoolConfig{Concurrency: 3},
		Billing:     PoolConfig{Concurrency: 2},
		Security:    PoolConfig{Concurrency: 1},
	}
}

// Handlers decodes queue payloads and dispatches them to the platform
// services.
type Handlers struct {
	intake   driving.IntakeProcessor
	indexer  driving.Indexer
	diag     driving.Diagnostician
	billing  driving.BillingOptimizer
	security driving.AnomalyDetector
}

// NewHandlers binds the five agent services.
func NewHandlers(
	intake driving.IntakeProcessor,
	indexer driving.Indexer,
	diag driving.Diagnostician,
	billing driving.BillingOptimizer,
	security driving.AnomalyDetector,
) *Handlers {
	return &Handlers{
		intake:   intake,
		indexer:  indexer,
		diag:     diag,
		billing:  billing,
		security: security,
	}
}

// Bind registers one worker pool per agent queue on the runner.
func (h *Handlers) Bind(r *Runner, pools Pools) {
	r.Register(domain.QueueIntake, pools.Intake.Concurrency, pools.Intake.JobsPerSecond, h.HandleIntake)
	r.Register(domain.QueueRAG, pools.RAG.Concurrency, pools.RAG.JobsPerSecond, h.HandleIndex)
	r.Register(domain.QueueDiagnostics, pools.Diagnostics.Concurrency, pools.Diagnostics.JobsPerSecond, h.HandleDiagnostic)
	r.Register(domain.QueueBilling, pools.Billing.Concurrency, pools.Billing.JobsPerSecond, h.HandleBilling)
	r.Register(domain.QueueSecurity, pools.Security.Concurrency, pools.Security.JobsPerSecond, h.HandleAudit)
}

// HandleIntake processes one intake job.
func (h *Handlers) HandleIntake(ctx context.Context, job *domain.Job) error {
	var payload domain.IntakeJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decoding intake job %s: %w", job.ID, err)
	}
	return h.intake.Process(ctx, payload)
}

// HandleIndex processes one indexing job.
func (h *Handlers) HandleIndex(ctx context.Context, job *domain.Job) error {
	var payload domain.IndexJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decoding index job %s: %w", job.ID, err)
	}
	_, err := h.indexer.Index(ctx, payload)
	return err
}

// HandleDiagnostic processes one diagnostic job.
func (h *Handlers) HandleDiagnostic(ctx context.Context, job *domain.Job) error {
	var payload domain.DiagnosticJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decoding diagnostic job %s: %w", job.ID, err)
	}
	return h.diag.Process(ctx, payload)
}

// HandleBilling processes one billing job.
func (h *Handlers) HandleBilling(ctx context.Context, job *domain.Job) error {
	var payload domain.BillingJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decoding billing job %s: %w", job.ID, err)
	}
	return h.billing.Process(ctx, payload)
}

// HandleAudit processes one security audit job.
func (h *Handlers) HandleAudit(ctx context.Context, job *domain.Job) error {
	var payload domain.AuditJob
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decoding audit job %s: %w", job.ID, err)
	}
	return h.security.Process(ctx, payload)
}
