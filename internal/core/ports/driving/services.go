package driving

import (
	"context"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

// Indexer runs the indexing pipeline (chunk → embed → store) for one
// document. Triggered per ingested document by the rag queue.
type Indexer interface {
	// Index chunks, embeds and stores the job's document text. A
	// per-chunk embedding failure degrades that chunk to a zero vector
	// rather than failing the job.
	Index(ctx context.Context, job domain.IndexJob) (IndexReport, error)
}

// IndexReport summarises one indexing run.
type IndexReport struct {
	// ChunksIndexed is how many chunks were stored.
	ChunksIndexed int

	// Degraded is how many chunks fell back to a zero vector.
	Degraded int
}

// Retriever produces the ranked context set for a patient and a query.
type Retriever interface {
	// Retrieve returns the top k chunks for the patient ranked by
	// descending cosine similarity to the query. An empty result with a
	// nil error means the patient has no indexed documents. Non-positive
	// k selects the configured default.
	Retrieve(ctx context.Context, patientID, query string, k int) ([]domain.RetrievedChunk, error)
}

// Diagnostician answers doctors' questions from retrieved context and
// drives the diagnostic record lifecycle.
type Diagnostician interface {
	// Answer generates a grounded answer from non-empty retrieved
	// context and derives the confidence score.
	Answer(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, int, error)

	// Process runs one diagnostic job end to end: retrieve, generate,
	// persist. The no-context outcome completes the record without
	// calling the generator.
	Process(ctx context.Context, job domain.DiagnosticJob) error
}

// IntakeProcessor extracts structured medical data from raw documents and
// hands them to the indexing pipeline.
type IntakeProcessor interface {
	// Process runs one intake job: extract, update the patient, store
	// the document, enqueue indexing.
	Process(ctx context.Context, job domain.IntakeJob) error
}

// BillingOptimizer applies discount rules and cost optimisation.
type BillingOptimizer interface {
	// ApplyDiscounts evaluates the discount rules against a subtotal.
	ApplyDiscounts(subtotal float64, bctx domain.BillingContext) (float64, []domain.Discount)

	// Optimize selects the most cost-effective option per treatment,
	// honouring constraints.
	Optimize(ctx context.Context, treatments []domain.Treatment, conditions []string, constraints domain.BillingConstraints) ([]domain.OptimizedTreatment, error)

	// Process runs one billing job and persists the invoice.
	Process(ctx context.Context, job domain.BillingJob) error
}

// AnomalyDetector evaluates audit events against the security rules.
type AnomalyDetector interface {
	// Detect records the event and returns any alerts it triggers.
	Detect(ctx context.Context, event domain.AuditEvent) ([]domain.SecurityAlert, error)

	// Process runs one security job: detect, persist and log alerts.
	Process(ctx context.Context, job domain.AuditJob) error
}
