package driven

import (
	"context"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

// VectorStore persists (chunk, vector, metadata) tuples keyed by document
// and patient, and serves them back for similarity ranking. The platform
// keeps one embedding set per document; re-indexing replaces the set.
type VectorStore interface {
	// ReplaceDocument deletes every record for docID and inserts one
	// record per chunk, with chunk ids derived as docID + "::" + index.
	// Fails with domain.ErrChunkVectorMismatch when len(chunks) !=
	// len(vectors). The swap is atomic with respect to readers: FetchAll
	// never observes a partial chunk set for the document. Returns the
	// number of records stored.
	ReplaceDocument(ctx context.Context, patientID, docID string, chunks []string, vectors [][]float32, metadata map[string]any) (int, error)

	// FetchAll returns every embedding record for the patient, in a
	// deterministic order (insertion then position).
	FetchAll(ctx context.Context, patientID string) ([]domain.EmbeddingRecord, error)

	// DeleteDocument removes all records for a document and returns the
	// count removed. Idempotent: an absent document yields 0, not an
	// error.
	DeleteDocument(ctx context.Context, docID string) (int, error)

	// Close releases resources.
	Close() error
}
