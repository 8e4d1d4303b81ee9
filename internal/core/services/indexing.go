package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/mediflow-labs/mediflow/internal/chunker"
	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driving"
	"github.com/mediflow-labs/mediflow/internal/logger"
)

// Ensure IndexingService implements the interface.
var _ driving.Indexer = (*IndexingService)(nil)

// IndexingService runs the chunk → embed → store pipeline for one document.
// Chunk order is preserved end to end so chunk identifiers stay stable
// across re-indexing.
type IndexingService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	strategy chunker.Strategy
}

// NewIndexingService creates an indexing service. A nil strategy selects the
// fixed-window default (size 500, overlap 100).
func NewIndexingService(embedder driven.EmbeddingService, vectors driven.VectorStore, strategy chunker.Strategy) *IndexingService {
	if strategy == nil {
		strategy = chunker.NewFixed(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap)
	}
	return &IndexingService{
		embedder: embedder,
		vectors:  vectors,
		strategy: strategy,
	}
}

// Index chunks the document text, embeds every chunk and replaces the
// document's embedding set. An embedding failure for a single chunk is
// recovered locally by substituting a zero vector, keeping the chunk and
// vector sequences aligned; the job still succeeds.
func (s *IndexingService) Index(ctx context.Context, job domain.IndexJob) (driving.IndexReport, error) {
	var report driving.IndexReport

	if strings.TrimSpace(job.Text) == "" {
		logger.Info("indexing %s: empty document, nothing to index", job.DocumentID)
		return report, nil
	}

	chunks := s.strategy.Chunks(job.Text)
	logger.Debug("indexing %s: %d chunks from %d characters", job.DocumentID, len(chunks), len(job.Text))
	if len(chunks) == 0 {
		return report, nil
	}

	dims := s.embedder.Dimensions()
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			logger.Warn("indexing %s: embedding chunk %d failed, storing zero vector: %v", job.DocumentID, i, err)
			vectors[i] = domain.ZeroVector(dims)
			report.Degraded++
			continue
		}
		if len(vector) != dims {
			logger.Warn("indexing %s: chunk %d returned %d dimensions, want %d; storing zero vector", job.DocumentID, i, len(vector), dims)
			vectors[i] = domain.ZeroVector(dims)
			report.Degraded++
			continue
		}
		vectors[i] = vector
	}

	metadata := map[string]any{"overlap": chunkOverlap(s.strategy)}
	for k, v := range job.Metadata {
		metadata[k] = v
	}

	stored, err := s.vectors.ReplaceDocument(ctx, job.PatientID, job.DocumentID, chunks, vectors, metadata)
	if err != nil {
		return report, fmt.Errorf("storing embeddings for %s: %w", job.DocumentID, err)
	}

	report.ChunksIndexed = stored
	logger.Info("indexing %s: stored %d embeddings (%d degraded)", job.DocumentID, stored, report.Degraded)
	return report, nil
}

// chunkOverlap reports the overlap for fixed-window strategies, 0 otherwise.
func chunkOverlap(s chunker.Strategy) int {
	if f, ok := s.(chunker.Fixed); ok {
		return f.Overlap
	}
	return 0
}
