package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driving"
	"github.com/mediflow-labs/mediflow/internal/logger"
	"github.com/mediflow-labs/mediflow/internal/vectormath"
)

// DefaultTopK is the number of chunks retrieved when the caller does not
// specify k.
const DefaultTopK = 6

// Ensure RetrievalService implements the interface.
var _ driving.Retriever = (*RetrievalService)(nil)

// RetrievalService ranks a patient's stored chunks against a query by
// cosine similarity. A single patient's chunks fit in memory, so ranking is
// exact: every record is scored, no approximate index is involved.
type RetrievalService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(embedder driven.EmbeddingService, vectors driven.VectorStore) *RetrievalService {
	return &RetrievalService{embedder: embedder, vectors: vectors}
}

// Retrieve embeds the query, scores every stored record for the patient and
// returns the top k by descending similarity. Ties keep fetch order. An
// empty result with a nil error means no documents are indexed for the
// patient.
func (s *RetrievalService) Retrieve(ctx context.Context, patientID, query string, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	logger.Debug("retrieving top-%d chunks for patient %s", k, patientID)

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	records, err := s.vectors.FetchAll(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("fetching embeddings: %w", err)
	}
	if len(records) == 0 {
		logger.Debug("no embeddings found for patient %s", patientID)
		return nil, nil
	}

	results := make([]domain.RetrievedChunk, 0, len(records))
	for _, rec := range records {
		score, err := vectormath.CosineSimilarity(queryVector, rec.Vector)
		if err != nil {
			return nil, fmt.Errorf("scoring chunk %s: %w", rec.ChunkID, err)
		}
		results = append(results, domain.RetrievedChunk{
			ChunkID:    rec.ChunkID,
			DocumentID: rec.DocumentID,
			Text:       rec.Text,
			Similarity: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if len(results) > k {
		results = results[:k]
	}
	logger.Debug("retrieved %d chunks for patient %s", len(results), patientID)
	return results, nil
}
