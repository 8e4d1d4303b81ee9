package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore keeps embedding records in memory, keyed by document. The
// write lock is held across the whole delete-then-insert of
// ReplaceDocument, so readers never observe a partial chunk set.
type VectorStore struct {
	mu sync.RWMutex

	// byDoc maps document id to its full record set, in position order.
	byDoc map[string][]domain.EmbeddingRecord

	// docOrder preserves first-insertion order of documents so FetchAll
	// is deterministic.
	docOrder []string
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{byDoc: make(map[string][]domain.EmbeddingRecord)}
}

// ReplaceDocument swaps the full record set for a document.
func (s *VectorStore) ReplaceDocument(ctx context.Context, patientID, docID string, chunks []string, vectors [][]float32, metadata map[string]any) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrChunkVectorMismatch, len(chunks), len(vectors))
	}

	records := make([]domain.EmbeddingRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = domain.EmbeddingRecord{
			ChunkID:    fmt.Sprintf("%s%s%d", docID, domain.ChunkIDSeparator, i),
			PatientID:  patientID,
			DocumentID: docID,
			Position:   i,
			Text:       chunk,
			Vector:     vectors[i],
			Metadata:   chunkMetadata(i, metadata),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byDoc[docID]; !exists {
		s.docOrder = append(s.docOrder, docID)
	}
	s.byDoc[docID] = records

	return len(records), nil
}

// FetchAll returns every record for the patient in document-insertion then
// position order.
func (s *VectorStore) FetchAll(ctx context.Context, patientID string) ([]domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.EmbeddingRecord
	for _, docID := range s.docOrder {
		for _, rec := range s.byDoc[docID] {
			if rec.PatientID == patientID {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

// DeleteDocument removes a document's records. Absent documents yield 0.
func (s *VectorStore) DeleteDocument(ctx context.Context, docID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, exists := s.byDoc[docID]
	if !exists {
		return 0, nil
	}

	delete(s.byDoc, docID)
	for i, id := range s.docOrder {
		if id == docID {
			s.docOrder = append(s.docOrder[:i], s.docOrder[i+1:]...)
			break
		}
	}

	return len(records), nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}

// chunkMetadata builds the per-chunk metadata map, carrying the document
// metadata plus the chunk index.
func chunkMetadata(index int, docMeta map[string]any) map[string]any {
	meta := map[string]any{"chunkIndex": index}
	if overlap, ok := docMeta["overlap"]; ok {
		meta["overlap"] = overlap
	}
	return meta
}
