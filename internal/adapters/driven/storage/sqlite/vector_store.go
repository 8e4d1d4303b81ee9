package sqlite

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// ==================== Vector Store ====================

// vectorStore implements driven.VectorStore. ReplaceDocument runs the
// delete and inserts inside one transaction, so readers never observe a
// partial chunk set for a document.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// ReplaceDocument swaps the full record set for a document.
func (s *vectorStore) ReplaceDocument(ctx context.Context, patientID, docID string, chunks []string, vectors [][]float32, metadata map[string]any) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrChunkVectorMismatch, len(chunks), len(vectors))
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", docID); err != nil {
		return 0, fmt.Errorf("deleting old embeddings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (chunk_id, patient_id, document_id, position, text, vector, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		chunkID := fmt.Sprintf("%s%s%d", docID, domain.ChunkIDSeparator, i)

		metaJSON, err := json.Marshal(chunkMetadata(i, metadata))
		if err != nil {
			return 0, fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunkID, patientID, docID, i, chunk,
			float32SliceToBytes(vectors[i]), string(metaJSON)); err != nil {
			return 0, fmt.Errorf("inserting embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(chunks), nil
}

// FetchAll returns every embedding record for the patient. Rowid order
// gives document-insertion then position order, matching the in-memory
// store.
func (s *vectorStore) FetchAll(ctx context.Context, patientID string) ([]domain.EmbeddingRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id, patient_id, document_id, position, text, vector, metadata
		FROM embeddings WHERE patient_id = ?
		ORDER BY rowid
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var records []domain.EmbeddingRecord
	for rows.Next() {
		var rec domain.EmbeddingRecord
		var vectorBlob []byte
		var metaJSON string
		if err := rows.Scan(&rec.ChunkID, &rec.PatientID, &rec.DocumentID,
			&rec.Position, &rec.Text, &vectorBlob, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}

		rec.Vector = bytesToFloat32Slice(vectorBlob)

		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return records, nil
}

// DeleteDocument removes a document's records. Absent documents yield 0.
func (s *vectorStore) DeleteDocument(ctx context.Context, docID string) (int, error) {
	result, err := s.store.db.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", docID)
	if err != nil {
		return 0, fmt.Errorf("deleting embeddings: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking delete: %w", err)
	}
	return int(affected), nil
}

// Close is a no-op; the owning Store manages the connection.
func (s *vectorStore) Close() error {
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

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
