package domain

// EmbeddingDimensions is the fixed vector size produced by the embedding
// model (all-MiniLM class models). Every stored vector has exactly this
// length; failed embeddings are stored as zero vectors of this length so
// chunk and vector sequences stay aligned.
const EmbeddingDimensions = 384

// ChunkIDSeparator joins a document id and a chunk's position into a stable
// chunk identifier, e.g. "doc-42::3".
const ChunkIDSeparator = "::"

// EmbeddingRecord is one stored (chunk, vector) tuple. One set of records
// exists per document; re-indexing replaces the full set.
type EmbeddingRecord struct {
	// ChunkID is derived from the document id and chunk position and is
	// stable across re-indexing of unchanged text.
	ChunkID string

	// PatientID scopes retrieval to a single patient.
	PatientID string

	// DocumentID links back to the source document.
	DocumentID string

	// Position is the chunk's ordinal within the document.
	Position int

	// Text is the chunk text, denormalised for retrieval display.
	Text string

	// Vector is the embedding, always EmbeddingDimensions long.
	Vector []float32

	// Metadata carries chunk-level extras such as the overlap length.
	Metadata map[string]any
}

// ZeroVector returns an all-zero vector of the model dimension. Used as the
// per-chunk fallback when an embedding call fails; its cosine similarity
// against any query is 0, so a degraded chunk never ranks highly.
func ZeroVector(dims int) []float32 {
	return make([]float32, dims)
}

// RetrievedChunk is one entry of a ranked retrieval result. Ephemeral: it is
// produced per query and snapshotted onto the diagnostic record, never stored
// as its own entity.
type RetrievedChunk struct {
	// ChunkID identifies the stored chunk.
	ChunkID string `json:"chunkId"`

	// DocumentID is the source document.
	DocumentID string `json:"docId"`

	// Text is the chunk text.
	Text string `json:"text"`

	// Similarity is the cosine similarity against the query, descending
	// across a result set.
	Similarity float64 `json:"similarity"`
}
