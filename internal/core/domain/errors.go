package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates two vectors of different lengths were
	// combined. Always a programming or data error, never retried.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrChunkVectorMismatch indicates the chunk and vector counts handed to
	// the vector store differ. Points at a bug in the embedding step and
	// aborts the indexing job.
	ErrChunkVectorMismatch = errors.New("chunk/vector count mismatch")

	// ErrGenerationFailed indicates the LLM completion call did not succeed.
	// Not retried here; the diagnostic record is marked errored and the
	// queue's own retry policy decides what happens next.
	ErrGenerationFailed = errors.New("failed to generate diagnostic response")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrQueueClosed indicates the job queue has been closed.
	ErrQueueClosed = errors.New("queue closed")
)
