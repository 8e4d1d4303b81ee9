package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small with reduced dimensions)
//   - Ollama (all-minilm)
//   - Local models via inference servers
//
// The model load may be slow; implementations are expected to be wrapped in
// the lazy adapter so the load happens at most once per process, with
// concurrent callers awaiting the same in-flight load.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (384 for the MiniLM
	// class models this platform is configured for). Must answer without
	// network traffic: callers use it to build zero-vector fallbacks.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
