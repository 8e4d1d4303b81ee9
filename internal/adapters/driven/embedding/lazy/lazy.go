// Package lazy wraps an embedding service so that the underlying model
// is loaded on first use rather than at construction time.
//
// Loading an embedding model can be slow (a local runtime may need to
// pull weights into memory). Commands that never embed anything should
// not pay that cost, so construction is free and the first Embed or
// EmbedBatch call performs the load. Concurrent first callers block on
// the same in-flight load; a failed load is retried by the next caller.
package lazy

import (
	"context"
	"fmt"
	"sync"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// LoadFunc constructs the underlying embedding service. It is invoked
// at most once per load attempt.
type LoadFunc func(ctx context.Context) (driven.EmbeddingService, error)

// EmbeddingService defers construction of the wrapped service until the
// first embedding request.
type EmbeddingService struct {
	load       LoadFunc
	model      string
	dimensions int

	mu      sync.Mutex
	service driven.EmbeddingService
}

// NewEmbeddingService creates a lazy wrapper. The model name and
// dimensions are declared up front so they can be reported without
// forcing a load.
func NewEmbeddingService(model string, dimensions int, load LoadFunc) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = domain.EmbeddingDimensions
	}
	return &EmbeddingService{
		load:       load,
		model:      model,
		dimensions: dimensions,
	}
}

// loaded returns the underlying service, loading it if necessary. The
// mutex serialises concurrent first callers onto a single load attempt;
// on failure the service stays nil so the next caller retries.
func (s *EmbeddingService) loaded(ctx context.Context) (driven.EmbeddingService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.service != nil {
		return s.service, nil
	}

	svc, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	s.service = svc
	return svc, nil
}

// Embed generates a vector embedding for the given text, loading the
// underlying service on first use.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	svc, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	return svc.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts, loading the
// underlying service on first use.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	svc, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	return svc.EmbedBatch(ctx, texts)
}

// Dimensions returns the declared vector size without loading the
// underlying service.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the declared model name without loading the
// underlying service.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping forces a load and pings the underlying service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	svc, err := s.loaded(ctx)
	if err != nil {
		return err
	}
	return svc.Ping(ctx)
}

// Close closes the underlying service if it was ever loaded.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.service == nil {
		return nil
	}
	err := s.service.Close()
	s.service = nil
	return err
}
