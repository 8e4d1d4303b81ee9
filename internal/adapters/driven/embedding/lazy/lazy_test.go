package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

type stubEmbedder struct {
	embedCalls int32
	closed     bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt32(&s.embedCalls, 1)
	return make([]float32, domain.EmbeddingDimensions), nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, domain.EmbeddingDimensions)
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int                { return domain.EmbeddingDimensions }
func (s *stubEmbedder) ModelName() string              { return "stub" }
func (s *stubEmbedder) Ping(ctx context.Context) error { return nil }
func (s *stubEmbedder) Close() error                   { s.closed = true; return nil }

func TestMetadataWithoutLoad(t *testing.T) {
	loads := 0
	svc := NewEmbeddingService("all-minilm", 384, func(ctx context.Context) (driven.EmbeddingService, error) {
		loads++
		return &stubEmbedder{}, nil
	})

	assert.Equal(t, "all-minilm", svc.ModelName())
	assert.Equal(t, 384, svc.Dimensions())
	assert.Equal(t, 0, loads, "metadata queries must not trigger a load")
}

func TestLoadsOnceAcrossConcurrentCallers(t *testing.T) {
	var loads int32
	stub := &stubEmbedder{}
	svc := NewEmbeddingService("stub", 384, func(ctx context.Context) (driven.EmbeddingService, error) {
		atomic.AddInt32(&loads, 1)
		return stub, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Embed(context.Background(), "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.Equal(t, int32(8), atomic.LoadInt32(&stub.embedCalls))
}

func TestFailedLoadIsRetried(t *testing.T) {
	loads := 0
	svc := NewEmbeddingService("stub", 384, func(ctx context.Context) (driven.EmbeddingService, error) {
		loads++
		if loads == 1 {
			return nil, errors.New("model pull failed")
		}
		return &stubEmbedder{}, nil
	})

	_, err := svc.Embed(context.Background(), "first")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = svc.Embed(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestCloseUnloaded(t *testing.T) {
	svc := NewEmbeddingService("stub", 384, func(ctx context.Context) (driven.EmbeddingService, error) {
		t.Fatal("load should not run")
		return nil, nil
	})
	assert.NoError(t, svc.Close())
}

func TestCloseLoaded(t *testing.T) {
	stub := &stubEmbedder{}
	svc := NewEmbeddingService("stub", 384, func(ctx context.Context) (driven.EmbeddingService, error) {
		return stub, nil
	})

	_, err := svc.Embed(context.Background(), "warm")
	require.NoError(t, err)

	require.NoError(t, svc.Close())
	assert.True(t, stub.closed)
}
