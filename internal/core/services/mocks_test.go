package services

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// --- Mock implementations shared across service tests ---

// mockEmbedder is a deterministic in-process embedder: each text becomes a
// bag-of-words vector over hashed word buckets, so texts sharing words get
// a higher cosine similarity. failOn injects per-text failures.
type mockEmbedder struct {
	dims    int
	failOn  map[string]error
	failAll error
	calls   int
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dims: domain.EmbeddingDimensions, failOn: make(map[string]error)}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.failAll != nil {
		return nil, m.failAll
	}
	if err, ok := m.failOn[text]; ok {
		return nil, err
	}

	vector := make([]float32, m.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?:;")
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vector[h.Sum32()%uint32(m.dims)]++
	}
	return vector, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vector
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return m.dims }
func (m *mockEmbedder) ModelName() string          { return "mock-minilm" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// mockLLM returns a canned response or error and records the conversation.
type mockLLM struct {
	response string
	err      error
	calls    int
	lastMsgs []driven.ChatMessage
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage) (string, error) {
	m.calls++
	m.lastMsgs = messages
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

// mockQueue records enqueued payloads without a transport.
type mockQueue struct {
	enqueued []struct {
		Queue   string
		Payload any
	}
	err error
}

var _ driven.JobQueue = (*mockQueue)(nil)

func (m *mockQueue) Enqueue(_ context.Context, queue string, payload any) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.enqueued = append(m.enqueued, struct {
		Queue   string
		Payload any
	}{queue, payload})
	return "job-1", nil
}

func (m *mockQueue) Dequeue(context.Context, string) (*domain.Job, error) {
	return nil, domain.ErrQueueClosed
}

func (m *mockQueue) Close() error { return nil }

// mockRetriever returns fixed chunks for Diagnostician tests.
type mockRetriever struct {
	chunks []domain.RetrievedChunk
	err    error
	lastK  int
}

func (m *mockRetriever) Retrieve(_ context.Context, _, _ string, k int) ([]domain.RetrievedChunk, error) {
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks, nil
}
