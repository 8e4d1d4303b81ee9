package services

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediflow-labs/mediflow/internal/adapters/driven/storage/memory"
	"github.com/mediflow-labs/mediflow/internal/chunker"
	"github.com/mediflow-labs/mediflow/internal/core/domain"
)

func TestRetrievalServiceRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("no stored embeddings yields empty result not error", func(t *testing.T) {
		svc := NewRetrievalService(newMockEmbedder(), memory.NewVectorStore())
		chunks, err := svc.Retrieve(ctx, "unknown-patient", "anything", 5)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("returns min(k, stored) sorted descending", func(t *testing.T) {
		embedder := newMockEmbedder()
		vectors := memory.NewVectorStore()
		svc := NewRetrievalService(embedder, vectors)

		texts := []string{
			"Blood pressure recorded at 120/80 during checkup.",
			"Patient reports seasonal pollen allergy.",
			"Prescribed metformin for type 2 diabetes.",
			"Family history of heart disease.",
		}
		embedded, err := embedder.EmbedBatch(ctx, texts)
		require.NoError(t, err)
		_, err = vectors.ReplaceDocument(ctx, "p1", "doc1", texts, embedded, nil)
		require.NoError(t, err)

		results, err := svc.Retrieve(ctx, "p1", "What is the blood pressure?", 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool {
			return results[i].Similarity > results[j].Similarity
		}))
		assert.Contains(t, results[0].Text, "Blood pressure")

		// k larger than the store returns everything.
		results, err = svc.Retrieve(ctx, "p1", "allergies?", 50)
		require.NoError(t, err)
		assert.Len(t, results, len(texts))
	})

	t.Run("non-positive k uses the default", func(t *testing.T) {
		embedder := newMockEmbedder()
		vectors := memory.NewVectorStore()
		svc := NewRetrievalService(embedder, vectors)

		texts := make([]string, 10)
		words := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta", "iota", "kappa"}
		for i := range texts {
			texts[i] = "note about " + words[i]
		}
		embedded, err := embedder.EmbedBatch(ctx, texts)
		require.NoError(t, err)
		_, err = vectors.ReplaceDocument(ctx, "p1", "doc1", texts, embedded, nil)
		require.NoError(t, err)

		results, err := svc.Retrieve(ctx, "p1", "note", 0)
		require.NoError(t, err)
		assert.Len(t, results, DefaultTopK)
	})

	t.Run("zero vector chunks never rank above matches", func(t *testing.T) {
		embedder := newMockEmbedder()
		vectors := memory.NewVectorStore()
		svc := NewRetrievalService(embedder, vectors)

		good, err := embedder.Embed(ctx, "blood pressure reading")
		require.NoError(t, err)
		_, err = vectors.ReplaceDocument(ctx, "p1", "doc1",
			[]string{"degraded chunk", "blood pressure reading"},
			[][]float32{domain.ZeroVector(domain.EmbeddingDimensions), good}, nil)
		require.NoError(t, err)

		results, err := svc.Retrieve(ctx, "p1", "blood pressure", 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "blood pressure reading", results[0].Text)
		assert.Equal(t, 0.0, results[1].Similarity)
	})
}

// End-to-end: index then retrieve through the real pipeline pieces.
func TestIndexThenRetrieve(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder()
	vectors := memory.NewVectorStore()

	indexer := NewIndexingService(embedder, vectors, chunker.Fixed{Size: 20, Overlap: 5})
	retriever := NewRetrievalService(embedder, vectors)

	report, err := indexer.Index(ctx, domain.IndexJob{
		PatientID:  "p1",
		DocumentID: "doc1",
		Text:       "Patient has diabetes. Blood pressure is 120/80.",
	})
	require.NoError(t, err)
	require.Greater(t, report.ChunksIndexed, 0)

	records, err := vectors.FetchAll(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, records, report.ChunksIndexed)
	for _, rec := range records {
		assert.Len(t, rec.Vector, domain.EmbeddingDimensions)
	}

	results, err := retriever.Retrieve(ctx, "p1", "What is the blood pressure?", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 2)
	assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	}))
}
