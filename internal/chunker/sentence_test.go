package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceChunks(t *testing.T) {
	t.Run("empty input yields no chunks", func(t *testing.T) {
		s := NewSentence(500, 200)
		assert.Empty(t, s.Chunks(""))
		assert.Empty(t, s.Chunks("  \n "))
	})

	t.Run("input without terminator is one unit", func(t *testing.T) {
		s := NewSentence(500, 200)
		chunks := s.Chunks("no terminal punctuation here")
		require.Len(t, chunks, 1)
		assert.Equal(t, "no terminal punctuation here", chunks[0])
	})

	t.Run("sentences pack greedily up to max size", func(t *testing.T) {
		s := Sentence{MaxSize: 40, MinSize: 10}
		chunks := s.Chunks("One short sentence. Another one here. And a third sentence follows. Done.")

		require.Greater(t, len(chunks), 1)
		for _, chunk := range chunks {
			// Chunks end on sentence boundaries.
			last := chunk[len(chunk)-1]
			assert.Contains(t, []byte{'.', '!', '?'}, last)
		}
	})

	t.Run("never emits an under-sized chunk except the final one", func(t *testing.T) {
		s := Sentence{MaxSize: 50, MinSize: 30}
		text := "Hi. " + strings.Repeat("This sentence is fairly long indeed. ", 6) + "Bye."
		chunks := s.Chunks(text)

		require.NotEmpty(t, chunks)
		for _, chunk := range chunks[:len(chunks)-1] {
			assert.GreaterOrEqual(t, len(chunk), s.MinSize)
		}
	})

	t.Run("under-sized buffer exceeds max rather than closing early", func(t *testing.T) {
		// First sentence is tiny, second is big: the two must stay in
		// one chunk even though together they exceed MaxSize.
		s := Sentence{MaxSize: 30, MinSize: 25}
		chunks := s.Chunks("Hi. This is a much longer sentence than the limit allows.")
		require.Len(t, chunks, 1)
	})

	t.Run("question and exclamation marks terminate sentences", func(t *testing.T) {
		s := Sentence{MaxSize: 20, MinSize: 5}
		chunks := s.Chunks("Any allergies? None reported! Proceed.")
		require.NotEmpty(t, chunks)
		assert.Equal(t, "Any allergies?", chunks[0])
	})
}

func TestSplitSentences(t *testing.T) {
	t.Run("keeps terminators with their sentence", func(t *testing.T) {
		got := splitSentences("First. Second! Third?")
		require.Len(t, got, 3)
		assert.Equal(t, "First.", got[0])
		assert.Equal(t, " Second!", got[1])
		assert.Equal(t, " Third?", got[2])
	})

	t.Run("consumes terminator runs", func(t *testing.T) {
		got := splitSentences("Really?! Yes...")
		require.Len(t, got, 2)
		assert.Equal(t, "Really?!", got[0])
		assert.Equal(t, " Yes...", got[1])
	})

	t.Run("keeps trailing fragment", func(t *testing.T) {
		got := splitSentences("Complete sentence. trailing fragment")
		require.Len(t, got, 2)
		assert.Equal(t, " trailing fragment", got[1])
	})
}
