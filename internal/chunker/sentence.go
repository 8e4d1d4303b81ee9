package chunker

import "strings"

// Defaults for the sentence-aware strategy.
const (
	// DefaultMaxSize is the target upper bound for a chunk.
	DefaultMaxSize = 500

	// DefaultMinSize is the smallest chunk worth emitting on its own.
	DefaultMinSize = 200
)

// Ensure Sentence implements the interface.
var _ Strategy = Sentence{}

// Sentence accumulates whole sentences into chunks of at most MaxSize bytes.
// A chunk is only closed once it has reached MinSize; until then sentences
// keep being appended even past MaxSize, so no chunk except the final one is
// ever under-sized.
type Sentence struct {
	MaxSize int
	MinSize int
}

// NewSentence returns a Sentence strategy with defaults applied for
// non-positive parameters.
func NewSentence(maxSize, minSize int) Sentence {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return Sentence{MaxSize: maxSize, MinSize: minSize}
}

// Chunks splits text on terminal punctuation and greedily packs sentences.
func (s Sentence) Chunks(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		if current.Len()+len(sentence) <= s.MaxSize {
			current.WriteString(sentence)
			continue
		}

		if current.Len() >= s.MinSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			current.WriteString(sentence)
		} else {
			// Under-sized buffer: exceed MaxSize rather than emit it.
			current.WriteString(sentence)
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks
}

// splitSentences cuts text after terminal punctuation (. ! ?), keeping the
// punctuation with its sentence. Text without any terminator is returned as
// a single unit.
func splitSentences(text string) []string {
	var sentences []string
	start := 0

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			// Consume a run of terminators (e.g. "?!" or "...").
			end := i + 1
			for end < len(text) && (text[end] == '.' || text[end] == '!' || text[end] == '?') {
				end++
			}
			sentences = append(sentences, text[start:end])
			start = end
			i = end - 1
		}
	}

	if start == 0 && len(sentences) == 0 {
		return []string{text}
	}
	if start < len(text) {
		// Trailing fragment without a terminator.
		sentences = append(sentences, text[start:])
	}

	return sentences
}
