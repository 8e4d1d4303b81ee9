package chunker

import "strings"

// Defaults for the indexing pipeline's fixed-window strategy.
const (
	// DefaultChunkSize is the window length in bytes.
	DefaultChunkSize = 500

	// DefaultChunkOverlap is how much consecutive windows share.
	DefaultChunkOverlap = 100
)

// Ensure Fixed implements the interface.
var _ Strategy = Fixed{}

// Fixed emits overlapping windows of Size bytes, advancing Size-Overlap
// between windows. Overlap must be smaller than Size for forward progress;
// if it is not, at most one window is emitted.
type Fixed struct {
	Size    int
	Overlap int
}

// NewFixed returns a Fixed strategy with the pipeline defaults applied for
// non-positive parameters.
func NewFixed(size, overlap int) Fixed {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	return Fixed{Size: size, Overlap: overlap}
}

// Chunks splits text into overlapping windows. Windows that are empty after
// trimming whitespace are skipped but do not stop the scan.
func (f Fixed) Chunks(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + f.Size
		if end > len(text) {
			end = len(text)
		}

		if chunk := text[start:end]; strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}

		// Guard: a non-positive stride would never terminate.
		if f.Size <= f.Overlap {
			break
		}
		start += f.Size - f.Overlap
	}

	return chunks
}
