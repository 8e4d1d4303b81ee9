// Package chunker splits document text into embedding-sized segments.
// Two interchangeable strategies are provided: Fixed (overlapping windows)
// and Sentence (sentence-respecting variable windows). Whole-document
// chunking is the unit of work; strategies return finite, ordered slices.
package chunker

// Strategy turns raw text into an ordered sequence of chunk strings.
type Strategy interface {
	// Chunks splits text into ordered, non-empty segments. Empty or
	// whitespace-only input yields no chunks.
	Chunks(text string) []string
}
