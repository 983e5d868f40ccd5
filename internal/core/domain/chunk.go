package domain

import "time"

// Chunk is a bounded, heading-scoped slice of a large reference
// document. Chunks are immutable once produced and are identified
// deterministically so re-chunking the same document is idempotent.
type Chunk struct {
	// ID is derived from the document key and the chunk's position.
	ID string

	// Heading is the section heading the chunk belongs to, if any.
	Heading string

	// Content is the chunk text.
	Content string

	// Keywords are extracted at chunking time for cheap matching
	// without re-scanning Content later.
	Keywords []string

	// EstimatedTokens approximates the chunk's token count
	// (characters / 4).
	EstimatedTokens int
}

// ChunkedDocument is the chunk set produced once per oversized
// reference document. It is read-only after creation.
type ChunkedDocument struct {
	// DocumentKey is the stable key of the source document.
	DocumentKey string

	// Chunks holds the ordered chunk set.
	Chunks []Chunk

	// TotalTokens is the summed estimated token count of all chunks.
	TotalTokens int

	// ChunkedAt is when the chunk set was produced.
	ChunkedAt time.Time
}

// RelevanceScore is the derived ranking of one chunk against a set of
// requirements. Scores exist only for the duration of a selection
// request and are never persisted independently.
type RelevanceScore struct {
	// ChunkID identifies the scored chunk.
	ChunkID string

	// Score is the blended relevance in [0,1].
	Score float64

	// MatchedKeywords lists the requirement keywords the chunk matched.
	MatchedKeywords []string

	// HeadingMatch is the heading-keyword overlap component in [0,1].
	HeadingMatch float64

	// ContentMatch is the content (keyword + text) component in [0,1].
	ContentMatch float64
}

// EstimateTokens approximates the token count of a text using the
// characters/4 heuristic. The estimate only needs to be stable and
// roughly proportional; it is used for budgeting, not billing.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
