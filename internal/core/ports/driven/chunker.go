package driven

import "github.com/custodia-labs/scengen-cli/internal/core/domain"

// Section is a headed slice of a reference document, supplied by
// callers that already know the document's heading structure.
type Section struct {
	// Heading is the section title.
	Heading string

	// Content is the section body.
	Content string
}

// DocumentChunker splits a long reference text into heading-scoped,
// token-bounded chunks. Chunking is pure computation - no I/O - but is
// expressed as a port so core services never depend on a concrete
// post-processor.
type DocumentChunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// NeedsChunking reports whether a text exceeds the configured size
	// threshold. Texts below it bypass chunking and relevance scoring
	// entirely.
	NeedsChunking(text string) bool

	// Chunk produces the deterministic chunk set for a document.
	// Sections may be nil; heading structure is then detected from the
	// text, falling back to fixed-size windows.
	Chunk(documentKey, text string, sections []Section) *domain.ChunkedDocument
}
