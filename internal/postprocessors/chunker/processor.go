// Package chunker provides a heading-scoped, token-bounded text
// chunking processor for large reference documents.
package chunker

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.DocumentChunker = (*Processor)(nil)

// DefaultMaxChunkTokens is the default token bound per chunk.
const DefaultMaxChunkTokens = 500

// DefaultThreshold is the default character count above which a
// document is chunked. Shorter documents bypass chunking and relevance
// scoring entirely.
const DefaultThreshold = 6000

// Processor splits document content into heading-scoped, token-bounded
// chunks. Split boundaries follow heading structure where available,
// falling back to fixed-size token-estimated windows elsewhere.
type Processor struct {
	maxChunkTokens int
	threshold      int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChunkTokens sets the token bound per chunk.
func WithMaxChunkTokens(tokens int) Option {
	return func(p *Processor) {
		if tokens > 0 {
			p.maxChunkTokens = tokens
		}
	}
}

// WithThreshold sets the character count above which chunking applies.
func WithThreshold(chars int) Option {
	return func(p *Processor) {
		if chars > 0 {
			p.threshold = chars
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxChunkTokens: DefaultMaxChunkTokens,
		threshold:      DefaultThreshold,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// NeedsChunking reports whether a text exceeds the chunking threshold.
func (p *Processor) NeedsChunking(text string) bool {
	return len(text) > p.threshold
}

// Chunk produces the chunk set for a document. The output is
// deterministic: identical text and key always yield identical chunks
// and ids, so callers can safely reuse a previously stored chunk set.
func (p *Processor) Chunk(documentKey, text string, sections []driven.Section) *domain.ChunkedDocument {
	if sections == nil {
		sections = detectSections(text)
	}

	var chunks []domain.Chunk
	for _, section := range sections {
		for _, window := range p.splitWindows(section.Content) {
			chunks = append(chunks, domain.Chunk{
				ID:              chunkID(documentKey, len(chunks), window),
				Heading:         section.Heading,
				Content:         window,
				Keywords:        domain.ExtractKeywords(section.Heading + " " + window),
				EstimatedTokens: domain.EstimateTokens(window),
			})
		}
	}

	total := 0
	for i := range chunks {
		total += chunks[i].EstimatedTokens
	}

	return &domain.ChunkedDocument{
		DocumentKey: documentKey,
		Chunks:      chunks,
		TotalTokens: total,
		ChunkedAt:   time.Now().UTC(),
	}
}

// splitWindows splits a section body into windows that each stay under
// the token bound. Splits prefer paragraph boundaries; a single
// paragraph longer than the bound is cut at the window size.
func (p *Processor) splitWindows(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if domain.EstimateTokens(content) <= p.maxChunkTokens {
		return []string{content}
	}

	windowChars := p.maxChunkTokens * 4

	var windows []string
	var current strings.Builder
	for _, para := range strings.Split(content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Hard-cut paragraphs that alone exceed the window.
		for len(para) > windowChars {
			if current.Len() > 0 {
				windows = append(windows, strings.TrimSpace(current.String()))
				current.Reset()
			}
			windows = append(windows, strings.TrimSpace(para[:windowChars]))
			para = strings.TrimSpace(para[windowChars:])
		}
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > windowChars {
			windows = append(windows, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		windows = append(windows, strings.TrimSpace(current.String()))
	}

	return windows
}

// detectSections derives heading structure from markdown-style headings.
// Text before the first heading (or text with no headings at all)
// becomes a single heading-less section.
func detectSections(text string) []driven.Section {
	var sections []driven.Section
	var heading string
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content != "" || heading != "" {
			sections = append(sections, driven.Section{Heading: heading, Content: content})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()

	return sections
}

// chunkID derives a deterministic chunk id from the document key, the
// chunk's position and a short content hash.
func chunkID(documentKey string, position int, content string) string {
	h := fnv.New32a()
	h.Write([]byte(content))
	return fmt.Sprintf("%s-%04d-%08x", documentKey, position, h.Sum32())
}
