package chunker

import (
	"strings"
	"testing"

	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.maxChunkTokens != DefaultMaxChunkTokens {
			t.Errorf("expected maxChunkTokens %d, got %d", DefaultMaxChunkTokens, p.maxChunkTokens)
		}
		if p.threshold != DefaultThreshold {
			t.Errorf("expected threshold %d, got %d", DefaultThreshold, p.threshold)
		}
	})

	t.Run("custom token bound", func(t *testing.T) {
		p := New(WithMaxChunkTokens(250))
		if p.maxChunkTokens != 250 {
			t.Errorf("expected maxChunkTokens 250, got %d", p.maxChunkTokens)
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithMaxChunkTokens(0), WithThreshold(-1))
		if p.maxChunkTokens != DefaultMaxChunkTokens {
			t.Errorf("expected default maxChunkTokens, got %d", p.maxChunkTokens)
		}
		if p.threshold != DefaultThreshold {
			t.Errorf("expected default threshold, got %d", p.threshold)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestProcessor_NeedsChunking(t *testing.T) {
	p := New(WithThreshold(100))

	if p.NeedsChunking(strings.Repeat("x", 100)) {
		t.Error("text at the threshold should not need chunking")
	}
	if !p.NeedsChunking(strings.Repeat("x", 101)) {
		t.Error("text above the threshold should need chunking")
	}
}

func TestProcessor_Chunk_EmptyContent(t *testing.T) {
	p := New()
	doc := p.Chunk("doc-1", "", nil)

	if len(doc.Chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(doc.Chunks))
	}
	if doc.TotalTokens != 0 {
		t.Errorf("expected 0 total tokens, got %d", doc.TotalTokens)
	}
	if doc.DocumentKey != "doc-1" {
		t.Errorf("expected document key 'doc-1', got '%s'", doc.DocumentKey)
	}
}

func TestProcessor_Chunk_HeadingScoped(t *testing.T) {
	p := New()
	text := "# Checkout\nThe checkout flow validates vouchers.\n\n# Payments\nPayments settle through the gateway.\n"

	doc := p.Chunk("manual", text, nil)

	if len(doc.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(doc.Chunks))
	}
	if doc.Chunks[0].Heading != "Checkout" {
		t.Errorf("expected heading 'Checkout', got '%s'", doc.Chunks[0].Heading)
	}
	if doc.Chunks[1].Heading != "Payments" {
		t.Errorf("expected heading 'Payments', got '%s'", doc.Chunks[1].Heading)
	}
	if !strings.Contains(doc.Chunks[0].Content, "vouchers") {
		t.Errorf("chunk content lost section body: %q", doc.Chunks[0].Content)
	}
}

func TestProcessor_Chunk_ExplicitSections(t *testing.T) {
	p := New()
	sections := []driven.Section{
		{Heading: "Orders", Content: "Order lifecycle description."},
		{Heading: "Refunds", Content: "Refund rules description."},
	}

	doc := p.Chunk("manual", "ignored when sections are supplied", sections)

	if len(doc.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(doc.Chunks))
	}
	if doc.Chunks[0].Heading != "Orders" || doc.Chunks[1].Heading != "Refunds" {
		t.Errorf("unexpected headings: %q, %q", doc.Chunks[0].Heading, doc.Chunks[1].Heading)
	}
}

func TestProcessor_Chunk_TokenBound(t *testing.T) {
	p := New(WithMaxChunkTokens(50))

	// 10 paragraphs of ~160 chars each, no headings.
	para := strings.Repeat("order checkout voucher payment refund inventory ", 3)
	text := strings.TrimSpace(strings.Repeat(para+"\n\n", 10))

	doc := p.Chunk("doc-1", text, nil)

	if len(doc.Chunks) < 2 {
		t.Fatalf("expected content to split into multiple chunks, got %d", len(doc.Chunks))
	}
	for _, chunk := range doc.Chunks {
		if chunk.EstimatedTokens > 50 {
			t.Errorf("chunk %s exceeds token bound: %d", chunk.ID, chunk.EstimatedTokens)
		}
	}
}

func TestProcessor_Chunk_Deterministic(t *testing.T) {
	p := New(WithMaxChunkTokens(50))
	text := "# Section\n" + strings.Repeat("checkout voucher payment flows. ", 40)

	first := p.Chunk("doc-1", text, nil)
	second := p.Chunk("doc-1", text, nil)

	if len(first.Chunks) != len(second.Chunks) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first.Chunks), len(second.Chunks))
	}
	for i := range first.Chunks {
		if first.Chunks[i].ID != second.Chunks[i].ID {
			t.Errorf("chunk %d ids differ: %s vs %s", i, first.Chunks[i].ID, second.Chunks[i].ID)
		}
		if first.Chunks[i].Content != second.Chunks[i].Content {
			t.Errorf("chunk %d content differs", i)
		}
	}
}

func TestProcessor_Chunk_KeywordsExtracted(t *testing.T) {
	p := New()
	doc := p.Chunk("doc-1", "# Voucher Rules\nVouchers reduce the order total at checkout.\n", nil)

	if len(doc.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(doc.Chunks))
	}
	keywords := doc.Chunks[0].Keywords
	want := map[string]bool{"voucher": false, "checkout": false}
	for _, kw := range keywords {
		if _, ok := want[kw]; ok {
			want[kw] = true
		}
	}
	for kw, found := range want {
		if !found {
			t.Errorf("expected keyword %q in %v", kw, keywords)
		}
	}
}

func TestProcessor_Chunk_LongParagraphHardCut(t *testing.T) {
	p := New(WithMaxChunkTokens(25))
	// One paragraph far beyond the window, no blank lines.
	text := strings.Repeat("inventory ", 60)

	doc := p.Chunk("doc-1", text, nil)

	if len(doc.Chunks) < 2 {
		t.Fatalf("expected hard-cut into multiple chunks, got %d", len(doc.Chunks))
	}
	for _, chunk := range doc.Chunks {
		if chunk.EstimatedTokens > 25 {
			t.Errorf("chunk exceeds token bound: %d", chunk.EstimatedTokens)
		}
	}
}
