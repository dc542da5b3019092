package rag

import (
	"strings"
	"testing"

	"github.com/agenthub/agenthub/pkg/config"
)

func TestRecursiveChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewRecursiveChunker(config.ChunkingConfig{ChunkSize: 1000, ChunkOverlap: 200})

	chunks := c.Chunk("Shipping normally takes three business days.")
	if len(chunks) != 1 {
		t.Fatalf("Chunk() returned %d chunks, want 1", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[0].Total != 1 {
		t.Errorf("chunk position = %d/%d, want 0/1", chunks[0].Index, chunks[0].Total)
	}
}

func TestRecursiveChunker_EmptyText(t *testing.T) {
	c := NewRecursiveChunker(config.ChunkingConfig{ChunkSize: 1000, ChunkOverlap: 200})
	if chunks := c.Chunk("   \n\n  "); chunks != nil {
		t.Errorf("Chunk() on blank text = %v, want nil", chunks)
	}
}

func TestRecursiveChunker_PrefersParagraphBoundaries(t *testing.T) {
	c := NewRecursiveChunker(config.ChunkingConfig{ChunkSize: 60, ChunkOverlap: 10})

	text := "First paragraph about shipping.\n\nSecond paragraph about returns and refunds.\n\nThird paragraph about support."
	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("Chunk() returned %d chunks, want several", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk.Content) > 60 {
			t.Errorf("chunk exceeds size: %d chars: %q", len(chunk.Content), chunk.Content)
		}
		if chunk.Total != len(chunks) {
			t.Errorf("chunk total = %d, want %d", chunk.Total, len(chunks))
		}
	}
	if !strings.Contains(chunks[0].Content, "First paragraph") {
		t.Errorf("first chunk = %q, want it to start with the first paragraph", chunks[0].Content)
	}
}

func TestRecursiveChunker_OverlapCarriesContext(t *testing.T) {
	c := NewRecursiveChunker(config.ChunkingConfig{ChunkSize: 20, ChunkOverlap: 10})

	chunks := c.Chunk("aaaa bbbb cccc dddd eeee ffff")
	if len(chunks) != 2 {
		t.Fatalf("Chunk() returned %d chunks, want 2: %v", len(chunks), chunks)
	}
	if chunks[0].Content != "aaaa bbbb cccc dddd" {
		t.Errorf("first chunk = %q", chunks[0].Content)
	}
	if !strings.HasPrefix(chunks[1].Content, "cccc dddd") {
		t.Errorf("second chunk = %q, want overlap from first", chunks[1].Content)
	}
}

func TestRecursiveChunker_HardCutWithoutSeparators(t *testing.T) {
	c := NewRecursiveChunker(config.ChunkingConfig{ChunkSize: 30, ChunkOverlap: 5})

	chunks := c.Chunk(strings.Repeat("x", 100))
	if len(chunks) != 4 {
		t.Fatalf("Chunk() returned %d chunks, want 4", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk.Content) > 30 {
			t.Errorf("chunk exceeds size: %d chars", len(chunk.Content))
		}
	}
}

func TestRecursiveChunker_AppliesDefaults(t *testing.T) {
	c := NewRecursiveChunker(config.ChunkingConfig{})
	if c.chunkSize != 1000 || c.overlap != 200 {
		t.Errorf("defaults = size %d overlap %d, want 1000/200", c.chunkSize, c.overlap)
	}
}
