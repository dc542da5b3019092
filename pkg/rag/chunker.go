package rag

import (
	"strings"

	"github.com/agenthub/agenthub/pkg/config"
)

// defaultSeparators is the boundary preference ladder: paragraph, line,
// sentence, word, then hard character cut.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunk is one piece of a split document.
type Chunk struct {
	Content string
	Index   int
	Total   int
}

// RecursiveChunker splits text at the largest natural boundary that still
// yields pieces within the target size, falling back through the separator
// ladder and finally to a hard cut.
type RecursiveChunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewRecursiveChunker(cfg config.ChunkingConfig) *RecursiveChunker {
	cfg.SetDefaults()
	return &RecursiveChunker{
		chunkSize:  cfg.ChunkSize,
		overlap:    cfg.ChunkOverlap,
		separators: defaultSeparators,
	}
}

// Chunk splits content and annotates each piece with its position.
func (c *RecursiveChunker) Chunk(content string) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	pieces := c.splitText(content, c.separators)
	chunks := make([]Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunks = append(chunks, Chunk{Content: p, Index: i, Total: len(pieces)})
	}
	return chunks
}

func (c *RecursiveChunker) splitText(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, s := range separators {
		if s == "" {
			separator = ""
			break
		}
		if strings.Contains(text, s) {
			separator = s
			remaining = separators[i+1:]
			break
		}
	}

	if separator == "" {
		return c.hardCut(text)
	}

	parts := strings.Split(text, separator)
	splits := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(parts)-1 {
			p += separator
		}
		if p != "" {
			splits = append(splits, p)
		}
	}

	var final []string
	var pending []string
	for _, s := range splits {
		if len(s) <= c.chunkSize {
			pending = append(pending, s)
			continue
		}
		final = append(final, c.merge(pending)...)
		pending = nil
		final = append(final, c.splitText(s, remaining)...)
	}
	final = append(final, c.merge(pending)...)
	return final
}

// merge greedily joins adjacent splits into chunks, keeping the configured
// overlap of trailing splits between consecutive chunks.
func (c *RecursiveChunker) merge(splits []string) []string {
	var chunks []string
	var current []string
	total := 0

	for _, s := range splits {
		if total+len(s) > c.chunkSize && total > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for len(current) > 0 && (total > c.overlap || (total+len(s) > c.chunkSize && total > 0)) {
				total -= len(current[0])
				current = current[1:]
			}
		}
		current = append(current, s)
		total += len(s)
	}
	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func (c *RecursiveChunker) hardCut(text string) []string {
	runes := []rune(text)
	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = c.chunkSize
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
