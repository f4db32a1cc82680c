package chunker

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/docsage/docsage/pkg/models"
)

// DefaultSeparators is the separator hierarchy, largest semantic unit
// first. Splits are attempted in order; the empty string is the last
// resort and cuts between characters.
var DefaultSeparators = []string{
	"\n\n", // paragraph break
	"\n",   // line break
	". ",   // sentence end
	"? ",   // question end
	"! ",   // exclamation end
	" ",    // space
	"",     // character (last resort)
}

// RecursiveSplitter implements a recursive chunking strategy. It tries to
// split on larger separators first, then falls back to smaller ones, and
// reassembles the pieces into chunks of at most ChunkSize characters with
// ChunkOverlap characters carried between consecutive chunks.
type RecursiveSplitter struct {
	config     Config
	separators []string
}

// NewRecursiveSplitter creates a new recursive text splitter.
// The overlap must be strictly smaller than the chunk size; an overlap at
// or above the chunk size would produce chunks that never advance.
func NewRecursiveSplitter(cfg Config) (*RecursiveSplitter, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", cfg.ChunkOverlap)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}

	return &RecursiveSplitter{
		config:     cfg,
		separators: DefaultSeparators,
	}, nil
}

// WithSeparators sets custom separators.
func (s *RecursiveSplitter) WithSeparators(seps []string) *RecursiveSplitter {
	s.separators = seps
	return s
}

// Name returns the chunker name.
func (s *RecursiveSplitter) Name() string {
	return "recursive_character"
}

// Chunk splits a document unit into chunks.
func (s *RecursiveSplitter) Chunk(doc *models.Document) ([]*models.DocumentChunk, error) {
	content := doc.Content
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	pieces := s.split(content, s.separators)
	merged := s.merge(pieces)

	chunks := make([]*models.DocumentChunk, 0, len(merged))
	now := time.Now()

	for _, sp := range merged {
		text := strings.TrimSpace(sp.text)
		if text == "" {
			continue
		}

		// Offsets frame the trimmed content, so content[start:end] in the
		// unit text reproduces the chunk exactly.
		start := sp.start + (len(sp.text) - len(strings.TrimLeftFunc(sp.text, unicode.IsSpace)))

		chunks = append(chunks, &models.DocumentChunk{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			Index:       len(chunks),
			Content:     text,
			StartOffset: start,
			EndOffset:   start + len(text),
			Metadata: models.ChunkMetadata{
				Source:       doc.Source,
				DocumentName: doc.Name,
				Page:         doc.Metadata.Page,
				Row:          doc.Metadata.Row,
			},
			CreatedAt: now,
		})
	}

	return chunks, nil
}

// split recursively breaks text into pieces no longer than ChunkSize,
// preferring the largest separator present.
func (s *RecursiveSplitter) split(text string, separators []string) []string {
	if len(text) <= s.config.ChunkSize {
		return []string{text}
	}

	// Find the first separator that exists in the text
	separator := ""
	rest := separators
	for i, sep := range separators {
		if sep == "" {
			rest = nil
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	if separator == "" {
		// Last resort: hard cut between characters
		var out []string
		for len(text) > s.config.ChunkSize {
			out = append(out, text[:s.config.ChunkSize])
			text = text[s.config.ChunkSize:]
		}
		if text != "" {
			out = append(out, text)
		}
		return out
	}

	// SplitAfter keeps the separator attached so concatenation is lossless
	parts := strings.SplitAfter(text, separator)
	var out []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len(part) > s.config.ChunkSize {
			out = append(out, s.split(part, rest)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// merge greedily packs pieces into chunks of at most ChunkSize characters.
// When a chunk fills up, the tail of the window is retained as the overlap
// prefix of the next chunk.
func (s *RecursiveSplitter) merge(pieces []string) []span {
	var result []span

	var window []span // pieces in the current chunk
	total := 0
	offset := 0

	flush := func() {
		if total == 0 {
			return
		}
		var sb strings.Builder
		for _, p := range window {
			sb.WriteString(p.text)
		}
		result = append(result, span{text: sb.String(), start: window[0].start})
	}

	for _, piece := range pieces {
		if total > 0 && total+len(piece) > s.config.ChunkSize {
			flush()

			// Retain the overlap tail, then drop from the front until the
			// new piece fits again.
			for len(window) > 0 &&
				(total > s.config.ChunkOverlap || total+len(piece) > s.config.ChunkSize) {
				total -= len(window[0].text)
				window = window[1:]
			}
		}
		window = append(window, span{text: piece, start: offset})
		total += len(piece)
		offset += len(piece)
	}
	flush()

	return result
}
