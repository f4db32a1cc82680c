// Package parser provides document parsing interfaces and implementations
// for the ingestion pipeline.
package parser

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/docsage/docsage/pkg/models"
)

// Parser defines the interface for format-specific document loaders.
// A parser turns a raw file into one or more document units: one per page
// for paginated formats, one per row for tabular formats, one per file for
// flat text.
type Parser interface {
	// Parse extracts document units from the reader. The name is the
	// original filename and is recorded as each unit's Name. Parsers
	// return an empty slice, not an error, when the file contains no
	// extractable text.
	Parse(ctx context.Context, reader io.Reader, name string) ([]*models.Document, error)

	// Name returns the parser name for logging and debugging.
	Name() string

	// SupportedExtensions returns the file extensions this parser handles.
	SupportedExtensions() []string
}

// Registry manages available parsers keyed by file extension.
// The set of registered extensions is the ingestion allow-list.
type Registry struct {
	mu           sync.RWMutex
	parsersByExt map[string]Parser
}

// NewRegistry creates a new parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsersByExt: make(map[string]Parser),
	}
}

// Register adds a parser for all its supported extensions.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range p.SupportedExtensions() {
		r.parsersByExt[normalizeExt(ext)] = p
	}
}

// Get returns the parser for a file extension.
func (r *Registry) Get(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsersByExt[normalizeExt(ext)]
	return p, ok
}

// Extensions returns the sorted list of registered extensions, with leading
// dots, for use in error messages.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.parsersByExt))
	for ext := range r.parsersByExt {
		exts = append(exts, "."+ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// FirstLine returns the first non-empty line of content, capped, for use as
// a best-effort title.
func FirstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 100 {
			return line[:100] + "..."
		}
		return line
	}
	return ""
}
