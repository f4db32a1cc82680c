// Package ingest turns raw uploaded files into indexable chunks.
// The pipeline validates the file extension against a closed allow-list,
// loads the file into document units with a format-specific parser, stamps
// provenance, and splits each unit into bounded overlapping chunks.
package ingest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/docsage/docsage/internal/rag/chunker"
	"github.com/docsage/docsage/internal/rag/parser"
	"github.com/docsage/docsage/internal/rag/parser/csvdoc"
	"github.com/docsage/docsage/internal/rag/parser/pdf"
	"github.com/docsage/docsage/internal/rag/parser/text"
	"github.com/docsage/docsage/pkg/models"
)

// Pipeline is the document ingestion pipeline.
type Pipeline struct {
	registry *parser.Registry
	chunker  chunker.Chunker
	logger   *slog.Logger
}

// New creates an ingestion pipeline with the default parser set
// (pdf, txt, csv) and the given chunker.
func New(c chunker.Chunker, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	registry := parser.NewRegistry()
	registry.Register(text.New())
	registry.Register(csvdoc.New())
	registry.Register(pdf.New())

	return &Pipeline{
		registry: registry,
		chunker:  c,
		logger:   logger,
	}
}

// WithRegistry replaces the parser registry.
func (p *Pipeline) WithRegistry(r *parser.Registry) *Pipeline {
	p.registry = r
	return p
}

// SupportedExtensions returns the ingestion allow-list.
func (p *Pipeline) SupportedExtensions() []string {
	return p.registry.Extensions()
}

// Ingest validates, loads and splits one file into chunks.
//
// The extension check happens before the reader is touched, so a rejected
// upload has no side effects. A file that loads but contains no extractable
// text yields an empty slice and a nil error; callers report that
// condition separately from a failure.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, filename string) ([]*models.DocumentChunk, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, NewValidationError("filename is required")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	fp, ok := p.registry.Get(ext)
	if !ok {
		return nil, NewValidationError("unsupported file extension %q (supported: %s)",
			ext, strings.Join(p.registry.Extensions(), ", "))
	}

	docs, err := fp.Parse(ctx, r, filename)
	if err != nil {
		return nil, &ProcessingError{Stage: "load " + fp.Name(), Err: err}
	}

	p.logger.Info("loaded document units",
		"filename", filename, "parser", fp.Name(), "units", len(docs))

	var chunks []*models.DocumentChunk
	for _, doc := range docs {
		// Provenance survives any temp-file indirection: the caller's
		// filename always wins over whatever the loader inferred.
		doc.Source = filename

		docChunks, err := p.chunker.Chunk(doc)
		if err != nil {
			return nil, &ProcessingError{Stage: "split", Err: err}
		}
		for _, c := range docChunks {
			c.Metadata.Source = filename
		}
		chunks = append(chunks, docChunks...)
	}

	p.logger.Info("created chunks", "filename", filename, "chunks", len(chunks))
	return chunks, nil
}
