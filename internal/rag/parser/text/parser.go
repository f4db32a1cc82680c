// Package text provides a parser for plain text documents.
package text

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/rag/parser"
	"github.com/docsage/docsage/pkg/models"
)

// Parser parses plain text files into a single document unit.
type Parser struct{}

// New creates a new plain text parser.
func New() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "text"
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".txt"}
}

// Parse reads the whole file as one document unit.
func (p *Parser) Parse(ctx context.Context, reader io.Reader, name string) ([]*models.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read text file: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, nil
	}

	doc := &models.Document{
		ID:          uuid.New().String(),
		Name:        name,
		Source:      name,
		ContentType: "text/plain",
		Content:     content,
		Metadata: models.DocumentMetadata{
			Title: parser.FirstLine(content),
		},
		CreatedAt: time.Now(),
	}
	return []*models.Document{doc}, nil
}
