// Package pdf provides a parser for PDF documents.
//
// Text extraction shells out to the pdftotext tool (poppler-utils). The
// tool needs random access to the file, so the incoming stream is buffered
// to a temporary file that is removed on every exit path.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/rag/parser"
	"github.com/docsage/docsage/pkg/models"
)

// ErrToolNotFound is returned when pdftotext is not installed.
var ErrToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils)")

// CommandRunner executes an external command and returns its stdout.
// It exists as a seam for testing without a pdftotext binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrToolNotFound
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %s: %w", name, msg, err)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Parser parses PDF files into page-per-document units.
type Parser struct {
	runner CommandRunner
}

// New creates a new PDF parser using the system pdftotext binary.
func New() *Parser {
	return &Parser{runner: execRunner{}}
}

// NewWithRunner creates a PDF parser with a custom command runner.
func NewWithRunner(r CommandRunner) *Parser {
	return &Parser{runner: r}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "pdf"
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Parse extracts text page by page. pdftotext separates pages with form
// feeds, so the output splits into one document unit per page.
func (p *Parser) Parse(ctx context.Context, reader io.Reader, name string) ([]*models.Document, error) {
	tmp, err := os.CreateTemp("", "docsage-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, reader); err != nil {
		return nil, fmt.Errorf("buffer pdf to temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("flush temp file: %w", err)
	}

	out, err := p.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	pages := strings.Split(string(out), "\f")
	docs := make([]*models.Document, 0, len(pages))
	now := time.Now()
	title := ""

	for i, page := range pages {
		content := strings.TrimSpace(page)
		if content == "" {
			continue
		}
		if title == "" {
			title = parser.FirstLine(content)
		}

		docs = append(docs, &models.Document{
			ID:          uuid.New().String(),
			Name:        name,
			Source:      name,
			ContentType: "application/pdf",
			Content:     content,
			Metadata: models.DocumentMetadata{
				Title: title,
				Page:  i + 1,
			},
			CreatedAt: now,
		})
	}

	return docs, nil
}
