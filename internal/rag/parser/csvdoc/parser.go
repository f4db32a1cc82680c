// Package csvdoc provides a parser for CSV files.
// Each data row becomes its own document unit so that rows are retrievable
// independently, mirroring how tabular records are usually queried.
package csvdoc

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docsage/docsage/pkg/models"
)

// Parser parses CSV files into row-per-document units.
type Parser struct{}

// New creates a new CSV parser.
func New() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "csv"
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".csv"}
}

// Parse reads the CSV and emits one document unit per data row. The first
// row is treated as the header; each unit's content lists "header: value"
// pairs line by line.
func (p *Parser) Parse(ctx context.Context, reader io.Reader, name string) ([]*models.Document, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var docs []*models.Document
	now := time.Now()
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row+1, err)
		}
		row++

		content := formatRow(header, record)
		if strings.TrimSpace(content) == "" {
			continue
		}

		docs = append(docs, &models.Document{
			ID:          uuid.New().String(),
			Name:        name,
			Source:      name,
			ContentType: "text/csv",
			Content:     content,
			Metadata: models.DocumentMetadata{
				Row: row,
			},
			CreatedAt: now,
		})
	}

	return docs, nil
}

func formatRow(header, record []string) string {
	var sb strings.Builder
	for i, value := range record {
		key := fmt.Sprintf("column_%d", i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			key = strings.TrimSpace(header[i])
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(value)
	}
	return sb.String()
}
