// Package chunker provides text chunking for the ingestion pipeline.
// Chunkers split document units into bounded, overlapping pieces suitable
// for embedding and retrieval.
package chunker

import (
	"github.com/docsage/docsage/pkg/models"
)

// Chunker defines the interface for text chunking strategies.
type Chunker interface {
	// Chunk splits a document unit into chunks. Chunks inherit the unit's
	// metadata and record their position within the unit.
	Chunk(doc *models.Document) ([]*models.DocumentChunk, error)

	// Name returns the chunker name for logging and debugging.
	Name() string
}

// Config contains common configuration for chunkers.
type Config struct {
	// ChunkSize is the maximum size of each chunk in characters.
	// Default: 1000
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the number of characters consecutive chunks share.
	// Must be strictly smaller than ChunkSize.
	// Default: 200
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// DefaultConfig returns the default chunker configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// span is a piece of text with its offset in the original unit.
type span struct {
	text  string
	start int
}
