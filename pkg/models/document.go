// Package models defines the core data types for docsage.
package models

import (
	"time"
)

// Document represents one loaded source unit before splitting.
// Paginated formats produce one Document per page, tabular formats one per
// row, and flat text one per file. Documents are immutable once produced by
// a parser; the ingest pipeline consumes them and emits chunks.
type Document struct {
	// ID is the unique identifier for the document unit.
	ID string `json:"id"`

	// Name is the human-readable name, normally the original filename.
	Name string `json:"name"`

	// Source is the provenance of the document. For uploads this is always
	// the caller-supplied filename, regardless of any temp-file indirection.
	Source string `json:"source"`

	// ContentType is the MIME type of the original file.
	ContentType string `json:"content_type"`

	// Content is the extracted text of this unit.
	Content string `json:"content"`

	// Metadata carries unit-level metadata (page, row, title).
	Metadata DocumentMetadata `json:"metadata"`

	// CreatedAt is when the unit was produced.
	CreatedAt time.Time `json:"created_at"`
}

// DocumentMetadata contains additional information about a document unit.
type DocumentMetadata struct {
	// Title is a best-effort document title.
	Title string `json:"title,omitempty"`

	// Page is the 1-based page number for paginated formats.
	Page int `json:"page,omitempty"`

	// Row is the 1-based row number for tabular formats.
	Row int `json:"row,omitempty"`

	// Extra contains user-defined metadata fields.
	Extra map[string]any `json:"extra,omitempty"`
}

// DocumentChunk is a bounded slice of a document's text, the unit of
// indexing and retrieval. Chunks are created once by the chunker and never
// mutated afterwards.
type DocumentChunk struct {
	// ID is the unique identifier for this chunk.
	ID string `json:"id"`

	// DocumentID links this chunk to its parent document unit.
	DocumentID string `json:"document_id"`

	// Index is the position of this chunk within the unit (0-based).
	Index int `json:"index"`

	// Content is the text content of this chunk.
	Content string `json:"content"`

	// Embedding is the vector embedding for semantic search.
	// Never serialized; it is owned by the vector index after upsert.
	Embedding []float32 `json:"-"`

	// StartOffset is the character offset in the original unit text.
	StartOffset int `json:"start_offset"`

	// EndOffset is the ending character offset.
	EndOffset int `json:"end_offset"`

	// Metadata is inherited from the document and extended with position.
	Metadata ChunkMetadata `json:"metadata"`

	// CreatedAt is when the chunk was created.
	CreatedAt time.Time `json:"created_at"`
}

// ChunkMetadata contains information about a document chunk.
type ChunkMetadata struct {
	// Source is the original filename the chunk came from.
	Source string `json:"source"`

	// DocumentName is the parent document's name.
	DocumentName string `json:"document_name,omitempty"`

	// Page is the page number inherited from the unit, if any.
	Page int `json:"page,omitempty"`

	// Row is the row number inherited from the unit, if any.
	Row int `json:"row,omitempty"`

	// Extra contains additional metadata.
	Extra map[string]any `json:"extra,omitempty"`
}

// SearchResult is a retrieved chunk plus its similarity score.
// Results are ephemeral, produced per query and never persisted.
type SearchResult struct {
	// Chunk is the matching chunk. The embedding field is not populated.
	Chunk *DocumentChunk `json:"chunk"`

	// Score is the similarity score; higher means more similar.
	Score float32 `json:"score"`
}

// Collection status values reported by CollectionDescriptor.
const (
	// CollectionStatusNotFound is the sentinel status for an absent collection.
	CollectionStatusNotFound = "not_found"

	// CollectionStatusGreen indicates a healthy, queryable collection.
	CollectionStatusGreen = "green"
)

// CollectionDescriptor is the persistent configuration and state of the
// vector index's collection.
type CollectionDescriptor struct {
	// Name is the collection name.
	Name string `json:"collection_name"`

	// Dimension is the vector dimension recorded for the collection.
	// It must equal the embedding provider's output dimension.
	Dimension int `json:"vector_dimension,omitempty"`

	// Metric is the distance metric ("cosine" by default).
	Metric string `json:"distance_metric,omitempty"`

	// PointCount is the number of stored vectors.
	PointCount int64 `json:"total_documents"`

	// Status is the collection health status.
	Status string `json:"status"`
}
