// Package vectorstore defines the vector index abstraction over one named
// collection in a vector database.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/docsage/docsage/pkg/models"
)

// Index owns one named collection: idempotent creation, upsert, similarity
// search, introspection, deletion and health checking.
//
// Implementations are safe for concurrent use. EnsureReady is the only
// operation that requires race-tolerant handling; concurrent initializers
// must resolve to a single logical collection.
type Index interface {
	// EnsureReady gets or creates the collection. When the collection
	// already exists its recorded dimension and metric are verified
	// against the active embedding provider; a mismatch is a hard error.
	// "Already exists" during creation is success, not an error.
	EnsureReady(ctx context.Context) error

	// Upsert embeds all chunk texts in one batched call and writes the
	// (id, vector, text, metadata) tuples. One id is returned per chunk,
	// in input order. Empty input returns an empty slice without
	// contacting the store or the embedding provider.
	Upsert(ctx context.Context, chunks []*models.DocumentChunk) ([]string, error)

	// Search embeds the query and returns at most k chunks ordered by
	// descending similarity. k <= 0 uses the configured retrieval width.
	Search(ctx context.Context, query string, k int) ([]*models.DocumentChunk, error)

	// SearchWithScores is Search with the similarity score exposed.
	SearchWithScores(ctx context.Context, query string, k int) ([]*models.SearchResult, error)

	// Describe returns the collection's current point count and status.
	// An absent collection yields a zero-count descriptor with the
	// not_found status, not an error.
	Describe(ctx context.Context) (*models.CollectionDescriptor, error)

	// Delete irreversibly removes the entire collection. This is a
	// destructive administrative operation; per-document deletion is
	// deliberately not provided.
	Delete(ctx context.Context) error

	// HealthCheck is a lightweight connectivity probe meant to be polled.
	// Failures are reported as false, never as an error.
	HealthCheck(ctx context.Context) bool
}

// IndexError wraps a vector index failure with the operation that caused
// it. Index errors are always caller-facing server errors.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("vector index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// NewIndexError wraps err as an IndexError for the given operation.
func NewIndexError(op string, err error) *IndexError {
	return &IndexError{Op: op, Err: err}
}
