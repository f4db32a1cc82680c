// Package embeddings provides interfaces and implementations for embedding
// providers.
package embeddings

import (
	"context"
)

// Provider defines the interface for embedding providers.
//
// A single provider instance is constructed at startup and shared; the
// model handshake is amortized over the process lifetime. Implementations
// must be safe for concurrent use.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, order-preserving.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name.
	Name() string

	// Dimension returns the embedding dimension. The vector index treats
	// this value as authoritative for its collection configuration.
	Dimension() int

	// MaxBatchSize returns the maximum number of texts per batch.
	MaxBatchSize() int
}
