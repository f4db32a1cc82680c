// Package llm defines the generation capability consumed by the RAG
// pipeline and the quality evaluator.
package llm

import (
	"context"
	"strings"
)

// Generator is the interface for text generation backends.
//
// Implementations must be safe for concurrent use; multiple goroutines may
// call Complete simultaneously for different requests.
type Generator interface {
	// Complete sends a prompt and returns a streaming response. The
	// channel is closed when generation finishes; the final chunk has
	// Done set, or Err set when the stream failed mid-flight.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name.
	Name() string
}

// CompletionRequest contains the parameters for one generation call.
type CompletionRequest struct {
	// Model specifies which model to use. Empty uses the provider default.
	Model string `json:"model,omitempty"`

	// System is the system prompt, handled separately from the user turn.
	System string `json:"system,omitempty"`

	// Prompt is the user message content.
	Prompt string `json:"prompt"`

	// Temperature controls sampling randomness.
	Temperature float32 `json:"temperature,omitempty"`

	// MaxTokens limits the response length. 0 uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionChunk is a single fragment of a streaming response.
type CompletionChunk struct {
	// Text contains partial response text.
	Text string `json:"text,omitempty"`

	// Done is true when the stream completed successfully.
	Done bool `json:"done,omitempty"`

	// Err carries a mid-stream failure; the stream terminates after it.
	Err error `json:"-"`
}

// Collect drains a completion stream into the full response text.
// It returns the first stream error encountered.
func Collect(ctx context.Context, chunks <-chan *CompletionChunk) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return sb.String(), nil
			}
			if chunk.Err != nil {
				return "", chunk.Err
			}
			sb.WriteString(chunk.Text)
			if chunk.Done {
				// Drain until close so the producer goroutine exits
				for range chunks {
				}
				return sb.String(), nil
			}
		}
	}
}
