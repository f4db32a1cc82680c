// Package openai provides a Generator backed by the OpenAI chat API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/docsage/docsage/internal/llm"
)

// Generator implements llm.Generator using OpenAI chat completions.
// Responses are always streamed; synchronous callers collect the stream.
type Generator struct {
	client       *openai.Client
	defaultModel string
	temperature  float32
}

var _ llm.Generator = (*Generator)(nil)

// Config contains configuration for the OpenAI generator.
type Config struct {
	APIKey      string
	BaseURL     string // optional custom base URL
	Model       string
	Temperature float32
}

// New creates a new OpenAI generator.
func New(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:       openai.NewClientWithConfig(config),
		defaultModel: cfg.Model,
		temperature:  cfg.Temperature,
	}, nil
}

// Name returns the provider name.
func (g *Generator) Name() string {
	return "openai"
}

// Complete sends the prompt and streams the response.
func (g *Generator) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	model := req.Model
	if model == "" {
		model = g.defaultModel
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = g.temperature
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		Stream:      true,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("create completion stream: %w", err)
	}

	chunks := make(chan *llm.CompletionChunk)
	go g.processStream(ctx, stream, chunks)

	return chunks, nil
}

// chatStream is the subset of the OpenAI stream consumed by processStream.
// It exists as a seam for testing without a live endpoint.
type chatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// processStream converts the OpenAI stream into completion chunks.
// It closes the channel on every exit path. Every send selects on ctx so
// an abandoned consumer never strands the goroutine mid-send.
func (g *Generator) processStream(ctx context.Context, stream chatStream, chunks chan<- *llm.CompletionChunk) {
	defer close(chunks)
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			select {
			case chunks <- &llm.CompletionChunk{Done: true}:
			case <-ctx.Done():
			}
			return
		}
		if err != nil {
			select {
			case chunks <- &llm.CompletionChunk{Err: err}:
			case <-ctx.Done():
			}
			return
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		select {
		case chunks <- &llm.CompletionChunk{Text: delta}:
		case <-ctx.Done():
			return
		}
	}
}
