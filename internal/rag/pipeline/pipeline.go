// Package pipeline composes retrieval, prompt construction and generation
// into the question-answering pipeline.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docsage/docsage/internal/llm"
	"github.com/docsage/docsage/internal/vectorstore"
	"github.com/docsage/docsage/pkg/models"
)

// FallbackAnswer is the phrase the generator is instructed to use when the
// retrieved context cannot answer the question.
const FallbackAnswer = "I don't have enough information to answer that question."

// contextSeparator joins retrieved chunks so adjacent chunks cannot be
// misread as continuous prose.
const contextSeparator = "\n\n---\n\n"

// promptTemplate binds the retrieved context and the question. The
// generator is told to answer only from the context and to admit inability
// rather than fabricate.
const promptTemplate = `You are a helpful assistant. Answer the question based on the provided context.

If you cannot answer the question based on the context, say "` + FallbackAnswer + `"

Do not make up information. Only use the context provided.

Context:
%s

Question: %s

Answer:`

// truncationMarker is appended to source previews that were cut.
const truncationMarker = "..."

// Evaluator scores an answer against its question and retrieved contexts.
// Implementations always return a score and never fail the caller; see the
// eval package.
type Evaluator interface {
	Evaluate(ctx context.Context, question, answer string, contexts []string) *models.EvaluationScore
}

// GenerationError reports a failure in the generation stage. Retrieval and
// generation failures propagate to the caller as typed errors; no partial
// answer is ever returned.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Config contains pipeline configuration.
type Config struct {
	// K is the number of chunks retrieved per question.
	K int

	// PreviewLength is the character budget for source previews.
	// Default: 500
	PreviewLength int
}

// Pipeline answers questions over one vector index.
type Pipeline struct {
	index     vectorstore.Index
	generator llm.Generator
	evaluator Evaluator // optional, nil disables evaluation
	config    Config
	logger    *slog.Logger
}

// New creates a pipeline over the given index and generator. The evaluator
// is an explicitly optional dependency; pass nil to disable evaluation.
func New(index vectorstore.Index, generator llm.Generator, evaluator Evaluator, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		index:     index,
		generator: generator,
		evaluator: evaluator,
		config:    cfg,
		logger:    logger,
	}
}

// Query answers a question and returns only the answer text.
func (p *Pipeline) Query(ctx context.Context, question string) (string, error) {
	result, err := p.answer(ctx, question)
	if err != nil {
		return "", err
	}
	return result.answer, nil
}

// QueryWithSources answers a question and returns the answer together with
// previews of the retrieved chunks, in retrieval order.
func (p *Pipeline) QueryWithSources(ctx context.Context, question string) (*models.AnswerResult, error) {
	start := time.Now()
	result, err := p.answer(ctx, question)
	if err != nil {
		return nil, err
	}

	return &models.AnswerResult{
		Question:         question,
		Answer:           result.answer,
		Sources:          p.sources(result.matches),
		ProcessingTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// Stream answers a question as a finite stream of answer fragments.
// Retrieval and prompt construction happen eagerly; the generation stage is
// consumed incrementally. The stream is not restartable: a fresh call
// re-executes retrieval.
func (p *Pipeline) Stream(ctx context.Context, question string) (<-chan *llm.CompletionChunk, error) {
	matches, err := p.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	chunks, err := p.generator.Complete(ctx, &llm.CompletionRequest{
		Prompt: p.renderPrompt(question, matches),
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	return chunks, nil
}

// QueryWithEvaluation answers a question and then scores the answer.
// Evaluation failures, including timeouts, degrade to an EvaluationScore
// carrying the error; they never fail the overall call. The answer and the
// sources always come from the same retrieval invocation.
func (p *Pipeline) QueryWithEvaluation(ctx context.Context, question string, includeSources bool) (*models.AnswerResult, error) {
	start := time.Now()
	result, err := p.answer(ctx, question)
	if err != nil {
		return nil, err
	}

	answer := &models.AnswerResult{
		Question: question,
		Answer:   result.answer,
	}
	if includeSources {
		answer.Sources = p.sources(result.matches)
	}

	if p.evaluator != nil {
		contexts := make([]string, len(result.matches))
		for i, m := range result.matches {
			contexts[i] = m.Chunk.Content
		}
		answer.Evaluation = p.evaluator.Evaluate(ctx, question, result.answer, contexts)
	}

	answer.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	return answer, nil
}

// answered holds the outcome of one retrieval + generation pass. The
// matches are threaded through so that the answer and any sources or
// evaluation contexts come from the same retrieval.
type answered struct {
	answer  string
	matches []*models.SearchResult
}

func (p *Pipeline) answer(ctx context.Context, question string) (*answered, error) {
	matches, err := p.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	chunks, err := p.generator.Complete(ctx, &llm.CompletionRequest{
		Prompt: p.renderPrompt(question, matches),
	})
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	text, err := llm.Collect(ctx, chunks)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	return &answered{
		answer:  strings.TrimSpace(text),
		matches: matches,
	}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, question string) ([]*models.SearchResult, error) {
	matches, err := p.index.SearchWithScores(ctx, question, p.config.K)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("retrieved context", "question", preview(question, 50), "matches", len(matches))
	return matches, nil
}

func (p *Pipeline) renderPrompt(question string, matches []*models.SearchResult) string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Chunk.Content
	}
	context := strings.Join(texts, contextSeparator)
	return fmt.Sprintf(promptTemplate, context, question)
}

// sources builds preview entries for the retrieved chunks, preserving
// retrieval order and truncating content to the configured budget.
func (p *Pipeline) sources(matches []*models.SearchResult) []models.SourceDocument {
	sources := make([]models.SourceDocument, len(matches))
	for i, m := range matches {
		content := m.Chunk.Content
		if len(content) > p.config.PreviewLength {
			content = content[:p.config.PreviewLength] + truncationMarker
		}
		sources[i] = models.SourceDocument{
			Content:  content,
			Metadata: m.Chunk.Metadata,
		}
	}
	return sources
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
