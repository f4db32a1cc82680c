package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/docsage/docsage/internal/llm"
	"github.com/docsage/docsage/internal/vectorstore"
	"github.com/docsage/docsage/pkg/models"
)

type fakeIndex struct {
	results []*models.SearchResult
	err     error

	gotQuery string
	gotK     int
}

func (f *fakeIndex) EnsureReady(ctx context.Context) error { return nil }

func (f *fakeIndex) Upsert(ctx context.Context, chunks []*models.DocumentChunk) ([]string, error) {
	return nil, nil
}

func (f *fakeIndex) Search(ctx context.Context, query string, k int) ([]*models.DocumentChunk, error) {
	results, err := f.SearchWithScores(ctx, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]*models.DocumentChunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	return chunks, nil
}

func (f *fakeIndex) SearchWithScores(ctx context.Context, query string, k int) ([]*models.SearchResult, error) {
	f.gotQuery = query
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeIndex) Describe(ctx context.Context) (*models.CollectionDescriptor, error) {
	return &models.CollectionDescriptor{}, nil
}

func (f *fakeIndex) Delete(ctx context.Context) error { return nil }

func (f *fakeIndex) HealthCheck(ctx context.Context) bool { return true }

type fakeGenerator struct {
	texts       []string
	completeErr error
	streamErr   error

	gotPrompt string
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	f.gotPrompt = req.Prompt
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	chunks := make(chan *llm.CompletionChunk)
	go func() {
		defer close(chunks)
		for _, text := range f.texts {
			chunks <- &llm.CompletionChunk{Text: text}
		}
		if f.streamErr != nil {
			chunks <- &llm.CompletionChunk{Err: f.streamErr}
			return
		}
		chunks <- &llm.CompletionChunk{Done: true}
	}()
	return chunks, nil
}

type fakeEvaluator struct {
	score *models.EvaluationScore

	gotQuestion string
	gotAnswer   string
	gotContexts []string
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, question, answer string, contexts []string) *models.EvaluationScore {
	f.gotQuestion = question
	f.gotAnswer = answer
	f.gotContexts = contexts
	return f.score
}

func searchResult(content string, score float32) *models.SearchResult {
	return &models.SearchResult{
		Chunk: &models.DocumentChunk{
			Content: content,
			Metadata: models.ChunkMetadata{
				Source: "doc.txt",
			},
		},
		Score: score,
	}
}

func TestQuery_AnswerPassThrough(t *testing.T) {
	index := &fakeIndex{results: []*models.SearchResult{searchResult("Paris is the capital of France.", 0.9)}}
	gen := &fakeGenerator{texts: []string{"Paris", " is the capital."}}
	p := New(index, gen, nil, Config{K: 4}, nil)

	answer, err := p.Query(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if answer != "Paris is the capital." {
		t.Errorf("answer = %q", answer)
	}
	if index.gotK != 4 {
		t.Errorf("retrieval k = %d, want 4", index.gotK)
	}
	if index.gotQuery != "What is the capital of France?" {
		t.Errorf("retrieval query = %q", index.gotQuery)
	}
}

func TestQuery_PromptContainsContextsAndQuestion(t *testing.T) {
	index := &fakeIndex{results: []*models.SearchResult{
		searchResult("First chunk.", 0.9),
		searchResult("Second chunk.", 0.8),
	}}
	gen := &fakeGenerator{texts: []string{"ok"}}
	p := New(index, gen, nil, Config{K: 2}, nil)

	if _, err := p.Query(context.Background(), "What?"); err != nil {
		t.Fatalf("Query: %v", err)
	}

	if !strings.Contains(gen.gotPrompt, "First chunk.\n\n---\n\nSecond chunk.") {
		t.Errorf("prompt does not join contexts with the separator:\n%s", gen.gotPrompt)
	}
	if !strings.Contains(gen.gotPrompt, "Question: What?") {
		t.Errorf("prompt does not contain the question:\n%s", gen.gotPrompt)
	}
	if !strings.Contains(gen.gotPrompt, FallbackAnswer) {
		t.Errorf("prompt does not instruct the fallback phrase:\n%s", gen.gotPrompt)
	}
}

func TestQuery_RetrievalErrorPropagates(t *testing.T) {
	index := &fakeIndex{err: vectorstore.NewIndexError("search", errors.New("connection refused"))}
	gen := &fakeGenerator{texts: []string{"unused"}}
	p := New(index, gen, nil, Config{K: 4}, nil)

	_, err := p.Query(context.Background(), "What?")
	var indexErr *vectorstore.IndexError
	if !errors.As(err, &indexErr) {
		t.Fatalf("err = %v, want IndexError", err)
	}
}

func TestQuery_GenerationErrorsAreTyped(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{name: "complete fails", gen: &fakeGenerator{completeErr: errors.New("rate limited")}},
		{name: "stream fails", gen: &fakeGenerator{texts: []string{"partial"}, streamErr: errors.New("connection reset")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := &fakeIndex{results: []*models.SearchResult{searchResult("ctx", 0.9)}}
			p := New(index, tt.gen, nil, Config{K: 4}, nil)

			_, err := p.Query(context.Background(), "What?")
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("err = %v, want GenerationError", err)
			}
		})
	}
}

func TestQueryWithSources_PreviewTruncation(t *testing.T) {
	long := strings.Repeat("a", 600)
	index := &fakeIndex{results: []*models.SearchResult{
		searchResult(long, 0.9),
		searchResult("short", 0.8),
	}}
	gen := &fakeGenerator{texts: []string{"answer"}}
	p := New(index, gen, nil, Config{K: 2, PreviewLength: 500}, nil)

	result, err := p.QueryWithSources(context.Background(), "What?")
	if err != nil {
		t.Fatalf("QueryWithSources: %v", err)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("got %d sources, want 2", len(result.Sources))
	}

	want := strings.Repeat("a", 500) + "..."
	if result.Sources[0].Content != want {
		t.Errorf("source 0 = %d chars ending %q, want truncated preview",
			len(result.Sources[0].Content), result.Sources[0].Content[len(result.Sources[0].Content)-5:])
	}
	if result.Sources[1].Content != "short" {
		t.Errorf("source 1 = %q, want untouched content", result.Sources[1].Content)
	}
	if result.Sources[0].Metadata.Source != "doc.txt" {
		t.Errorf("source 0 metadata = %+v", result.Sources[0].Metadata)
	}
	if result.ProcessingTimeMs < 0 {
		t.Errorf("ProcessingTimeMs = %f", result.ProcessingTimeMs)
	}
}

func TestStream_FragmentsInOrder(t *testing.T) {
	index := &fakeIndex{results: []*models.SearchResult{searchResult("ctx", 0.9)}}
	gen := &fakeGenerator{texts: []string{"The ", "answer ", "streams."}}
	p := New(index, gen, nil, Config{K: 4}, nil)

	chunks, err := p.Stream(context.Background(), "What?")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	var sb strings.Builder
	done := false
	for chunk := range chunks {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		sb.WriteString(chunk.Text)
		if chunk.Done {
			done = true
		}
	}
	if !done {
		t.Error("stream did not signal completion")
	}
	if sb.String() != "The answer streams." {
		t.Errorf("streamed text = %q", sb.String())
	}
}

func TestQueryWithEvaluation_ScoresAttached(t *testing.T) {
	index := &fakeIndex{results: []*models.SearchResult{
		searchResult("Context one.", 0.9),
		searchResult("Context two.", 0.8),
	}}
	gen := &fakeGenerator{texts: []string{"The answer."}}
	faithfulness, relevancy := 0.9, 0.8
	evaluator := &fakeEvaluator{score: &models.EvaluationScore{
		Faithfulness:    &faithfulness,
		AnswerRelevancy: &relevancy,
	}}
	p := New(index, gen, evaluator, Config{K: 2}, nil)

	result, err := p.QueryWithEvaluation(context.Background(), "What?", true)
	if err != nil {
		t.Fatalf("QueryWithEvaluation: %v", err)
	}
	if result.Evaluation == nil {
		t.Fatal("Evaluation is nil")
	}
	if *result.Evaluation.Faithfulness != 0.9 {
		t.Errorf("Faithfulness = %v", *result.Evaluation.Faithfulness)
	}
	if len(result.Sources) != 2 {
		t.Errorf("got %d sources, want 2", len(result.Sources))
	}

	// The evaluator sees the same retrieval the answer was built from.
	if evaluator.gotAnswer != "The answer." {
		t.Errorf("evaluator answer = %q", evaluator.gotAnswer)
	}
	if fmt.Sprint(evaluator.gotContexts) != fmt.Sprint([]string{"Context one.", "Context two."}) {
		t.Errorf("evaluator contexts = %v", evaluator.gotContexts)
	}
}

func TestQueryWithEvaluation_SourcesExcluded(t *testing.T) {
	index := &fakeIndex{results: []*models.SearchResult{searchResult("ctx", 0.9)}}
	gen := &fakeGenerator{texts: []string{"answer"}}
	evaluator := &fakeEvaluator{score: &models.EvaluationScore{}}
	p := New(index, gen, evaluator, Config{K: 4}, nil)

	result, err := p.QueryWithEvaluation(context.Background(), "What?", false)
	if err != nil {
		t.Fatalf("QueryWithEvaluation: %v", err)
	}
	if result.Sources != nil {
		t.Errorf("Sources = %v, want nil", result.Sources)
	}
}

func TestQueryWithEvaluation_DegradedEvaluationDoesNotFailTheCall(t *testing.T) {
	index := &fakeIndex{results: []*models.SearchResult{searchResult("ctx", 0.9)}}
	gen := &fakeGenerator{texts: []string{"The answer survives."}}
	evaluator := &fakeEvaluator{score: &models.EvaluationScore{Error: "judge unavailable"}}
	p := New(index, gen, evaluator, Config{K: 4}, nil)

	result, err := p.QueryWithEvaluation(context.Background(), "What?", false)
	if err != nil {
		t.Fatalf("QueryWithEvaluation: %v", err)
	}
	if result.Answer != "The answer survives." {
		t.Errorf("answer = %q", result.Answer)
	}
	if !result.Evaluation.Failed() {
		t.Error("Evaluation.Failed() = false, want true")
	}
	if result.Evaluation.Faithfulness != nil || result.Evaluation.AnswerRelevancy != nil {
		t.Error("degraded evaluation carries scores")
	}
}

func TestQueryWithEvaluation_NilEvaluator(t *testing.T) {
	index := &fakeIndex{results: []*models.SearchResult{searchResult("ctx", 0.9)}}
	gen := &fakeGenerator{texts: []string{"answer"}}
	p := New(index, gen, nil, Config{K: 4}, nil)

	result, err := p.QueryWithEvaluation(context.Background(), "What?", false)
	if err != nil {
		t.Fatalf("QueryWithEvaluation: %v", err)
	}
	if result.Evaluation != nil {
		t.Errorf("Evaluation = %+v, want nil", result.Evaluation)
	}
}
