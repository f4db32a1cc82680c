package eval

import (
	"context"
	"strings"
	"testing"

	"github.com/docsage/docsage/internal/llm"
)

type scriptedGenerator struct {
	response string

	gotPrompt string
	gotSystem string
	calls     int
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	g.gotPrompt = req.Prompt
	g.gotSystem = req.System
	g.calls++
	chunks := make(chan *llm.CompletionChunk, 2)
	chunks <- &llm.CompletionChunk{Text: g.response}
	chunks <- &llm.CompletionChunk{Done: true}
	close(chunks)
	return chunks, nil
}

func TestJudgeFaithfulness(t *testing.T) {
	gen := &scriptedGenerator{response: "0.85"}
	judge := NewLLMJudge(gen, "gpt-4o-mini", 0)

	score, err := judge.JudgeFaithfulness(context.Background(), "The answer.", []string{"ctx one", "ctx two"})
	if err != nil {
		t.Fatalf("JudgeFaithfulness: %v", err)
	}
	if score != 0.85 {
		t.Errorf("score = %v, want 0.85", score)
	}
	if !strings.Contains(gen.gotPrompt, "ctx one\n\n---\n\nctx two") {
		t.Errorf("prompt does not contain joined contexts:\n%s", gen.gotPrompt)
	}
	if !strings.Contains(gen.gotSystem, "single number between 0 and 1") {
		t.Errorf("system prompt = %q", gen.gotSystem)
	}
}

func TestJudgeAnswerRelevancy(t *testing.T) {
	gen := &scriptedGenerator{response: "The score is 0.7 overall."}
	judge := NewLLMJudge(gen, "gpt-4o-mini", 0)

	score, err := judge.JudgeAnswerRelevancy(context.Background(), "What?", "Because.")
	if err != nil {
		t.Fatalf("JudgeAnswerRelevancy: %v", err)
	}
	if score != 0.7 {
		t.Errorf("score = %v, want 0.7", score)
	}
	if !strings.Contains(gen.gotPrompt, "Question:\nWhat?") {
		t.Errorf("prompt = %q", gen.gotPrompt)
	}
}

func TestJudge_EmptyAnswerScoresZeroWithoutACall(t *testing.T) {
	gen := &scriptedGenerator{response: "never used"}
	judge := NewLLMJudge(gen, "gpt-4o-mini", 0)

	score, err := judge.JudgeFaithfulness(context.Background(), "   ", []string{"ctx"})
	if err != nil {
		t.Fatalf("JudgeFaithfulness: %v", err)
	}
	if score != 0 {
		t.Errorf("score = %v, want 0", score)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    float64
		wantErr bool
	}{
		{name: "plain number", text: "0.85", want: 0.85},
		{name: "embedded number", text: "Score: 0.5", want: 0.5},
		{name: "integer one", text: "1", want: 1},
		{name: "zero", text: "0", want: 0},
		{name: "percentage", text: "85%", want: 0.85},
		{name: "empty", text: "   ", wantErr: true},
		{name: "no number", text: "excellent answer", wantErr: true},
		{name: "above one", text: "1.5", wantErr: true},
		{name: "negative", text: "-0.2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScore(tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseScore(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("parseScore(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
