// Package eval scores generated answers with an LLM judge.
package eval

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/docsage/docsage/internal/llm"
)

const defaultJudgeScoreTokens = 256

var scorePattern = regexp.MustCompile(`[-+]?[0-9]*\.?[0-9]+`)

// contextSeparator joins evaluation contexts inside judge prompts.
const contextSeparator = "\n\n---\n\n"

// LLMJudge scores answer quality using an LLM generator. Each metric is a
// separate judged completion returning a single number in [0, 1].
type LLMJudge struct {
	generator      llm.Generator
	model          string
	temperature    float32
	scoreMaxTokens int
}

// NewLLMJudge creates a judge bound to one model.
func NewLLMJudge(generator llm.Generator, model string, temperature float32) *LLMJudge {
	return &LLMJudge{
		generator:      generator,
		model:          model,
		temperature:    temperature,
		scoreMaxTokens: defaultJudgeScoreTokens,
	}
}

// SetScoreMaxTokens overrides the max tokens for judge scoring prompts.
func (j *LLMJudge) SetScoreMaxTokens(tokens int) {
	if tokens > 0 {
		j.scoreMaxTokens = tokens
	}
}

// JudgeFaithfulness scores how well the answer is supported by the
// retrieved contexts. An empty answer scores zero without calling the
// generator.
func (j *LLMJudge) JudgeFaithfulness(ctx context.Context, answer string, contexts []string) (float64, error) {
	if strings.TrimSpace(answer) == "" {
		return 0, nil
	}
	req := &llm.CompletionRequest{
		Model: j.model,
		System: "You are a strict evaluator. Return only a single number between 0 and 1. " +
			"0 means the answer is not supported by the context. 1 means all claims are fully supported.",
		Prompt: fmt.Sprintf("Context:\n%s\n\nAnswer:\n%s\n\nScore (0-1):",
			strings.Join(contexts, contextSeparator), answer),
		Temperature: j.temperature,
		MaxTokens:   j.scoreMaxTokens,
	}
	text, err := j.completeText(ctx, req)
	if err != nil {
		return 0, err
	}
	return parseScore(text)
}

// JudgeAnswerRelevancy scores how well the answer addresses the question.
func (j *LLMJudge) JudgeAnswerRelevancy(ctx context.Context, question, answer string) (float64, error) {
	if strings.TrimSpace(answer) == "" {
		return 0, nil
	}
	req := &llm.CompletionRequest{
		Model: j.model,
		System: "You are a strict evaluator. Return only a single number between 0 and 1. " +
			"0 means the answer is unrelated. 1 means it fully answers the question.",
		Prompt: fmt.Sprintf("Question:\n%s\n\nAnswer:\n%s\n\nScore (0-1):",
			question, answer),
		Temperature: j.temperature,
		MaxTokens:   j.scoreMaxTokens,
	}
	text, err := j.completeText(ctx, req)
	if err != nil {
		return 0, err
	}
	return parseScore(text)
}

func (j *LLMJudge) completeText(ctx context.Context, req *llm.CompletionRequest) (string, error) {
	if j.generator == nil {
		return "", fmt.Errorf("llm judge generator is nil")
	}
	ch, err := j.generator.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return llm.Collect(ctx, ch)
}

func parseScore(text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, fmt.Errorf("empty judge response")
	}
	match := scorePattern.FindString(trimmed)
	if match == "" {
		return 0, fmt.Errorf("no numeric score in response: %q", trimmed)
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid score %q: %w", match, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("score out of range: %v", val)
	}
	if val > 1 {
		if val <= 100 && strings.Contains(trimmed, "%") {
			val = val / 100
		} else {
			return 0, fmt.Errorf("score out of range: %v", val)
		}
	}
	return val, nil
}
