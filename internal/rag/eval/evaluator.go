package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docsage/docsage/pkg/models"
)

// Judge scores a generated answer on individual quality metrics.
type Judge interface {
	JudgeFaithfulness(ctx context.Context, answer string, contexts []string) (float64, error)
	JudgeAnswerRelevancy(ctx context.Context, question, answer string) (float64, error)
}

// QualityEvaluator scores answers for faithfulness and answer relevancy
// within a hard time budget. Evaluation is best effort by contract: every
// failure mode, including the timeout, degrades to a populated
// EvaluationScore carrying the error, so a slow or broken judge can never
// fail the question-answering call it decorates.
type QualityEvaluator struct {
	judge   Judge
	timeout time.Duration
	logger  *slog.Logger
}

// NewQualityEvaluator creates an evaluator with the given time budget per
// evaluation. A non-positive timeout defaults to 30 seconds.
func NewQualityEvaluator(judge Judge, timeout time.Duration, logger *slog.Logger) *QualityEvaluator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QualityEvaluator{
		judge:   judge,
		timeout: timeout,
		logger:  logger,
	}
}

type scoreResult struct {
	faithfulness float64
	relevancy    float64
	err          error
}

// Evaluate scores an answer against its question and contexts. It always
// returns a non-nil score and never returns an error.
func (e *QualityEvaluator) Evaluate(ctx context.Context, question, answer string, contexts []string) *models.EvaluationScore {
	start := time.Now()

	evalCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Buffered so a late scorer can finish and exit after the deadline
	// fired; its result is simply discarded.
	done := make(chan scoreResult, 1)
	go func() {
		done <- e.score(evalCtx, question, answer, contexts)
	}()

	select {
	case res := <-done:
		if res.err != nil {
			e.logger.Warn("evaluation failed", "error", res.err)
			return &models.EvaluationScore{Error: res.err.Error()}
		}
		elapsed := float64(time.Since(start).Microseconds()) / 1000.0
		return &models.EvaluationScore{
			Faithfulness:     &res.faithfulness,
			AnswerRelevancy:  &res.relevancy,
			EvaluationTimeMs: &elapsed,
		}
	case <-evalCtx.Done():
		e.logger.Warn("evaluation timed out", "timeout", e.timeout)
		return &models.EvaluationScore{
			Error: fmt.Sprintf("evaluation timed out after %s", e.timeout),
		}
	}
}

func (e *QualityEvaluator) score(ctx context.Context, question, answer string, contexts []string) scoreResult {
	if e.judge == nil {
		return scoreResult{err: fmt.Errorf("evaluation judge is nil")}
	}

	faithfulness, err := e.judge.JudgeFaithfulness(ctx, answer, contexts)
	if err != nil {
		return scoreResult{err: fmt.Errorf("faithfulness: %w", err)}
	}

	relevancy, err := e.judge.JudgeAnswerRelevancy(ctx, question, answer)
	if err != nil {
		return scoreResult{err: fmt.Errorf("answer relevancy: %w", err)}
	}

	return scoreResult{faithfulness: faithfulness, relevancy: relevancy}
}
