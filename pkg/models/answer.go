package models

// SourceDocument is a preview of a retrieved chunk returned alongside an
// answer. Content is truncated to the configured preview budget with an
// explicit marker when cut.
type SourceDocument struct {
	// Content is the (possibly truncated) chunk text.
	Content string `json:"content"`

	// Metadata is the chunk's metadata, including provenance.
	Metadata ChunkMetadata `json:"metadata"`
}

// EvaluationScore holds the outcome of a best-effort quality evaluation.
//
// Invariant: a non-empty Error implies both scores are nil. A successful
// evaluation has a nil Error; an individual score may still be nil when the
// underlying metric could not be computed, without that being an error.
type EvaluationScore struct {
	// Faithfulness measures whether the answer's claims are supported by
	// the retrieved contexts, in [0,1].
	Faithfulness *float64 `json:"faithfulness"`

	// AnswerRelevancy measures whether the answer addresses the question,
	// in [0,1].
	AnswerRelevancy *float64 `json:"answer_relevancy"`

	// EvaluationTimeMs is the wall time the evaluation took.
	EvaluationTimeMs *float64 `json:"evaluation_time_ms"`

	// Error is a human-readable cause when the evaluation failed.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the evaluation produced no scores.
func (s *EvaluationScore) Failed() bool {
	return s != nil && s.Error != ""
}

// AnswerResult is the structured result of one RAG query.
// It is produced once per query and returned to the caller, not persisted.
type AnswerResult struct {
	// Question is the original question.
	Question string `json:"question"`

	// Answer is the generated answer text.
	Answer string `json:"answer"`

	// Sources are previews of the retrieved chunks, in retrieval order.
	// Nil when sources were not requested.
	Sources []SourceDocument `json:"sources,omitempty"`

	// ProcessingTimeMs is the end-to-end query processing time.
	ProcessingTimeMs float64 `json:"processing_time_ms"`

	// Evaluation is the optional quality evaluation outcome.
	Evaluation *EvaluationScore `json:"evaluation,omitempty"`
}
