package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/docsage/docsage/internal/rag/ingest"
	"github.com/docsage/docsage/internal/rag/pipeline"
	"github.com/docsage/docsage/internal/vectorstore"
	"github.com/docsage/docsage/pkg/models"
)

// maxUploadMemory bounds how much of a multipart upload is held in memory
// before spilling to disk.
const maxUploadMemory = 32 << 20

// maxQuestionLength is the rune limit for a question.
const maxQuestionLength = 1000

type uploadResponse struct {
	Message       string   `json:"message"`
	Filename      string   `json:"filename"`
	ChunksCreated int      `json:"chunks_created"`
	DocumentIDs   []string `json:"document_ids"`
}

type queryRequest struct {
	Question         string `json:"question"`
	IncludeSources   bool   `json:"include_sources"`
	EnableEvaluation bool   `json:"enable_evaluation"`
}

type collectionResponse struct {
	CollectionName string `json:"collection_name"`
	TotalDocuments int64  `json:"total_documents"`
	Status         string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file field is required"})
		return
	}
	defer file.Close()

	filename := header.Filename
	ext := strings.ToLower(filepath.Ext(filename))

	chunks, err := s.ingestor.Ingest(r.Context(), file, filename)
	if err != nil {
		s.recordIngest(ext, ingestStatus(err), 0, start)
		s.writeDomainError(w, err)
		return
	}
	if len(chunks) == 0 {
		s.recordIngest(ext, "rejected", 0, start)
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: "no extractable text in " + filename,
		})
		return
	}

	ids, err := s.index.Upsert(r.Context(), chunks)
	if err != nil {
		s.recordIngest(ext, "failed", 0, start)
		s.writeDomainError(w, err)
		return
	}

	s.recordIngest(ext, "success", len(ids), start)
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:       "document processed successfully",
		Filename:      filename,
		ChunksCreated: len(ids),
		DocumentIDs:   ids,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if msg, ok := validateQuestion(req.Question); !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	mode := "sync"
	if req.EnableEvaluation {
		mode = "evaluated"
	}

	var (
		result *models.AnswerResult
		err    error
	)
	switch {
	case req.EnableEvaluation:
		result, err = s.rag.QueryWithEvaluation(r.Context(), req.Question, req.IncludeSources)
	case req.IncludeSources:
		result, err = s.rag.QueryWithSources(r.Context(), req.Question)
	default:
		queryStart := time.Now()
		var answer string
		answer, err = s.rag.Query(r.Context(), req.Question)
		if err == nil {
			result = &models.AnswerResult{
				Question:         req.Question,
				Answer:           answer,
				ProcessingTimeMs: float64(time.Since(queryStart).Microseconds()) / 1000.0,
			}
		}
	}
	if err != nil {
		s.recordQuery(mode, "error", start)
		s.writeDomainError(w, err)
		return
	}

	if result.Evaluation != nil && s.metrics != nil {
		s.metrics.RecordEvaluation(result.Evaluation.Failed())
	}
	s.recordQuery(mode, "success", start)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if msg, ok := validateQuestion(req.Question); !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	chunks, err := s.rag.Stream(r.Context(), req.Question)
	if err != nil {
		s.recordQuery("stream", "error", start)
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	status := "success"
	for chunk := range chunks {
		if chunk == nil {
			continue
		}
		if chunk.Err != nil {
			// Headers are already sent; the best we can do is log
			// and terminate the stream.
			s.logger.Error("stream generation error", "error", chunk.Err)
			status = "error"
			break
		}
		if chunk.Text != "" {
			if _, err := w.Write([]byte(chunk.Text)); err != nil {
				status = "error"
				break
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if chunk.Done {
			break
		}
	}
	s.recordQuery("stream", status, start)
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	desc, err := s.index.Describe(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionResponse{
		CollectionName: desc.Name,
		TotalDocuments: desc.PointCount,
		Status:         desc.Status,
	})
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.index.Delete(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "collection deleted successfully"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !s.index.HealthCheck(r.Context()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "vector store unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeDomainError maps domain errors onto HTTP statuses. Validation
// failures are the caller's fault; everything else is a server-side
// failure of a specific stage.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var (
		validationErr *ingest.ValidationError
		processingErr *ingest.ProcessingError
		indexErr      *vectorstore.IndexError
		generationErr *pipeline.GenerationError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error()})
	case errors.As(err, &processingErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: processingErr.Error()})
	case errors.As(err, &indexErr):
		s.logger.Error("vector index failure", "op", indexErr.Op, "error", indexErr.Err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: indexErr.Error()})
	case errors.As(err, &generationErr):
		s.logger.Error("generation failure", "error", generationErr.Err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: generationErr.Error()})
	default:
		s.logger.Error("unhandled failure", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func validateQuestion(question string) (string, bool) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "question is required", false
	}
	if utf8.RuneCountInString(q) > maxQuestionLength {
		return "question exceeds the 1000 character limit", false
	}
	return "", true
}

func ingestStatus(err error) string {
	var validationErr *ingest.ValidationError
	if errors.As(err, &validationErr) {
		return "rejected"
	}
	return "failed"
}

func (s *Server) recordIngest(ext, status string, chunks int, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordIngest(ext, status, chunks, time.Since(start).Seconds())
}

func (s *Server) recordQuery(mode, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordQuery(mode, status, time.Since(start).Seconds())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if err := enc.Encode(payload); err != nil {
		// Best-effort: the client may have disconnected or the response
		// stream may be broken.
		return
	}
}
