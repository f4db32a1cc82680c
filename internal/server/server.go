// Package server exposes the document QA service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docsage/docsage/internal/metrics"
	"github.com/docsage/docsage/internal/rag/ingest"
	"github.com/docsage/docsage/internal/rag/pipeline"
	"github.com/docsage/docsage/internal/vectorstore"
)

// Config contains the HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server is the HTTP adapter over the ingestion pipeline, the vector index
// and the question-answering pipeline. Handlers are thin; all domain rules
// live below this layer.
type Server struct {
	config   Config
	ingestor *ingest.Pipeline
	index    vectorstore.Index
	rag      *pipeline.Pipeline
	metrics  *metrics.Metrics
	logger   *slog.Logger

	httpServer *http.Server
	listener   net.Listener
}

// New creates a server. Metrics may be nil to disable instrumentation.
func New(cfg Config, ingestor *ingest.Pipeline, index vectorstore.Index, rag *pipeline.Pipeline, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:   cfg,
		ingestor: ingestor,
		index:    index,
		rag:      rag,
		metrics:  m,
		logger:   logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /documents/upload", s.handleUpload)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /query/stream", s.handleQueryStream)
	mux.HandleFunc("GET /documents", s.handleDescribe)
	mux.HandleFunc("DELETE /documents", s.handleDeleteCollection)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withCORS(s.withMetrics(mux))
}

// Start begins serving. It returns once the listener is bound; serving
// continues on a background goroutine until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.httpServer = server
	s.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.logger.Info("starting http server", "addr", addr)
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	shutdownCtx := ctx
	var cancel context.CancelFunc
	if shutdownCtx == nil {
		shutdownCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http server shutdown error", "error", err)
	}
	s.httpServer = nil
	s.listener = nil
}
