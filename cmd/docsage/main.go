// Package main provides the CLI entry point for the docsage document QA
// service.
//
// Docsage ingests PDF, text and CSV documents into a Milvus vector
// collection and answers questions over them with retrieval-augmented
// generation, with optional LLM-judged answer quality evaluation.
//
// # Basic Usage
//
// Start the server:
//
//	docsage serve --config docsage.yaml
//
// # Environment Variables
//
//   - OPENAI_API_KEY: OpenAI API key (required)
//   - MILVUS_ADDRESS: Milvus server address (default: localhost:19530)
//   - COLLECTION_NAME: Vector collection name (default: rag_documents)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/config"
	openaiembed "github.com/docsage/docsage/internal/embeddings/openai"
	openaillm "github.com/docsage/docsage/internal/llm/openai"
	"github.com/docsage/docsage/internal/metrics"
	"github.com/docsage/docsage/internal/rag/chunker"
	"github.com/docsage/docsage/internal/rag/eval"
	"github.com/docsage/docsage/internal/rag/ingest"
	"github.com/docsage/docsage/internal/rag/pipeline"
	"github.com/docsage/docsage/internal/server"
	milvusindex "github.com/docsage/docsage/internal/vectorstore/milvus"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A .env file is optional; absence is not an error.
	_ = godotenv.Load()

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "docsage",
		Short:        "Docsage - document question answering over a vector index",
		Long:         "Docsage ingests PDF, text and CSV documents and answers questions over them using retrieval-augmented generation.",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(buildServeCmd())
	return rootCmd
}

func buildServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := buildLogger(cfg.Logging)
			slog.SetDefault(logger)

			return runServe(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedder, err := openaiembed.New(openaiembed.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}

	// The collection dimension derives from the live model, not from a
	// table of known model names.
	probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = embedder.Probe(probeCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}
	logger.Info("embedding provider ready",
		"model", cfg.OpenAI.EmbeddingModel, "dimension", embedder.Dimension())

	generator, err := openaillm.New(openaillm.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.Temperature,
	})
	if err != nil {
		return fmt.Errorf("llm generator: %w", err)
	}

	client, err := milvusindex.Connect(ctx, cfg.Milvus.Address)
	if err != nil {
		return fmt.Errorf("connect to milvus: %w", err)
	}
	defer client.Close(context.Background())

	index, err := milvusindex.New(client, embedder, milvusindex.Config{
		Collection: cfg.Milvus.Collection,
		DefaultK:   cfg.Retrieval.K,
	}, logger)
	if err != nil {
		return fmt.Errorf("vector index: %w", err)
	}
	if err := index.EnsureReady(ctx); err != nil {
		return fmt.Errorf("prepare collection: %w", err)
	}

	splitter, err := chunker.NewRecursiveSplitter(chunker.Config{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	ingestor := ingest.New(splitter, logger)

	var evaluator pipeline.Evaluator
	if cfg.Evaluation.Enabled {
		judge := eval.NewLLMJudge(generator, cfg.EvaluationModel(), cfg.EvaluationTemperature())
		evaluator = eval.NewQualityEvaluator(judge, cfg.Evaluation.Timeout, logger)
	}

	rag := pipeline.New(index, generator, evaluator, pipeline.Config{
		K:             cfg.Retrieval.K,
		PreviewLength: cfg.Retrieval.PreviewLength,
	}, logger)

	srv := server.New(server.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, ingestor, index, rag, metrics.NewMetrics(), logger)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	return nil
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
