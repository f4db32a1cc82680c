// Package milvus implements the vector index on a Milvus collection.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/docsage/docsage/internal/embeddings"
	"github.com/docsage/docsage/internal/vectorstore"
	"github.com/docsage/docsage/pkg/models"
)

// Field names of the collection schema.
const (
	fieldID       = "id"
	fieldText     = "text"
	fieldSource   = "source"
	fieldMetadata = "metadata"
	fieldVector   = "vector"
)

const (
	maxTextLength = "65535"
	maxIDLength   = "64"
	maxVarLength  = "1024"

	metricName = "cosine"
)

// Config contains configuration for the Milvus index.
type Config struct {
	// Collection is the collection name.
	Collection string

	// DefaultK is the retrieval width used when a search passes k <= 0.
	DefaultK int
}

// Index implements vectorstore.Index over one Milvus collection.
// The embedding provider is consulted for every upsert and search, and its
// dimension is authoritative for the collection schema.
type Index struct {
	client   *milvusclient.Client
	embedder embeddings.Provider
	config   Config
	logger   *slog.Logger
}

var _ vectorstore.Index = (*Index)(nil)

// Connect dials Milvus and returns a ready client.
func Connect(ctx context.Context, address string) (*milvusclient.Client, error) {
	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: address,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", address, err)
	}
	return client, nil
}

// New creates a Milvus-backed index over one collection.
func New(client *milvusclient.Client, embedder embeddings.Provider, cfg Config, logger *slog.Logger) (*Index, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		client:   client,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}, nil
}

// EnsureReady gets or creates the collection and loads it for search.
func (x *Index) EnsureReady(ctx context.Context) error {
	exists, err := x.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(x.config.Collection))
	if err != nil {
		return vectorstore.NewIndexError("ensure", err)
	}

	if exists {
		if err := x.verifySchema(ctx); err != nil {
			return err
		}
	} else {
		if err := x.createCollection(ctx); err != nil {
			return err
		}
	}

	loadTask, err := x.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(x.config.Collection))
	if err != nil {
		return vectorstore.NewIndexError("load", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return vectorstore.NewIndexError("load", err)
	}

	x.logger.Info("vector collection ready",
		"collection", x.config.Collection,
		"dimension", x.embedder.Dimension())
	return nil
}

// createCollection creates the collection with the embedder's dimension and
// a cosine HNSW index. A concurrent creation racing us is fine: "already
// exists" resolves to verifying the existing schema.
func (x *Index) createCollection(ctx context.Context) error {
	dim := x.embedder.Dimension()
	schema := &entity.Schema{
		CollectionName: x.config.Collection,
		Description:    "Document chunks for retrieval-augmented answering",
		Fields: []*entity.Field{
			{
				Name:       fieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": maxIDLength},
			},
			{
				Name:       fieldText,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": maxTextLength},
			},
			{
				Name:       fieldSource,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": maxVarLength},
			},
			{
				Name:     fieldMetadata,
				DataType: entity.FieldTypeJSON,
			},
			{
				Name:       fieldVector,
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": strconv.Itoa(dim)},
			},
		},
	}

	err := x.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(x.config.Collection, schema))
	if err != nil {
		if isAlreadyExists(err) {
			return x.verifySchema(ctx)
		}
		return vectorstore.NewIndexError("create", err)
	}

	vecIdx := index.NewHNSWIndex(entity.COSINE, 16, 200)
	idxTask, err := x.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(x.config.Collection, fieldVector, vecIdx))
	if err != nil {
		return vectorstore.NewIndexError("create index", err)
	}
	if err := idxTask.Await(ctx); err != nil {
		return vectorstore.NewIndexError("create index", err)
	}

	x.logger.Info("created vector collection",
		"collection", x.config.Collection, "dimension", dim, "metric", metricName)
	return nil
}

// verifySchema checks that the stored vector dimension matches the live
// embedding provider. A mismatch would silently corrupt every search, so
// it is a hard failure.
func (x *Index) verifySchema(ctx context.Context) error {
	coll, err := x.client.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(x.config.Collection))
	if err != nil {
		return vectorstore.NewIndexError("describe", err)
	}

	dim, ok := vectorDimension(coll.Schema)
	if !ok {
		return vectorstore.NewIndexError("verify",
			fmt.Errorf("collection %q has no vector field", x.config.Collection))
	}
	if dim != x.embedder.Dimension() {
		return vectorstore.NewIndexError("verify",
			fmt.Errorf("collection %q has dimension %d but embedding provider %q produces %d",
				x.config.Collection, dim, x.embedder.Name(), x.embedder.Dimension()))
	}
	return nil
}

// Upsert embeds and writes chunks, one generated id per chunk.
func (x *Index) Upsert(ctx context.Context, chunks []*models.DocumentChunk) ([]string, error) {
	if len(chunks) == 0 {
		return []string{}, nil
	}

	ids := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	sources := make([]string, len(chunks))
	metadatas := make([][]byte, len(chunks))

	for i, chunk := range chunks {
		id := chunk.ID
		if id == "" {
			id = uuid.New().String()
		}
		ids[i] = id
		texts[i] = chunk.Content
		sources[i] = chunk.Metadata.Source

		meta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return nil, vectorstore.NewIndexError("upsert", fmt.Errorf("marshal metadata: %w", err))
		}
		metadatas[i] = meta
	}

	vectors, err := x.embedBatched(ctx, texts)
	if err != nil {
		return nil, vectorstore.NewIndexError("embed", err)
	}

	_, err = x.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(x.config.Collection,
		column.NewColumnVarChar(fieldID, ids),
		column.NewColumnVarChar(fieldText, texts),
		column.NewColumnVarChar(fieldSource, sources),
		column.NewColumnJSONBytes(fieldMetadata, metadatas),
		column.NewColumnFloatVector(fieldVector, x.embedder.Dimension(), vectors),
	))
	if err != nil {
		return nil, vectorstore.NewIndexError("upsert", err)
	}

	x.logger.Debug("upserted chunks", "collection", x.config.Collection, "count", len(chunks))
	return ids, nil
}

// embedBatched embeds texts respecting the provider's batch limit while
// preserving order.
func (x *Index) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := x.embedder.MaxBatchSize()
	if batchSize <= 0 || batchSize >= len(texts) {
		return x.embedder.EmbedBatch(ctx, texts)
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := x.embedder.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", i/batchSize, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Search returns the top-k chunks for the query.
func (x *Index) Search(ctx context.Context, query string, k int) ([]*models.DocumentChunk, error) {
	results, err := x.SearchWithScores(ctx, query, k)
	if err != nil {
		return nil, err
	}
	chunks := make([]*models.DocumentChunk, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}
	return chunks, nil
}

// SearchWithScores returns the top-k chunks with similarity scores.
func (x *Index) SearchWithScores(ctx context.Context, query string, k int) ([]*models.SearchResult, error) {
	if k <= 0 {
		k = x.config.DefaultK
	}

	vector, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, vectorstore.NewIndexError("embed query", err)
	}

	opt := milvusclient.NewSearchOption(x.config.Collection, k, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(fieldVector).
		WithOutputFields(fieldText, fieldSource, fieldMetadata)

	resultSets, err := x.client.Search(ctx, opt)
	if err != nil {
		return nil, vectorstore.NewIndexError("search", err)
	}
	if len(resultSets) == 0 {
		return []*models.SearchResult{}, nil
	}

	return matchesFromResultSet(resultSets[0], k), nil
}

// matchesFromResultSet maps one Milvus result set onto search results,
// bounded by k and preserving the store's descending-similarity order.
func matchesFromResultSet(rs milvusclient.ResultSet, k int) []*models.SearchResult {
	count := rs.ResultCount
	if k > 0 && count > k {
		count = k
	}
	results := make([]*models.SearchResult, 0, count)

	textCol := rs.GetColumn(fieldText)
	metaCol := rs.GetColumn(fieldMetadata)

	for i := 0; i < count; i++ {
		id := ""
		if rs.IDs != nil {
			if v, err := rs.IDs.GetAsString(i); err == nil {
				id = v
			}
		}

		text := ""
		if textCol != nil {
			if v, err := textCol.GetAsString(i); err == nil {
				text = v
			}
		}

		var meta models.ChunkMetadata
		if metaCol != nil {
			if raw, err := metaCol.GetAsString(i); err == nil && raw != "" {
				// Metadata is stored as JSON; decode best-effort
				_ = json.Unmarshal([]byte(raw), &meta)
			}
		}

		score := float32(0)
		if i < len(rs.Scores) {
			score = rs.Scores[i]
		}

		results = append(results, &models.SearchResult{
			Chunk: &models.DocumentChunk{
				ID:       id,
				Content:  text,
				Metadata: meta,
			},
			Score: score,
		})
	}

	return results
}

// Describe returns the collection's point count and status.
func (x *Index) Describe(ctx context.Context) (*models.CollectionDescriptor, error) {
	exists, err := x.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(x.config.Collection))
	if err != nil {
		return nil, vectorstore.NewIndexError("describe", err)
	}
	if !exists {
		return &models.CollectionDescriptor{
			Name:   x.config.Collection,
			Status: models.CollectionStatusNotFound,
		}, nil
	}

	coll, err := x.client.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(x.config.Collection))
	if err != nil {
		return nil, vectorstore.NewIndexError("describe", err)
	}

	stats, err := x.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(x.config.Collection))
	if err != nil {
		return nil, vectorstore.NewIndexError("describe", err)
	}

	return newDescriptor(x.config.Collection, coll.Schema, stats), nil
}

// newDescriptor assembles a descriptor from the stored schema and stats.
// The dimension comes from the store, not the live embedder, so drift
// between the two is visible to callers. The metric is an index property
// this package fixes to cosine at creation; Milvus keeps it outside the
// collection schema.
func newDescriptor(name string, schema *entity.Schema, stats map[string]string) *models.CollectionDescriptor {
	dim := 0
	if d, ok := vectorDimension(schema); ok {
		dim = d
	}

	count := int64(0)
	if raw, ok := stats["row_count"]; ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			count = n
		}
	}

	return &models.CollectionDescriptor{
		Name:       name,
		Dimension:  dim,
		Metric:     metricName,
		PointCount: count,
		Status:     models.CollectionStatusGreen,
	}
}

// Delete drops the entire collection.
func (x *Index) Delete(ctx context.Context) error {
	x.logger.Warn("dropping vector collection", "collection", x.config.Collection)
	if err := x.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(x.config.Collection)); err != nil {
		return vectorstore.NewIndexError("delete", err)
	}
	return nil
}

// HealthCheck probes connectivity. Meant to be polled, so failures are
// logged and reported as false rather than returned.
func (x *Index) HealthCheck(ctx context.Context) bool {
	_, err := x.client.ListCollections(ctx, milvusclient.NewListCollectionOption())
	if err != nil {
		x.logger.Error("vector store health check failed", "error", err)
		return false
	}
	return true
}

func vectorDimension(schema *entity.Schema) (int, bool) {
	if schema == nil {
		return 0, false
	}
	for _, f := range schema.Fields {
		if f.DataType != entity.FieldTypeFloatVector {
			continue
		}
		if raw, ok := f.TypeParams["dim"]; ok {
			if dim, err := strconv.Atoi(raw); err == nil {
				return dim, true
			}
		}
	}
	return 0, false
}

func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exist")
}
