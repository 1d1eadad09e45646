// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rag-gateway/internal/application/vectorstore"
	"rag-gateway/internal/domain/entity"
	"rag-gateway/pkg/metrics"
)

// searchEf HNSW 检索时的 ef 参数
const searchEf = 128

// store 单个集合的向量存取句柄，实现 vectorstore.Store
type store struct {
	client     *Client
	embedder   embedding.Embedder
	collection string
	dimension  int
	batchSize  int
}

func newStore(client *Client, embedder embedding.Embedder, collection string, dimension, batchSize int) *store {
	return &store{
		client:     client,
		embedder:   embedder,
		collection: collection,
		dimension:  dimension,
		batchSize:  batchSize,
	}
}

// Add 向集合写入一批分块，内部完成向量化
func (s *store) Add(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "milvus.store.Add",
		trace.WithAttributes(
			attribute.String("collection", s.collection),
			attribute.Int("count", len(chunks)),
		))
	defer span.End()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embed(ctx, texts)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	ids := make([]string, len(chunks))
	contents := make([]string, len(chunks))
	metaValues := make(map[string][]string, len(metadataFields))
	for _, field := range metadataFields {
		metaValues[field] = make([]string, len(chunks))
	}
	for i, c := range chunks {
		ids[i] = c.ID
		contents[i] = c.Text
		for _, field := range metadataFields {
			metaValues[field][i] = c.Meta(field)
		}
	}

	columns := []milvusentity.Column{
		milvusentity.NewColumnVarChar(fieldID, ids),
		milvusentity.NewColumnFloatVector(fieldVector, s.dimension, vectors),
		milvusentity.NewColumnVarChar(fieldText, contents),
	}
	for _, field := range metadataFields {
		columns = append(columns, milvusentity.NewColumnVarChar(field, metaValues[field]))
	}

	collName := s.client.CollectionName(s.collection)
	if _, err := s.client.milvus.Insert(ctx, collName, "", columns...); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	// 刷写后写入立即可见
	if err := s.client.milvus.Flush(ctx, collName, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	return nil
}

// Delete 按 ID 删除分块
func (s *store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "milvus.store.Delete",
		trace.WithAttributes(
			attribute.String("collection", s.collection),
			attribute.Int("count", len(ids)),
		))
	defer span.End()

	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = `"` + id + `"`
	}
	expr := fmt.Sprintf("%s in [%s]", fieldID, strings.Join(quoted, ", "))

	if err := s.client.milvus.Delete(ctx, s.client.CollectionName(s.collection), "", expr); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// SimilaritySearch 相似度检索，按得分过滤后返回
func (s *store) SimilaritySearch(ctx context.Context, query vectorstore.SearchQuery) ([]entity.ScoredChunk, error) {
	ctx, span := tracer.Start(ctx, "milvus.store.Search",
		trace.WithAttributes(
			attribute.String("collection", s.collection),
			attribute.Int("top_k", query.TopK),
		))
	defer span.End()

	start := time.Now()
	hits, err := s.search(ctx, query)
	metrics.StoreSearchDuration.WithLabelValues(s.collection).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreSearchTotal.WithLabelValues(s.collection, "error").Inc()
		span.RecordError(err)
		return nil, err
	}
	metrics.StoreSearchTotal.WithLabelValues(s.collection, "ok").Inc()
	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

func (s *store) search(ctx context.Context, query vectorstore.SearchQuery) ([]entity.ScoredChunk, error) {
	vectors, err := s.embed(ctx, []string{query.Text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sp, err := milvusentity.NewIndexHNSWSearchParam(searchEf)
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	outputFields := append([]string{fieldID, fieldText}, metadataFields...)
	results, err := s.client.milvus.Search(ctx,
		s.client.CollectionName(s.collection),
		nil,
		"",
		outputFields,
		[]milvusentity.Vector{milvusentity.FloatVector(vectors[0])},
		fieldVector,
		s.metricType(),
		query.TopK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var hits []entity.ScoredChunk
	for _, result := range results {
		idCol, _ := result.Fields.GetColumn(fieldID).(*milvusentity.ColumnVarChar)
		textCol, _ := result.Fields.GetColumn(fieldText).(*milvusentity.ColumnVarChar)
		metaCols := make(map[string]*milvusentity.ColumnVarChar, len(metadataFields))
		for _, field := range metadataFields {
			if col, ok := result.Fields.GetColumn(field).(*milvusentity.ColumnVarChar); ok {
				metaCols[field] = col
			}
		}

		for i := 0; i < result.ResultCount; i++ {
			score := result.Scores[i]
			if query.ScoreThreshold > 0 && float64(score) < query.ScoreThreshold {
				continue
			}

			chunk := entity.Chunk{Metadata: make(map[string]string, len(metadataFields))}
			if idCol != nil {
				chunk.ID = idCol.Data()[i]
			}
			if textCol != nil {
				chunk.Text = textCol.Data()[i]
			}
			for field, col := range metaCols {
				if v := col.Data()[i]; v != "" {
					chunk.Metadata[field] = v
				}
			}
			hits = append(hits, entity.ScoredChunk{Chunk: chunk, Score: score})
		}
	}
	return hits, nil
}

// embed 分批向量化文本
func (s *store) embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		embedded, err := s.embedder.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(embedded) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), end-start)
		}
		for _, vec := range embedded {
			v32 := make([]float32, len(vec))
			for i, f := range vec {
				v32[i] = float32(f)
			}
			out = append(out, v32)
		}
	}
	return out, nil
}

func (s *store) metricType() milvusentity.MetricType {
	switch strings.ToUpper(s.client.config.MetricType) {
	case "IP":
		return milvusentity.IP
	case "L2":
		return milvusentity.L2
	default:
		return milvusentity.COSINE
	}
}
