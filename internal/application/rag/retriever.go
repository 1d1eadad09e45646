// Package rag 实现检索与提示词增强
package rag

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rag-gateway/internal/application/vectorstore"
	"rag-gateway/internal/domain/entity"
	"rag-gateway/pkg/errors"
	"rag-gateway/pkg/logger"
	"rag-gateway/pkg/metrics"
)

var tracer = otel.Tracer("rag")

// StoreProvider 按集合名提供向量存取句柄
type StoreProvider interface {
	Get(ctx context.Context, name string) (vectorstore.Store, error)
	Resolve(name string) string
}

// Retriever 集合内相似度检索
type Retriever struct {
	stores         StoreProvider
	topK           int
	scoreThreshold float64
}

// NewRetriever 创建检索器
func NewRetriever(stores StoreProvider, topK int, scoreThreshold float64) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{stores: stores, topK: topK, scoreThreshold: scoreThreshold}
}

// Retrieve 在集合内做相似度检索
//
// 引擎返回的结果会再按 collection_name 元数据过滤一遍，只保留
// 属于目标集合的分块，顺序保持引擎给出的相似度排序。
// 无命中返回空切片，不是错误。
func (r *Retriever) Retrieve(ctx context.Context, question, collection string) ([]entity.ScoredChunk, error) {
	collection = r.stores.Resolve(collection)

	ctx, span := tracer.Start(ctx, "rag.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("top_k", r.topK),
	)

	store, err := r.stores.Get(ctx, collection)
	if err != nil {
		metrics.RetrievalTotal.WithLabelValues(collection, "error").Inc()
		return nil, err
	}

	start := time.Now()
	found, err := store.SimilaritySearch(ctx, vectorstore.SearchQuery{
		Text:           question,
		TopK:           r.topK,
		ScoreThreshold: r.scoreThreshold,
	})
	metrics.RetrievalDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		metrics.RetrievalTotal.WithLabelValues(collection, "error").Inc()
		return nil, errors.Wrap(err, errors.CodeRetrievalFailed, "similarity search failed")
	}

	// 保险过滤：跨集合串库的分块一律丢弃，顺序不变
	kept := make([]entity.ScoredChunk, 0, len(found))
	for _, sc := range found {
		if sc.Meta(entity.MetaCollectionName) == collection {
			kept = append(kept, sc)
		}
	}

	status := "hit"
	if len(kept) == 0 {
		status = "empty"
	}
	metrics.RetrievalTotal.WithLabelValues(collection, status).Inc()
	span.SetAttributes(attribute.Int("retrieved", len(kept)))

	logger.Debug(ctx, "retrieval done",
		"collection", collection,
		"found", len(found),
		"kept", len(kept),
	)
	return kept, nil
}
