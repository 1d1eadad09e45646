// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rag-gateway/internal/application/vectorstore"
	"rag-gateway/internal/domain/entity"
	"rag-gateway/pkg/logger"
)

// Engine 基于 Milvus 的向量引擎，实现 vectorstore.Engine
type Engine struct {
	client    *Client
	embedder  embedding.Embedder
	dimension int
	batchSize int
}

// NewEngine 创建向量引擎
func NewEngine(client *Client, embedder embedding.Embedder, dimension, batchSize int) *Engine {
	if dimension <= 0 {
		dimension = DefaultVectorDimension
	}
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Engine{
		client:    client,
		embedder:  embedder,
		dimension: dimension,
		batchSize: batchSize,
	}
}

// OpenStore 打开集合句柄，集合不存在时先创建
func (e *Engine) OpenStore(ctx context.Context, collection string) (vectorstore.Store, error) {
	ctx, span := tracer.Start(ctx, "milvus.OpenStore",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	exists, err := e.client.HasCollection(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		if err := e.CreateCollection(ctx, collection, ""); err != nil {
			span.RecordError(err)
			return nil, err
		}
	} else if err := e.client.LoadCollection(ctx, collection); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	return newStore(e.client, e.embedder, collection, e.dimension, e.batchSize), nil
}

// CreateCollection 创建集合并建立 HNSW 索引
func (e *Engine) CreateCollection(ctx context.Context, collection, description string) error {
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := e.client.CollectionName(collection)
	schema := ChunkSchema(collName, description, e.dimension)

	if err := e.client.milvus.CreateCollection(ctx, schema, milvusentity.DefaultShardNumber); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := milvusentity.NewIndexHNSW(
		e.metricType(),
		e.client.config.HNSWM,
		e.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build index: %w", err)
	}
	if err := e.client.milvus.CreateIndex(ctx, collName, fieldVector, idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := e.client.LoadCollection(ctx, collection); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info(ctx, "collection created", "collection", collection)
	return nil
}

// HasCollection 检查集合是否存在
func (e *Engine) HasCollection(ctx context.Context, collection string) (bool, error) {
	return e.client.HasCollection(ctx, collection)
}

// DropCollection 删除集合，不存在时直接返回成功
func (e *Engine) DropCollection(ctx context.Context, collection string) error {
	ctx, span := tracer.Start(ctx, "milvus.DropCollection",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	exists, err := e.client.HasCollection(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil
	}

	if err := e.client.milvus.DropCollection(ctx, e.client.CollectionName(collection)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	logger.Info(ctx, "collection dropped", "collection", collection)
	return nil
}

// ListCollections 列出引擎内全部集合，只返回带本服务前缀的集合
func (e *Engine) ListCollections(ctx context.Context) ([]entity.CollectionDescriptor, error) {
	ctx, span := tracer.Start(ctx, "milvus.ListCollections")
	defer span.End()

	collections, err := e.client.milvus.ListCollections(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	prefix := ""
	if e.client.config.CollectionPrefix != "" {
		prefix = e.client.config.CollectionPrefix + "_"
	}

	descs := make([]entity.CollectionDescriptor, 0, len(collections))
	for _, coll := range collections {
		if prefix != "" && !strings.HasPrefix(coll.Name, prefix) {
			continue
		}
		desc := entity.CollectionDescriptor{
			Name: strings.TrimPrefix(coll.Name, prefix),
		}
		if detail, err := e.client.milvus.DescribeCollection(ctx, coll.Name); err == nil && detail.Schema != nil {
			desc.Description = detail.Schema.Description
		}
		if stats, err := e.client.milvus.GetCollectionStatistics(ctx, coll.Name); err == nil {
			if n, err := strconv.ParseInt(stats["row_count"], 10, 64); err == nil {
				desc.ChunkCount = n
			}
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// Close 释放引擎连接
func (e *Engine) Close() error {
	return e.client.Close()
}

func (e *Engine) metricType() milvusentity.MetricType {
	switch strings.ToUpper(e.client.config.MetricType) {
	case "IP":
		return milvusentity.IP
	case "L2":
		return milvusentity.L2
	default:
		return milvusentity.COSINE
	}
}
