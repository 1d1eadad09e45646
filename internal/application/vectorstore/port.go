// Package vectorstore 提供按集合划分的向量存取注册表
package vectorstore

import (
	"context"

	"rag-gateway/internal/domain/entity"
)

// SearchQuery 相似度检索请求
type SearchQuery struct {
	Text           string
	TopK           int
	ScoreThreshold float64
}

// Store 单个集合的向量存取句柄
type Store interface {
	// Add 向集合写入一批分块（内部完成向量化）
	Add(ctx context.Context, chunks []entity.Chunk) error

	// Delete 按 ID 删除分块
	Delete(ctx context.Context, ids []string) error

	// SimilaritySearch 相似度检索，无命中时返回空切片
	SimilaritySearch(ctx context.Context, query SearchQuery) ([]entity.ScoredChunk, error)
}

// Engine 向量引擎目录操作
type Engine interface {
	// OpenStore 打开（不存在则建）集合并返回句柄
	OpenStore(ctx context.Context, collection string) (Store, error)

	// CreateCollection 显式创建集合并记录描述
	CreateCollection(ctx context.Context, collection, description string) error

	// HasCollection 检查集合是否存在
	HasCollection(ctx context.Context, collection string) (bool, error)

	// DropCollection 删除集合，集合不存在时不报错
	DropCollection(ctx context.Context, collection string) error

	// ListCollections 列出全部集合
	ListCollections(ctx context.Context) ([]entity.CollectionDescriptor, error)

	// Close 释放引擎连接
	Close() error
}
