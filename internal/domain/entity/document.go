// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// 分块元数据键
const (
	MetaCollectionName = "collection_name"
	MetaFileName       = "file_name"
	MetaFileType       = "file_type"
	MetaTag            = "tag"
	MetaTitle          = "title"
)

// Chunk 知识库中的一个文本分块
type Chunk struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewChunk 创建分块并分配 ID
func NewChunk(text string, metadata map[string]string) Chunk {
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return Chunk{
		ID:       uuid.NewString(),
		Text:     text,
		Metadata: metadata,
	}
}

// Meta 读取元数据，缺失时返回空串
func (c Chunk) Meta(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}

// WithMeta 返回写入一条元数据后的分块副本
func (c Chunk) WithMeta(key, value string) Chunk {
	meta := make(map[string]string, len(c.Metadata)+1)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[key] = value
	c.Metadata = meta
	return c
}

// ScoredChunk 带相似度得分的分块
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// CollectionDescriptor 知识库集合描述
type CollectionDescriptor struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ChunkCount  int64     `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}
