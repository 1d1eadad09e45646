package dto

import (
	"time"

	"rag-gateway/internal/domain/entity"
)

// CreateKnowledgeBaseRequest 创建知识库请求
type CreateKnowledgeBaseRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// KnowledgeBaseResponse 知识库信息
type KnowledgeBaseResponse struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ChunkCount  int64      `json:"chunk_count"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// ToKnowledgeBaseResponse 转换知识库描述
func ToKnowledgeBaseResponse(d entity.CollectionDescriptor) KnowledgeBaseResponse {
	resp := KnowledgeBaseResponse{
		Name:        d.Name,
		Description: d.Description,
		ChunkCount:  d.ChunkCount,
	}
	if !d.CreatedAt.IsZero() {
		t := d.CreatedAt
		resp.CreatedAt = &t
	}
	return resp
}

// ToKnowledgeBaseListResponse 转换知识库列表
func ToKnowledgeBaseListResponse(descs []entity.CollectionDescriptor) []KnowledgeBaseResponse {
	out := make([]KnowledgeBaseResponse, 0, len(descs))
	for _, d := range descs {
		out = append(out, ToKnowledgeBaseResponse(d))
	}
	return out
}
