// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"rag-gateway/internal/application/kb"
	"rag-gateway/internal/interfaces/http/dto"
)

// KnowledgeBaseHandler 知识库管理处理器
type KnowledgeBaseHandler struct {
	admin *kb.Admin
}

// NewKnowledgeBaseHandler 创建知识库管理处理器
func NewKnowledgeBaseHandler(admin *kb.Admin) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{admin: admin}
}

// List 列出知识库
// @Summary 列出知识库
// @Tags KnowledgeBases
// @Produce json
// @Success 200 {object} dto.Response[[]dto.KnowledgeBaseResponse]
// @Router /v1/rag/knowledge-bases [get]
func (h *KnowledgeBaseHandler) List(c *gin.Context) {
	descs, err := h.admin.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToKnowledgeBaseListResponse(descs))
}

// Create 创建知识库
// @Summary 创建知识库
// @Tags KnowledgeBases
// @Accept json
// @Produce json
// @Param body body dto.CreateKnowledgeBaseRequest true "知识库信息"
// @Success 201 {object} dto.Response[dto.KnowledgeBaseResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/rag/knowledge-bases [post]
func (h *KnowledgeBaseHandler) Create(c *gin.Context) {
	var req dto.CreateKnowledgeBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if err := h.admin.Create(c.Request.Context(), req.Name, req.Description); err != nil {
		respondError(c, err)
		return
	}

	dto.Created(c, dto.KnowledgeBaseResponse{
		Name:        req.Name,
		Description: req.Description,
	})
}

// Delete 删除知识库
// @Summary 删除知识库
// @Tags KnowledgeBases
// @Produce json
// @Param name path string true "知识库名称"
// @Success 200 {object} dto.Response[gin.H]
// @Router /v1/rag/knowledge-bases/{name} [delete]
func (h *KnowledgeBaseHandler) Delete(c *gin.Context) {
	name := c.Param("name")
	if err := h.admin.Delete(c.Request.Context(), name); err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, gin.H{"message": "knowledge base deleted"})
}
