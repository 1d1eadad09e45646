// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"rag-gateway/internal/application/chat"
	"rag-gateway/internal/application/ingest"
	"rag-gateway/internal/domain/entity"
	"rag-gateway/internal/interfaces/http/dto"
	"rag-gateway/pkg/errors"
)

// RagHandler 知识库问答处理器
type RagHandler struct {
	pipeline       *ingest.Pipeline
	chatSvc        *chat.Service
	maxUploadBytes int64
}

// NewRagHandler 创建知识库问答处理器
func NewRagHandler(pipeline *ingest.Pipeline, chatSvc *chat.Service, maxUploadMB int64) *RagHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &RagHandler{
		pipeline:       pipeline,
		chatSvc:        chatSvc,
		maxUploadBytes: maxUploadMB << 20,
	}
}

// AddDocument 文本入库
// @Summary 文本入库
// @Description 将一段文本写入指定知识库
// @Tags RAG
// @Accept json
// @Produce json
// @Param body body dto.AddDocumentRequest true "入库内容"
// @Success 200 {object} dto.Response[dto.AddDocumentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/rag/documents [post]
func (h *RagHandler) AddDocument(c *gin.Context) {
	var req dto.AddDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	chunk, err := h.pipeline.IngestText(c.Request.Context(), ingest.TextInput{
		Content:    req.Content,
		Title:      req.Title,
		Collection: req.CollectionName,
		Metadata:   req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Success(c, dto.AddDocumentResponse{
		Collection: chunk.Meta(entity.MetaCollectionName),
		ChunkCount: 1,
	})
}

// UploadFile 文件入库
// @Summary 文件入库
// @Description 上传文件，解析分块后写入指定知识库
// @Tags RAG
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "文件"
// @Param collection_name formData string false "知识库名称"
// @Param tag formData string false "自定义标签"
// @Success 200 {object} dto.Response[dto.UploadFileResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/rag/files [post]
func (h *RagHandler) UploadFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		dto.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		dto.Error(c, 413, "file too large")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, errors.Wrap(err, errors.CodeInvalidParam, "failed to open uploaded file"))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		respondError(c, errors.Wrap(err, errors.CodeInternalError, "failed to read uploaded file"))
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		dto.Error(c, 413, "file too large")
		return
	}

	collection := c.PostForm("collection_name")
	metadata := map[string]string{}
	if tag := c.PostForm("tag"); tag != "" {
		metadata[entity.MetaTag] = tag
	}

	count, err := h.pipeline.IngestFile(c.Request.Context(), ingest.FileInput{
		FileName:   fileHeader.Filename,
		Data:       data,
		Collection: collection,
		Metadata:   metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Success(c, dto.UploadFileResponse{
		FileName:   fileHeader.Filename,
		Collection: collection,
		ChunkCount: count,
	})
}

// Ask 知识库问答
// @Summary 知识库问答
// @Description 在指定知识库中检索并回答问题
// @Tags RAG
// @Accept json
// @Produce json
// @Param body body dto.AskRequest true "问题"
// @Success 200 {object} dto.Response[dto.AskResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/rag/ask [post]
func (h *RagHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	convID := req.ConversationID
	if convID == "" {
		convID = chat.DefaultConversationID
	}

	answer, err := h.chatSvc.Ask(c.Request.Context(), chat.AskInput{
		Question:       req.Question,
		Collection:     req.CollectionName,
		ConversationID: convID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Success(c, dto.AskResponse{
		Answer:         answer,
		Collection:     req.CollectionName,
		ConversationID: convID,
	})
}
