// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rag-gateway/internal/application/chat"
	"rag-gateway/internal/interfaces/http/dto"
)

// ChatHandler 普通聊天处理器
type ChatHandler struct {
	svc *chat.Service
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Text 同步聊天
// @Summary 同步聊天
// @Description 带会话记忆的普通聊天，一次性返回完整回复
// @Tags Chat
// @Produce plain
// @Param message query string true "用户消息"
// @Param conversation_id query string false "会话标识"
// @Success 200 {string} string
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/chat/text [get]
func (h *ChatHandler) Text(c *gin.Context) {
	message := c.Query("message")
	if message == "" {
		dto.BadRequest(c, "message is required")
		return
	}

	answer, err := h.svc.Chat(c.Request.Context(), message, c.Query("conversation_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, answer)
}

// Stream 流式聊天
// @Summary 流式聊天
// @Description 通过 SSE 逐段返回聊天回复
// @Tags Chat
// @Produce text/event-stream
// @Param message query string true "用户消息"
// @Param conversation_id query string false "会话标识"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/chat/stream [get]
func (h *ChatHandler) Stream(c *gin.Context) {
	message := c.Query("message")
	if message == "" {
		dto.BadRequest(c, "message is required")
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	err := h.svc.ChatStream(c.Request.Context(), message, c.Query("conversation_id"), func(delta string) error {
		c.SSEvent("message", delta)
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		c.SSEvent("error", gin.H{"message": err.Error()})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", "")
	c.Writer.Flush()
}
