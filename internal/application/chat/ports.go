// Package chat 实现会话路由与记忆聊天
package chat

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"rag-gateway/internal/domain/entity"
)

// Memory 会话记忆端口，实现负责窗口裁剪
type Memory interface {
	// Append 追加消息到会话
	Append(ctx context.Context, conversationID string, msgs ...entity.ChatMessage) error

	// History 返回会话窗口内的消息，旧到新
	History(ctx context.Context, conversationID string) ([]entity.ChatMessage, error)

	// Clear 清空会话
	Clear(ctx context.Context, conversationID string) error
}

// ToolAgent 工具委派端口
type ToolAgent interface {
	// Run 用外部工具回答问题，history 提供会话上下文
	Run(ctx context.Context, question string, history []entity.ChatMessage) (string, error)
}

// ModelProvider 提供聊天模型实例
type ModelProvider interface {
	Default(ctx context.Context) (model.BaseChatModel, error)
	DefaultProviderName() string
}

// Retriever 集合内相似度检索端口
type Retriever interface {
	Retrieve(ctx context.Context, question, collection string) ([]entity.ScoredChunk, error)
}
