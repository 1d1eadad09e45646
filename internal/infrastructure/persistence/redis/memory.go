// Package redis 提供 Redis 缓存和会话记忆实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rag-gateway/internal/domain/entity"
)

const memoryKeyPrefix = "chat:memory:"

// ChatMemory 基于 Redis List 的会话记忆，实现 chat.Memory。
// 每个会话保存最近 windowSize 条消息，滚动淘汰最旧的。
type ChatMemory struct {
	client     *Client
	windowSize int
	ttl        time.Duration
}

// NewChatMemory 创建会话记忆
func NewChatMemory(client *Client, windowSize int, ttl time.Duration) *ChatMemory {
	if windowSize <= 0 {
		windowSize = 20
	}
	return &ChatMemory{
		client:     client,
		windowSize: windowSize,
		ttl:        ttl,
	}
}

// Append 追加一批消息并裁剪到窗口大小
func (m *ChatMemory) Append(ctx context.Context, conversationID string, messages ...entity.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "memory.Append",
		trace.WithAttributes(
			attribute.String("conversation_id", conversationID),
			attribute.Int("count", len(messages)),
		))
	defer span.End()

	key := memoryKeyPrefix + conversationID
	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	pipe := m.client.rdb.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-m.windowSize), -1)
	if m.ttl > 0 {
		pipe.Expire(ctx, key, m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

// History 读取会话窗口内的全部消息，最旧在前
func (m *ChatMemory) History(ctx context.Context, conversationID string) ([]entity.ChatMessage, error) {
	ctx, span := tracer.Start(ctx, "memory.History",
		trace.WithAttributes(attribute.String("conversation_id", conversationID)))
	defer span.End()

	key := memoryKeyPrefix + conversationID
	raw, err := m.client.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]entity.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg entity.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			// 损坏的条目跳过，不拖垮整个会话
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Clear 清空会话记忆
func (m *ChatMemory) Clear(ctx context.Context, conversationID string) error {
	ctx, span := tracer.Start(ctx, "memory.Clear",
		trace.WithAttributes(attribute.String("conversation_id", conversationID)))
	defer span.End()

	if err := m.client.rdb.Del(ctx, memoryKeyPrefix+conversationID).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
