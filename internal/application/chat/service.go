package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rag-gateway/internal/application/rag"
	"rag-gateway/internal/domain/entity"
	einoobs "rag-gateway/internal/observability/eino"
	apperrors "rag-gateway/pkg/errors"
	"rag-gateway/pkg/logger"
	"rag-gateway/pkg/metrics"
)

var tracer = otel.Tracer("chat")

// DefaultConversationID 未提供会话标识时使用的默认值
const DefaultConversationID = "default"

// route 会话路径
type route string

const (
	routeRetrieval route = "retrieval"
	routeTool      route = "tool"
)

// Options 路由配置
type Options struct {
	// TriggerKeyword 问题包含该子串时走工具委派路径
	TriggerKeyword string

	// Tools 普通聊天路径可用的本地工具
	Tools []tool.BaseTool
}

// maxLocalToolRounds 本地工具调用的最大轮数，防止死循环
const maxLocalToolRounds = 5

// Service 会话路由服务
//
// 每个问答请求走 Received -> Classified -> 单一路径 -> Answered，
// 路径之间不做回退，失败直接上抛。
type Service struct {
	models     ModelProvider
	retriever  Retriever
	memory     Memory
	tools      ToolAgent
	localTools []tool.BaseTool
	chain      rag.Chain
	trigger    string
}

// NewService 创建会话路由服务
func NewService(models ModelProvider, retriever Retriever, memory Memory, tools ToolAgent, opts Options) *Service {
	trigger := opts.TriggerKeyword
	if trigger == "" {
		trigger = "文件"
	}
	return &Service{
		models:     models,
		retriever:  retriever,
		memory:     memory,
		tools:      tools,
		localTools: opts.Tools,
		chain:      rag.DefaultChain(),
		trigger:    trigger,
	}
}

// AskInput 知识库问答请求
type AskInput struct {
	Question       string
	Collection     string
	ConversationID string
}

// Ask 路由并回答一个问题
func (s *Service) Ask(ctx context.Context, in AskInput) (string, error) {
	if strings.TrimSpace(in.Question) == "" {
		return "", apperrors.New(apperrors.CodeInvalidParam, "question is empty")
	}

	convID := in.ConversationID
	if convID == "" {
		convID = DefaultConversationID
	}
	ctx = logger.WithContext(ctx, logger.ConversationIDKey, convID)

	ctx, span := tracer.Start(ctx, "chat.Ask")
	defer span.End()

	r := s.classify(in.Question)
	span.SetAttributes(attribute.String("route", string(r)))
	logger.Info(ctx, "conversation classified", "route", string(r))

	switch r {
	case routeTool:
		return s.toolAnswer(ctx, in.Question, convID)
	default:
		return s.retrievalAnswer(ctx, in.Question, in.Collection, convID)
	}
}

// classify 决定会话路径，互斥且无回退
func (s *Service) classify(question string) route {
	if strings.Contains(question, s.trigger) {
		return routeTool
	}
	return routeRetrieval
}

// toolAnswer 工具委派路径
func (s *Service) toolAnswer(ctx context.Context, question, convID string) (string, error) {
	ctx, span := tracer.Start(ctx, "chat.toolAnswer")
	defer span.End()

	history, err := s.memory.History(ctx, convID)
	if err != nil {
		logger.Warn(ctx, "memory load failed, continuing without history", "error", err.Error())
		history = nil
	}

	answer, err := s.tools.Run(ctx, question, history)
	if err != nil {
		span.RecordError(err)
		metrics.ToolDelegationTotal.WithLabelValues("error").Inc()
		return "", apperrors.Wrap(err, apperrors.CodeAnswerFailed, "tool delegation failed")
	}
	metrics.ToolDelegationTotal.WithLabelValues("success").Inc()

	s.remember(ctx, convID, question, answer)
	return answer, nil
}

// retrievalAnswer 检索增强路径
func (s *Service) retrievalAnswer(ctx context.Context, question, collection, convID string) (string, error) {
	ctx, span := tracer.Start(ctx, "chat.retrievalAnswer")
	defer span.End()

	chunks, err := s.retriever.Retrieve(ctx, question, collection)
	if err != nil {
		span.RecordError(err)
		return "", apperrors.Wrap(err, apperrors.CodeAnswerFailed, "retrieval failed")
	}

	req := rag.NewRequest(question, collection, convID).WithRetrieval(chunks)
	final := s.chain.Apply(req)

	history, err := s.memory.History(ctx, convID)
	if err != nil {
		logger.Warn(ctx, "memory load failed, continuing without history", "error", err.Error())
		history = nil
	}

	msgs := buildMessages(rag.SystemPrompt, history, final.Prompt)
	answer, err := s.generate(ctx, msgs)
	if err != nil {
		span.RecordError(err)
		return "", apperrors.Wrap(err, apperrors.CodeAnswerFailed, "answer generation failed")
	}

	s.remember(ctx, convID, question, answer)
	return answer, nil
}

// Chat 普通记忆聊天
func (s *Service) Chat(ctx context.Context, message, conversationID string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperrors.New(apperrors.CodeInvalidParam, "message is empty")
	}
	convID := conversationID
	if convID == "" {
		convID = DefaultConversationID
	}
	ctx = logger.WithContext(ctx, logger.ConversationIDKey, convID)

	ctx, span := tracer.Start(ctx, "chat.Chat")
	defer span.End()

	history, err := s.memory.History(ctx, convID)
	if err != nil {
		logger.Warn(ctx, "memory load failed, continuing without history", "error", err.Error())
		history = nil
	}

	msgs := buildMessages(s.chatSystemPrompt(), history, message)
	answer, err := s.generateWithTools(ctx, msgs)
	if err != nil {
		span.RecordError(err)
		return "", apperrors.Wrap(err, apperrors.CodeAnswerFailed, "chat generation failed")
	}

	s.remember(ctx, convID, message, answer)
	return answer, nil
}

// ChatStream 流式记忆聊天，每个增量调用一次 emit
func (s *Service) ChatStream(ctx context.Context, message, conversationID string, emit func(delta string) error) error {
	if strings.TrimSpace(message) == "" {
		return apperrors.New(apperrors.CodeInvalidParam, "message is empty")
	}
	convID := conversationID
	if convID == "" {
		convID = DefaultConversationID
	}
	ctx = logger.WithContext(ctx, logger.ConversationIDKey, convID)

	ctx, span := tracer.Start(ctx, "chat.ChatStream")
	defer span.End()

	history, err := s.memory.History(ctx, convID)
	if err != nil {
		logger.Warn(ctx, "memory load failed, continuing without history", "error", err.Error())
		history = nil
	}

	m, err := s.models.Default(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeLLMProviderError, "no chat model available")
	}

	ctx = einoobs.WithProvider(ctx, s.models.DefaultProviderName())
	reader, err := m.Stream(ctx, buildMessages(s.chatSystemPrompt(), history, message))
	if err != nil {
		span.RecordError(err)
		return apperrors.Wrap(err, apperrors.CodeAnswerFailed, "chat stream failed")
	}
	defer reader.Close()

	var full strings.Builder
	for {
		msg, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			span.RecordError(err)
			return apperrors.Wrap(err, apperrors.CodeAnswerFailed, "chat stream interrupted")
		}
		if msg.Content == "" {
			continue
		}
		full.WriteString(msg.Content)
		if err := emit(msg.Content); err != nil {
			return err
		}
	}

	s.remember(ctx, convID, message, full.String())
	return nil
}

// generate 调用默认模型生成一条回复
func (s *Service) generate(ctx context.Context, msgs []*schema.Message) (string, error) {
	m, err := s.models.Default(ctx)
	if err != nil {
		return "", fmt.Errorf("no chat model available: %w", err)
	}

	ctx = einoobs.WithProvider(ctx, s.models.DefaultProviderName())
	out, err := m.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// generateWithTools 带本地工具的生成，模型不支持工具绑定时退化为普通生成
func (s *Service) generateWithTools(ctx context.Context, msgs []*schema.Message) (string, error) {
	if len(s.localTools) == 0 {
		return s.generate(ctx, msgs)
	}

	m, err := s.models.Default(ctx)
	if err != nil {
		return "", fmt.Errorf("no chat model available: %w", err)
	}
	tcm, ok := m.(model.ToolCallingChatModel)
	if !ok {
		return s.generate(ctx, msgs)
	}

	infos := make([]*schema.ToolInfo, 0, len(s.localTools))
	invokables := make(map[string]tool.InvokableTool, len(s.localTools))
	for _, t := range s.localTools {
		info, err := t.Info(ctx)
		if err != nil {
			return "", fmt.Errorf("load tool info: %w", err)
		}
		infos = append(infos, info)
		if inv, ok := t.(tool.InvokableTool); ok {
			invokables[info.Name] = inv
		}
	}

	bound, err := tcm.WithTools(infos)
	if err != nil {
		logger.Warn(ctx, "tool binding not supported, falling back to plain generation", "error", err.Error())
		return s.generate(ctx, msgs)
	}

	ctx = einoobs.WithProvider(ctx, s.models.DefaultProviderName())
	for round := 0; round < maxLocalToolRounds; round++ {
		out, err := bound.Generate(ctx, msgs)
		if err != nil {
			return "", err
		}
		if len(out.ToolCalls) == 0 {
			return out.Content, nil
		}

		msgs = append(msgs, out)
		for _, call := range out.ToolCalls {
			result := s.runLocalTool(ctx, invokables, call)
			msgs = append(msgs, schema.ToolMessage(result, call.ID))
		}
	}
	return "", fmt.Errorf("too many tool rounds")
}

// runLocalTool 执行一次工具调用，失败结果反馈给模型而不是中断会话
func (s *Service) runLocalTool(ctx context.Context, invokables map[string]tool.InvokableTool, call schema.ToolCall) string {
	inv, ok := invokables[call.Function.Name]
	if !ok {
		return fmt.Sprintf("tool %s not found", call.Function.Name)
	}
	result, err := inv.InvokableRun(ctx, call.Function.Arguments)
	if err != nil {
		logger.Warn(ctx, "local tool call failed",
			"tool", call.Function.Name,
			"error", err.Error(),
		)
		return fmt.Sprintf("tool call failed: %v", err)
	}
	return result
}

// remember 回写一轮会话，失败只告警
func (s *Service) remember(ctx context.Context, convID, question, answer string) {
	err := s.memory.Append(ctx, convID,
		entity.ChatMessage{Role: entity.ChatRoleUser, Content: question},
		entity.ChatMessage{Role: entity.ChatRoleAssistant, Content: answer},
	)
	if err != nil {
		logger.Warn(ctx, "memory writeback failed", "error", err.Error())
	}
}

func (s *Service) chatSystemPrompt() string {
	return fmt.Sprintf(chatSystemPromptTemplate, time.Now().Format("2006-01-02 15:04:05"))
}

// buildMessages 组装系统提示词、历史消息和用户消息
func buildMessages(system string, history []entity.ChatMessage, user string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(system))
	for _, h := range history {
		switch h.Role {
		case entity.ChatRoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(h.Content, nil))
		case entity.ChatRoleSystem:
			msgs = append(msgs, schema.SystemMessage(h.Content))
		default:
			msgs = append(msgs, schema.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, schema.UserMessage(user))
	return msgs
}
