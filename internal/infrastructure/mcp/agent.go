// Package mcp 提供基于 MCP 工具的问答代理
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	einojsonschema "github.com/eino-contrib/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rag-gateway/internal/config"
	"rag-gateway/internal/domain/entity"
	"rag-gateway/pkg/errors"
	"rag-gateway/pkg/logger"
	"rag-gateway/pkg/metrics"
)

var tracer = otel.Tracer("mcp")

const agentSystemPrompt = `你是一个文件助手，可以通过提供的工具读取和操作文件。
回答用户问题时优先使用工具获取真实内容，不要凭空编造文件内容。`

// ModelProvider 获取对话模型
type ModelProvider interface {
	Default(ctx context.Context) (model.BaseChatModel, error)
}

// Agent 通过 MCP 子进程暴露的工具回答问题，实现 chat.ToolAgent。
// 会话懒加载，首次使用时拉起 MCP 服务端。
type Agent struct {
	cfg    *config.ToolConfig
	models ModelProvider

	mu      sync.Mutex
	session *mcp.ClientSession
}

// NewAgent 创建工具代理
func NewAgent(cfg *config.ToolConfig, models ModelProvider) *Agent {
	return &Agent{cfg: cfg, models: models}
}

// Run 在工具辅助下回答问题
func (a *Agent) Run(ctx context.Context, question string, history []entity.ChatMessage) (string, error) {
	ctx, span := tracer.Start(ctx, "mcp.agent.Run")
	defer span.End()

	session, err := a.connect(ctx)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeToolCallFailed, "failed to connect mcp server")
	}

	toolInfos, err := a.listTools(ctx, session)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeToolCallFailed, "failed to list mcp tools")
	}
	span.SetAttributes(attribute.Int("tool_count", len(toolInfos)))

	baseModel, err := a.models.Default(ctx)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeLLMCallFailed, "failed to get chat model")
	}
	tcm, ok := baseModel.(model.ToolCallingChatModel)
	if !ok {
		return "", errors.New(errors.CodeToolCallFailed, "chat model does not support tool calling")
	}
	chatModel, err := tcm.WithTools(toolInfos)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeToolCallFailed, "failed to bind tools")
	}

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(agentSystemPrompt))
	for _, msg := range history {
		switch msg.Role {
		case entity.ChatRoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case entity.ChatRoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		}
	}
	messages = append(messages, schema.UserMessage(question))

	maxIterations := a.cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 5
	}

	for i := 0; i < maxIterations; i++ {
		resp, err := chatModel.Generate(ctx, messages)
		if err != nil {
			span.RecordError(err)
			return "", errors.Wrap(err, errors.CodeLLMCallFailed, "failed to generate")
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, resp)
		for _, call := range resp.ToolCalls {
			result, err := a.callTool(ctx, session, call)
			if err != nil {
				span.RecordError(err)
				// 把失败告知模型，让它决定如何继续
				result = fmt.Sprintf("tool call failed: %v", err)
			}
			messages = append(messages, schema.ToolMessage(result, call.ID))
		}
	}

	return "", errors.New(errors.CodeToolCallFailed, "tool iterations exhausted without a final answer")
}

// connect 建立（或复用）MCP 会话
func (a *Agent) connect(ctx context.Context) (*mcp.ClientSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return a.session, nil
	}
	if a.cfg.MCP.Command == "" {
		return nil, fmt.Errorf("mcp command is not configured")
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "rag-gateway",
		Version: "1.0.0",
	}, nil)

	cmd := exec.Command(a.cfg.MCP.Command, a.cfg.MCP.Args...)
	session, err := client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, err
	}

	a.session = session
	logger.Info(ctx, "mcp session established", "command", a.cfg.MCP.Command)
	return session, nil
}

// listTools 拉取 MCP 工具清单并转换为模型可用的工具信息
func (a *Agent) listTools(ctx context.Context, session *mcp.ClientSession) ([]*schema.ToolInfo, error) {
	result, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, err
	}

	infos := make([]*schema.ToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		info := &schema.ToolInfo{
			Name: t.Name,
			Desc: t.Description,
		}
		if t.InputSchema != nil {
			raw, err := json.Marshal(t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal schema of tool %s: %w", t.Name, err)
			}
			var js einojsonschema.Schema
			if err := json.Unmarshal(raw, &js); err != nil {
				return nil, fmt.Errorf("failed to convert schema of tool %s: %w", t.Name, err)
			}
			info.ParamsOneOf = schema.NewParamsOneOfByJSONSchema(&js)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// callTool 执行单次工具调用并拼接文本结果
func (a *Agent) callTool(ctx context.Context, session *mcp.ClientSession, call schema.ToolCall) (string, error) {
	ctx, span := tracer.Start(ctx, "mcp.agent.CallTool",
		trace.WithAttributes(attribute.String("tool", call.Function.Name)))
	defer span.End()

	start := time.Now()
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      call.Function.Name,
		Arguments: json.RawMessage(call.Function.Arguments),
	})
	metrics.ToolCallDuration.WithLabelValues(call.Function.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("%s", sb.String())
	}
	return sb.String(), nil
}

// Close 关闭 MCP 会话
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return nil
	}
	err := a.session.Close()
	a.session = nil
	return err
}
