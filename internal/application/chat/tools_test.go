package chat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"rag-gateway/internal/application/weather"
)

func TestWeatherToolCurrent(t *testing.T) {
	wt := NewWeatherTool(weather.NewService("", ""))

	out, err := wt.InvokableRun(context.Background(), `{"city":"北京"}`)
	if err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	var info weather.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("result is not weather info JSON: %v\n%s", err, out)
	}
	if info.City != "北京" {
		t.Errorf("city = %q", info.City)
	}
	if info.Description == "" {
		t.Error("description is empty")
	}
}

func TestWeatherToolForecast(t *testing.T) {
	wt := NewWeatherTool(weather.NewService("", ""))

	out, err := wt.InvokableRun(context.Background(), `{"city":"上海","days":3}`)
	if err != nil {
		t.Fatalf("InvokableRun: %v", err)
	}
	var forecast []weather.Info
	if err := json.Unmarshal([]byte(out), &forecast); err != nil {
		t.Fatalf("result is not a forecast JSON: %v\n%s", err, out)
	}
	if len(forecast) != 3 {
		t.Errorf("forecast days = %d, want 3", len(forecast))
	}
}

func TestWeatherToolMissingCity(t *testing.T) {
	wt := NewWeatherTool(weather.NewService("", ""))

	out, err := wt.InvokableRun(context.Background(), `{}`)
	if err != nil {
		t.Fatalf("argument errors must be returned as payload, got: %v", err)
	}
	if !strings.Contains(out, "city is required") {
		t.Errorf("out = %s", out)
	}
}

// fakeToolCallingModel 首轮返回工具调用，随后返回最终回答
type fakeToolCallingModel struct {
	toolCall   *schema.ToolCall
	finalReply string
	lastMsgs   []*schema.Message
	rounds     int
	boundInfos []*schema.ToolInfo
}

func (m *fakeToolCallingModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.rounds++
	m.lastMsgs = in
	if m.rounds == 1 && m.toolCall != nil {
		out := schema.AssistantMessage("", nil)
		out.ToolCalls = []schema.ToolCall{*m.toolCall}
		return out, nil
	}
	return schema.AssistantMessage(m.finalReply, nil), nil
}

func (m *fakeToolCallingModel) Stream(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.lastMsgs = in
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.finalReply, nil)}), nil
}

func (m *fakeToolCallingModel) WithTools(infos []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.boundInfos = infos
	return m, nil
}

type fakeToolCallingModels struct{ m *fakeToolCallingModel }

func (f *fakeToolCallingModels) Default(_ context.Context) (model.BaseChatModel, error) {
	return f.m, nil
}
func (f *fakeToolCallingModels) DefaultProviderName() string { return "fake" }

func TestChatRunsLocalTool(t *testing.T) {
	m := &fakeToolCallingModel{
		toolCall: &schema.ToolCall{
			ID: "call-1",
			Function: schema.FunctionCall{
				Name:      toolNameWeatherQuery,
				Arguments: `{"city":"北京"}`,
			},
		},
		finalReply: "北京今天天气不错",
	}
	svc := NewService(&fakeToolCallingModels{m: m}, &fakeRetriever{}, newFakeMemory(), &fakeToolAgent{}, Options{
		TriggerKeyword: "文件",
		Tools:          []tool.BaseTool{NewWeatherTool(weather.NewService("", ""))},
	})

	answer, err := svc.Chat(context.Background(), "北京今天天气怎么样", "c1")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "北京今天天气不错" {
		t.Errorf("answer = %q", answer)
	}
	if len(m.boundInfos) != 1 || m.boundInfos[0].Name != toolNameWeatherQuery {
		t.Errorf("bound tools = %v", m.boundInfos)
	}

	// 第二轮输入必须包含工具结果消息
	var sawToolMsg bool
	for _, msg := range m.lastMsgs {
		if msg.Role == schema.Tool && msg.ToolCallID == "call-1" {
			sawToolMsg = true
			if !strings.Contains(msg.Content, "北京") {
				t.Errorf("tool result missing payload: %s", msg.Content)
			}
		}
	}
	if !sawToolMsg {
		t.Error("tool result message not forwarded to the model")
	}
}

func TestChatUnknownToolFedBackToModel(t *testing.T) {
	m := &fakeToolCallingModel{
		toolCall: &schema.ToolCall{
			ID:       "call-2",
			Function: schema.FunctionCall{Name: "no_such_tool", Arguments: `{}`},
		},
		finalReply: "换个方式回答",
	}
	svc := NewService(&fakeToolCallingModels{m: m}, &fakeRetriever{}, newFakeMemory(), &fakeToolAgent{}, Options{
		Tools: []tool.BaseTool{NewWeatherTool(weather.NewService("", ""))},
	})

	answer, err := svc.Chat(context.Background(), "你好", "c1")
	if err != nil {
		t.Fatalf("unknown tool must not fail the conversation: %v", err)
	}
	if answer != "换个方式回答" {
		t.Errorf("answer = %q", answer)
	}
}

func TestChatPlainModelSkipsToolBinding(t *testing.T) {
	// 模型不支持工具绑定时退化为普通生成
	m := &fakeModel{reply: "您好"}
	svc := NewService(&fakeModels{m: m}, &fakeRetriever{}, newFakeMemory(), &fakeToolAgent{}, Options{
		Tools: []tool.BaseTool{NewWeatherTool(weather.NewService("", ""))},
	})

	answer, err := svc.Chat(context.Background(), "你好", "")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "您好" {
		t.Errorf("answer = %q", answer)
	}
}
