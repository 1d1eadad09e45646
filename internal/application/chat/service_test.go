package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"rag-gateway/internal/domain/entity"
)

type fakeModel struct {
	reply    string
	genErr   error
	lastMsgs []*schema.Message
	calls    int
}

func (m *fakeModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls++
	m.lastMsgs = in
	if m.genErr != nil {
		return nil, m.genErr
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeModel) Stream(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.calls++
	m.lastMsgs = in
	if m.genErr != nil {
		return nil, m.genErr
	}
	parts := []*schema.Message{
		schema.AssistantMessage("你好", nil),
		schema.AssistantMessage("，世界", nil),
	}
	return schema.StreamReaderFromArray(parts), nil
}

type fakeModels struct{ m *fakeModel }

func (f *fakeModels) Default(_ context.Context) (model.BaseChatModel, error) { return f.m, nil }
func (f *fakeModels) DefaultProviderName() string                            { return "fake" }

type fakeMemory struct {
	history  map[string][]entity.ChatMessage
	appended map[string][]entity.ChatMessage
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{
		history:  make(map[string][]entity.ChatMessage),
		appended: make(map[string][]entity.ChatMessage),
	}
}

func (m *fakeMemory) Append(_ context.Context, id string, msgs ...entity.ChatMessage) error {
	m.appended[id] = append(m.appended[id], msgs...)
	m.history[id] = append(m.history[id], msgs...)
	return nil
}

func (m *fakeMemory) History(_ context.Context, id string) ([]entity.ChatMessage, error) {
	return m.history[id], nil
}

func (m *fakeMemory) Clear(_ context.Context, id string) error {
	delete(m.history, id)
	return nil
}

type fakeRetriever struct {
	chunks []entity.ScoredChunk
	err    error
	calls  int
}

func (r *fakeRetriever) Retrieve(_ context.Context, _, _ string) ([]entity.ScoredChunk, error) {
	r.calls++
	return r.chunks, r.err
}

type fakeToolAgent struct {
	answer string
	err    error
	calls  int
}

func (a *fakeToolAgent) Run(_ context.Context, _ string, _ []entity.ChatMessage) (string, error) {
	a.calls++
	return a.answer, a.err
}

func newTestService(m *fakeModel, r *fakeRetriever, mem Memory, tools ToolAgent) *Service {
	return NewService(&fakeModels{m: m}, r, mem, tools, Options{TriggerKeyword: "文件"})
}

func TestAskRoutesToToolPath(t *testing.T) {
	m := &fakeModel{reply: "should not be used"}
	retriever := &fakeRetriever{}
	tools := &fakeToolAgent{answer: "目录下有 3 个文件"}
	svc := newTestService(m, retriever, newFakeMemory(), tools)

	answer, err := svc.Ask(context.Background(), AskInput{Question: "帮我看看文件夹里有什么", ConversationID: "c1"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "目录下有 3 个文件" {
		t.Errorf("answer = %q", answer)
	}
	if tools.calls != 1 {
		t.Errorf("tool agent calls = %d, want 1", tools.calls)
	}
	if retriever.calls != 0 {
		t.Errorf("retriever must not run on the tool path, got %d calls", retriever.calls)
	}
	if m.calls != 0 {
		t.Errorf("chat model must not run on the tool path, got %d calls", m.calls)
	}
}

func TestAskRoutesToRetrievalPath(t *testing.T) {
	m := &fakeModel{reply: "咖啡豆产自埃塞俄比亚"}
	retriever := &fakeRetriever{chunks: []entity.ScoredChunk{
		{
			Chunk: entity.Chunk{
				Text: "埃塞俄比亚是咖啡的发源地",
				Metadata: map[string]string{
					entity.MetaCollectionName: "rag",
					entity.MetaFileName:       "coffee.txt",
				},
			},
			Score: 0.9,
		},
	}}
	tools := &fakeToolAgent{}
	mem := newFakeMemory()
	svc := newTestService(m, retriever, mem, tools)

	answer, err := svc.Ask(context.Background(), AskInput{Question: "咖啡豆产自哪里", ConversationID: "c1"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "咖啡豆产自埃塞俄比亚" {
		t.Errorf("answer = %q", answer)
	}
	if tools.calls != 0 {
		t.Errorf("tool agent must not run on the retrieval path, got %d calls", tools.calls)
	}

	// 末条用户消息应为增强后的提示词
	last := m.lastMsgs[len(m.lastMsgs)-1]
	if !strings.Contains(last.Content, "埃塞俄比亚是咖啡的发源地") {
		t.Errorf("augmented prompt missing retrieved context:\n%s", last.Content)
	}
	if !strings.Contains(last.Content, "文件名：coffee.txt") {
		t.Errorf("augmented prompt missing file name header:\n%s", last.Content)
	}
	if m.lastMsgs[0].Role != schema.System {
		t.Error("first message must be the system prompt")
	}

	// 记忆里存原始问题，不存增强提示词
	appended := mem.appended["c1"]
	if len(appended) != 2 {
		t.Fatalf("appended %d messages, want 2", len(appended))
	}
	if appended[0].Content != "咖啡豆产自哪里" {
		t.Errorf("memory stored %q, want the original question", appended[0].Content)
	}
	if appended[1].Content != "咖啡豆产自埃塞俄比亚" {
		t.Errorf("memory stored %q, want the answer", appended[1].Content)
	}
}

func TestAskEmptyRetrievalStillAnswers(t *testing.T) {
	m := &fakeModel{reply: "无法从知识库中找到相关答案"}
	svc := newTestService(m, &fakeRetriever{}, newFakeMemory(), &fakeToolAgent{})

	answer, err := svc.Ask(context.Background(), AskInput{Question: "冷门问题"})
	if err != nil {
		t.Fatalf("empty retrieval must not fail the request: %v", err)
	}
	if answer == "" {
		t.Error("expected an answer")
	}
	// 空命中仍然渲染模板
	last := m.lastMsgs[len(m.lastMsgs)-1]
	if !strings.Contains(last.Content, "Context information is below") {
		t.Errorf("empty retrieval must still render the template:\n%s", last.Content)
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	svc := newTestService(&fakeModel{}, &fakeRetriever{}, newFakeMemory(), &fakeToolAgent{})

	if _, err := svc.Ask(context.Background(), AskInput{Question: "   "}); err == nil {
		t.Fatal("empty question must fail")
	}
}

func TestAskNoFallbackBetweenPaths(t *testing.T) {
	t.Run("tool failure does not fall back to retrieval", func(t *testing.T) {
		retriever := &fakeRetriever{}
		tools := &fakeToolAgent{err: errors.New("mcp server gone")}
		svc := newTestService(&fakeModel{reply: "x"}, retriever, newFakeMemory(), tools)

		if _, err := svc.Ask(context.Background(), AskInput{Question: "读一下文件"}); err == nil {
			t.Fatal("tool failure must surface")
		}
		if retriever.calls != 0 {
			t.Error("retrieval must not run after tool failure")
		}
	})

	t.Run("retrieval failure does not fall back to tool", func(t *testing.T) {
		retriever := &fakeRetriever{err: errors.New("engine down")}
		tools := &fakeToolAgent{answer: "x"}
		svc := newTestService(&fakeModel{reply: "x"}, retriever, newFakeMemory(), tools)

		if _, err := svc.Ask(context.Background(), AskInput{Question: "普通问题"}); err == nil {
			t.Fatal("retrieval failure must surface")
		}
		if tools.calls != 0 {
			t.Error("tool agent must not run after retrieval failure")
		}
	})
}

func TestAskIncludesHistory(t *testing.T) {
	m := &fakeModel{reply: "好的"}
	mem := newFakeMemory()
	mem.history["c1"] = []entity.ChatMessage{
		{Role: entity.ChatRoleUser, Content: "之前的问题"},
		{Role: entity.ChatRoleAssistant, Content: "之前的回答"},
	}
	svc := newTestService(m, &fakeRetriever{}, mem, &fakeToolAgent{})

	if _, err := svc.Ask(context.Background(), AskInput{Question: "接着聊", ConversationID: "c1"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	// system + 2 条历史 + 本次用户消息
	if len(m.lastMsgs) != 4 {
		t.Fatalf("model got %d messages, want 4", len(m.lastMsgs))
	}
	if m.lastMsgs[1].Content != "之前的问题" || m.lastMsgs[2].Content != "之前的回答" {
		t.Error("history not forwarded in order")
	}
}

func TestChatUsesCustomerManagerPrompt(t *testing.T) {
	m := &fakeModel{reply: "您好！"}
	svc := newTestService(m, &fakeRetriever{}, newFakeMemory(), &fakeToolAgent{})

	if _, err := svc.Chat(context.Background(), "讲个笑话", ""); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	sys := m.lastMsgs[0]
	if sys.Role != schema.System || !strings.Contains(sys.Content, "观风科技") {
		t.Errorf("system prompt = %q", sys.Content)
	}
	if !strings.Contains(sys.Content, "今天的日期是") {
		t.Error("system prompt missing current date")
	}
}

func TestChatStreamEmitsAndRemembers(t *testing.T) {
	m := &fakeModel{}
	mem := newFakeMemory()
	svc := newTestService(m, &fakeRetriever{}, mem, &fakeToolAgent{})

	var deltas []string
	err := svc.ChatStream(context.Background(), "你好", "c9", func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if len(deltas) != 2 || deltas[0] != "你好" || deltas[1] != "，世界" {
		t.Errorf("deltas = %v", deltas)
	}
	appended := mem.appended["c9"]
	if len(appended) != 2 || appended[1].Content != "你好，世界" {
		t.Errorf("memory writeback = %v, want full assembled answer", appended)
	}
}

func TestAskDefaultsConversationID(t *testing.T) {
	m := &fakeModel{reply: "ok"}
	mem := newFakeMemory()
	svc := newTestService(m, &fakeRetriever{}, mem, &fakeToolAgent{})

	if _, err := svc.Ask(context.Background(), AskInput{Question: "问题"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(mem.appended[DefaultConversationID]) != 2 {
		t.Errorf("memory not written under the default conversation id")
	}
}
