package rag

import (
	"strings"
	"testing"

	"rag-gateway/internal/domain/entity"
)

func scored(text, fileName string, score float32) entity.ScoredChunk {
	return entity.ScoredChunk{
		Chunk: entity.Chunk{
			Text:     text,
			Metadata: map[string]string{entity.MetaFileName: fileName},
		},
		Score: score,
	}
}

func TestAnswerAdvisorPassThroughWithoutRetrieval(t *testing.T) {
	req := NewRequest("今天天气如何", "rag", "c1")
	got := DefaultChain().Apply(req)

	if got.Prompt != req.Query {
		t.Errorf("prompt changed without retrieval: %q", got.Prompt)
	}
}

func TestAnswerAdvisorRendersContext(t *testing.T) {
	req := NewRequest("咖啡豆产自哪里", "rag", "c1").WithRetrieval([]entity.ScoredChunk{
		scored("埃塞俄比亚是咖啡的发源地", "coffee.txt", 0.92),
		scored("哥伦比亚咖啡以平衡著称", "coffee2.txt", 0.87),
	})
	got := DefaultChain().Apply(req)

	for _, want := range []string{
		"咖啡豆产自哪里",
		"Context information is below, surrounded by ---------------------",
		"文件名：coffee.txt\n埃塞俄比亚是咖啡的发源地",
		"文件名：coffee2.txt\n哥伦比亚咖啡以平衡著称",
		"not prior knowledge",
		"----- 参考文件：xxx.txt",
	} {
		if !strings.Contains(got.Prompt, want) {
			t.Errorf("prompt missing %q\nprompt:\n%s", want, got.Prompt)
		}
	}

	// 上下文顺序必须与检索顺序一致
	first := strings.Index(got.Prompt, "coffee.txt")
	second := strings.Index(got.Prompt, "coffee2.txt")
	if first < 0 || second < 0 || first > second {
		t.Error("retrieved chunk order not preserved in prompt")
	}
}

func TestAnswerAdvisorRendersEmptyContext(t *testing.T) {
	// 检索执行过但无命中：仍渲染模板，上下文为空
	req := NewRequest("冷门问题", "rag", "c1").WithRetrieval(nil)
	got := DefaultChain().Apply(req)

	if got.Prompt == req.Query {
		t.Fatal("empty retrieval must still render the template")
	}
	if !strings.Contains(got.Prompt, "---------------------\n\n---------------------") {
		t.Errorf("empty context block missing:\n%s", got.Prompt)
	}
}

func TestChainIsDeterministic(t *testing.T) {
	req := NewRequest("同一个问题", "rag", "c1").WithRetrieval([]entity.ScoredChunk{
		scored("内容一", "a.txt", 0.9),
		scored("内容二", "b.txt", 0.8),
	})

	first := DefaultChain().Apply(req)
	second := DefaultChain().Apply(req)
	if first.Prompt != second.Prompt {
		t.Error("identical input must produce byte-identical prompts")
	}
}

func TestChainDoesNotMutateInput(t *testing.T) {
	req := NewRequest("问题", "rag", "c1").WithRetrieval([]entity.ScoredChunk{
		scored("内容", "a.txt", 0.9),
	})
	before := req.Prompt

	_ = DefaultChain().Apply(req)
	if req.Prompt != before {
		t.Error("advisors must not mutate the input request")
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	chain := NewChain(
		Advisor{Name: "first", Transform: func(r Request) Request {
			order = append(order, "first")
			return r
		}},
		Advisor{Name: "second", Transform: func(r Request) Request {
			order = append(order, "second")
			return r
		}},
	)
	chain.Apply(NewRequest("q", "rag", ""))

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("advisors ran in order %v", order)
	}
}
