package rag

import (
	"fmt"
	"strings"

	"rag-gateway/internal/domain/entity"
	"rag-gateway/pkg/logger"
)

// Request 提示词增强请求
//
// 值类型，Advisor 不得原地修改，只能返回新值。
type Request struct {
	// Query 用户原始问题
	Query string
	// Collection 检索目标集合
	Collection string
	// ConversationID 会话标识
	ConversationID string
	// Retrieved 检索结果，RetrievalRan 为 false 时无意义
	Retrieved []entity.ScoredChunk
	// RetrievalRan 本次请求是否执行过检索
	RetrievalRan bool
	// Prompt 最终送往模型的用户消息，初始等于 Query
	Prompt string
}

// NewRequest 构造初始请求
func NewRequest(query, collection, conversationID string) Request {
	return Request{
		Query:          query,
		Collection:     collection,
		ConversationID: conversationID,
		Prompt:         query,
	}
}

// WithRetrieval 返回挂上检索结果的请求副本
func (r Request) WithRetrieval(chunks []entity.ScoredChunk) Request {
	r.Retrieved = chunks
	r.RetrievalRan = true
	return r
}

// Advisor 提示词增强链中的一环
type Advisor struct {
	Name      string
	Transform func(Request) Request
}

// Chain 按固定顺序执行的 Advisor 链
type Chain struct {
	advisors []Advisor
}

// NewChain 创建 Advisor 链，顺序即执行顺序
func NewChain(advisors ...Advisor) Chain {
	return Chain{advisors: advisors}
}

// Apply 依次执行全部 Advisor
func (c Chain) Apply(req Request) Request {
	for _, adv := range c.advisors {
		req = adv.Transform(req)
	}
	return req
}

// DefaultChain 默认增强链：日志 -> 答案模板（答案模板必须最后执行）
func DefaultChain() Chain {
	return NewChain(LoggerAdvisor(), AnswerAdvisor())
}

// LoggerAdvisor 记录请求概要，不改动请求
func LoggerAdvisor() Advisor {
	return Advisor{
		Name: "logger",
		Transform: func(req Request) Request {
			logger.Default().Debug("advisor request",
				"collection", req.Collection,
				"conversation_id", req.ConversationID,
				"retrieval_ran", req.RetrievalRan,
				"retrieved", len(req.Retrieved),
			)
			return req
		},
	}
}

const answerTemplate = `%s

Context information is below, surrounded by ---------------------

---------------------
%s
---------------------

Given the context and provided history information and not prior knowledge,
reply to the user comment. If the answer is not in the context, inform
the user that you can't answer the question.
`

const citationFooter = "回答时请给出参考文件的来源，文件名会通过fileName提供给你,显示格式为：\n ----- 参考文件：xxx.txt "

// AnswerAdvisor 渲染最终的问答提示词
//
// 未执行检索的请求原样放行；执行过检索的请求（即便无命中）
// 都会渲染上下文模板并附加引用要求。输出只取决于输入。
func AnswerAdvisor() Advisor {
	return Advisor{
		Name: "answer",
		Transform: func(req Request) Request {
			if !req.RetrievalRan {
				return req
			}

			lines := make([]string, 0, len(req.Retrieved))
			for _, sc := range req.Retrieved {
				lines = append(lines, "文件名："+sc.Meta(entity.MetaFileName)+"\n"+sc.Text)
			}
			docContext := strings.Join(lines, "\n")

			req.Prompt = fmt.Sprintf(answerTemplate, req.Query, docContext) + citationFooter
			return req
		},
	}
}
