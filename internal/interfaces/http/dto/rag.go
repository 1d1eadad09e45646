// Package dto 提供 HTTP 层数据传输对象
package dto

// AddDocumentRequest 文本入库请求
type AddDocumentRequest struct {
	Content        string            `json:"content" binding:"required"`
	Title          string            `json:"title"`
	CollectionName string            `json:"collection_name"`
	Metadata       map[string]string `json:"metadata"`
}

// AddDocumentResponse 文本入库响应
type AddDocumentResponse struct {
	Collection string `json:"collection"`
	ChunkCount int    `json:"chunk_count"`
}

// UploadFileResponse 文件入库响应
type UploadFileResponse struct {
	FileName   string `json:"file_name"`
	Collection string `json:"collection"`
	ChunkCount int    `json:"chunk_count"`
}

// AskRequest 知识库问答请求
type AskRequest struct {
	Question       string `json:"question" binding:"required"`
	CollectionName string `json:"collection_name"`
	ConversationID string `json:"conversation_id"`
}

// AskResponse 知识库问答响应
type AskResponse struct {
	Answer         string `json:"answer"`
	Collection     string `json:"collection"`
	ConversationID string `json:"conversation_id"`
}
