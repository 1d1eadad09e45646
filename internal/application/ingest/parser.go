package ingest

import "context"

// ParsedDocument 解析器抽取结果
type ParsedDocument struct {
	// Text 抽取出的全文
	Text string
	// Metadata 解析器产出的元数据（file_name、file_type 等）
	Metadata map[string]string
}

// Parser 通用文档解析端口
type Parser interface {
	// Parse 从原始文件字节抽取纯文本和元数据
	Parse(ctx context.Context, fileName string, data []byte) (*ParsedDocument, error)
}
