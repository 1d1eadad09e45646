// Package parser 提供文档文本抽取实现
package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rag-gateway/internal/application/ingest"
	"rag-gateway/internal/config"
	"rag-gateway/internal/domain/entity"
)

var tracer = otel.Tracer("parser")

// maxExtractBytes 单次抽取响应的读取上限
const maxExtractBytes = 32 << 20

// TikaParser 基于 Tika 协议的文本抽取器，实现 ingest.Parser。
// 未配置 endpoint 时退化为纯文本解析，便于本地开发。
type TikaParser struct {
	endpoint   string
	httpClient *http.Client
}

// NewTikaParser 创建文本抽取器
func NewTikaParser(cfg *config.ParserConfig) *TikaParser {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TikaParser{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Parse 抽取文件的纯文本内容并附带文件元数据
func (p *TikaParser) Parse(ctx context.Context, fileName string, data []byte) (*ingest.ParsedDocument, error) {
	ctx, span := tracer.Start(ctx, "parser.Parse",
		trace.WithAttributes(
			attribute.String("file_name", fileName),
			attribute.Int("size_bytes", len(data)),
		))
	defer span.End()

	mime := mimetype.Detect(data)
	span.SetAttributes(attribute.String("mime_type", mime.String()))

	var text string
	var err error
	if p.endpoint != "" {
		text, err = p.extract(ctx, data, mime.String())
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	} else {
		if !isTextual(mime) {
			return nil, fmt.Errorf("cannot parse %s without an extraction endpoint", mime.String())
		}
		text = string(data)
	}

	return &ingest.ParsedDocument{
		Text: text,
		Metadata: map[string]string{
			entity.MetaFileName: fileName,
			entity.MetaFileType: fileType(fileName, mime),
		},
	}, nil
}

// extract 调用 Tika 兼容服务抽取文本
func (p *TikaParser) extract(ctx context.Context, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.endpoint+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create extract request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("extract request failed: status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExtractBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read extract response: %w", err)
	}
	return string(body), nil
}

// fileType 优先取文件名扩展名，没有时回落到 MIME 推断的扩展名
func fileType(fileName string, mime *mimetype.MIME) string {
	if i := strings.LastIndex(fileName, "."); i >= 0 && i < len(fileName)-1 {
		return strings.ToLower(fileName[i+1:])
	}
	return strings.TrimPrefix(mime.Extension(), ".")
}

func isTextual(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return strings.HasPrefix(mime.String(), "text/") ||
		strings.Contains(mime.String(), "json") ||
		strings.Contains(mime.String(), "xml")
}
