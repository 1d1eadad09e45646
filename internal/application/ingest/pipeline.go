// Package ingest 实现文档入库流水线
package ingest

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rag-gateway/internal/application/vectorstore"
	"rag-gateway/internal/domain/entity"
	"rag-gateway/pkg/errors"
	"rag-gateway/pkg/logger"
	"rag-gateway/pkg/metrics"
)

var tracer = otel.Tracer("ingest")

// StoreProvider 按集合名提供向量存取句柄
type StoreProvider interface {
	Get(ctx context.Context, name string) (vectorstore.Store, error)
	Resolve(name string) string
}

// Options 流水线配置
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	// Atomic 为 true 时文件入库失败会尽力删除已写入的分块
	Atomic bool
}

// Pipeline 文档入库流水线
type Pipeline struct {
	stores StoreProvider
	parser Parser
	opts   Options
}

// NewPipeline 创建入库流水线
func NewPipeline(stores StoreProvider, parser Parser, opts Options) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 800
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	return &Pipeline{stores: stores, parser: parser, opts: opts}
}

// TextInput 文本入库请求
type TextInput struct {
	Content    string
	Title      string
	Collection string
	Metadata   map[string]string
}

// FileInput 文件入库请求
type FileInput struct {
	FileName   string
	Data       []byte
	Collection string
	// Metadata 调用方自定义元数据，覆盖解析器产出的同名键
	Metadata map[string]string
}

// IngestText 将一段文本作为单个分块写入集合
func (p *Pipeline) IngestText(ctx context.Context, in TextInput) (entity.Chunk, error) {
	ctx, span := tracer.Start(ctx, "ingest.IngestText")
	defer span.End()

	if strings.TrimSpace(in.Content) == "" {
		return entity.Chunk{}, errors.New(errors.CodeInvalidParam, "document content is empty")
	}

	collection := p.stores.Resolve(in.Collection)
	span.SetAttributes(attribute.String("collection", collection))
	start := time.Now()

	meta := mergeMeta(nil, in.Metadata)
	if in.Title != "" {
		meta[entity.MetaTitle] = in.Title
	}
	// 集合名永远以实际写入的集合为准，调用方提供的值会被覆盖
	meta[entity.MetaCollectionName] = collection

	chunk := entity.NewChunk(in.Content, meta)

	store, err := p.stores.Get(ctx, collection)
	if err != nil {
		return entity.Chunk{}, err
	}
	if err := store.Add(ctx, []entity.Chunk{chunk}); err != nil {
		span.RecordError(err)
		return entity.Chunk{}, errors.Wrap(err, errors.CodeIngestionFailed, "failed to add document")
	}

	metrics.IngestChunksTotal.WithLabelValues(collection, "text").Inc()
	metrics.IngestDuration.WithLabelValues(collection, "text").Observe(time.Since(start).Seconds())
	logger.Info(ctx, "document ingested", "collection", collection, "chunk_id", chunk.ID)
	return chunk, nil
}

// IngestFile 解析文件、分块并批量写入集合，返回写入的分块数
func (p *Pipeline) IngestFile(ctx context.Context, in FileInput) (int, error) {
	ctx, span := tracer.Start(ctx, "ingest.IngestFile")
	defer span.End()

	if len(in.Data) == 0 {
		return 0, errors.New(errors.CodeInvalidParam, "uploaded file is empty")
	}

	collection := p.stores.Resolve(in.Collection)
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.String("file_name", in.FileName),
	)
	start := time.Now()

	parsed, err := p.parser.Parse(ctx, in.FileName, in.Data)
	if err != nil {
		span.RecordError(err)
		return 0, errors.Wrap(err, errors.CodeParseFailed, "failed to parse file")
	}

	texts := splitByRunes(parsed.Text, p.opts.ChunkSize, p.opts.ChunkOverlap)
	if len(texts) == 0 {
		return 0, errors.New(errors.CodeParseFailed, "no text extracted from file")
	}

	chunks := make([]entity.Chunk, 0, len(texts))
	for _, text := range texts {
		// 解析器元数据打底，自定义元数据覆盖，集合名最后注入
		meta := mergeMeta(parsed.Metadata, in.Metadata)
		meta[entity.MetaCollectionName] = collection
		chunks = append(chunks, entity.NewChunk(text, meta))
	}

	store, err := p.stores.Get(ctx, collection)
	if err != nil {
		return 0, err
	}
	if err := store.Add(ctx, chunks); err != nil {
		span.RecordError(err)
		if p.opts.Atomic {
			p.rollback(ctx, store, chunks)
		}
		return 0, errors.Wrap(err, errors.CodeIngestionFailed, "failed to add file chunks")
	}

	metrics.IngestChunksTotal.WithLabelValues(collection, "file").Add(float64(len(chunks)))
	metrics.IngestDuration.WithLabelValues(collection, "file").Observe(time.Since(start).Seconds())
	logger.Info(ctx, "file ingested",
		"collection", collection,
		"file_name", in.FileName,
		"chunks", len(chunks),
	)
	return len(chunks), nil
}

// rollback 尽力删除本批分块，清理部分写入
func (p *Pipeline) rollback(ctx context.Context, store vectorstore.Store, chunks []entity.Chunk) {
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	if err := store.Delete(ctx, ids); err != nil {
		logger.Warn(ctx, "ingest rollback failed", "error", err.Error())
	}
}

// mergeMeta 先取 base 再用 override 覆盖，返回新 map
func mergeMeta(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}
