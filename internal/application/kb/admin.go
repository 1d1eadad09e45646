// Package kb 实现知识库管理
package kb

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel"

	"rag-gateway/internal/application/vectorstore"
	"rag-gateway/internal/domain/entity"
	"rag-gateway/pkg/errors"
	"rag-gateway/pkg/logger"
)

var tracer = otel.Tracer("kb")

// collectionNamePattern Milvus 合法集合名：字母或下划线开头，限 64 字符
var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,63}$`)

// Admin 知识库管理
type Admin struct {
	registry *vectorstore.Registry
	engine   vectorstore.Engine
}

// NewAdmin 创建知识库管理器
func NewAdmin(registry *vectorstore.Registry, engine vectorstore.Engine) *Admin {
	return &Admin{registry: registry, engine: engine}
}

// List 列出全部知识库，目录不可达时降级为默认知识库
func (a *Admin) List(ctx context.Context) ([]entity.CollectionDescriptor, error) {
	ctx, span := tracer.Start(ctx, "kb.List")
	defer span.End()

	return a.registry.List(ctx)
}

// Create 创建知识库，已存在时返回冲突
func (a *Admin) Create(ctx context.Context, name, description string) error {
	ctx, span := tracer.Start(ctx, "kb.Create")
	defer span.End()

	if !collectionNamePattern.MatchString(name) {
		return errors.New(errors.CodeInvalidParam,
			"knowledge base name must start with a letter or underscore and contain only letters, digits and underscores")
	}

	exists, err := a.registry.Has(ctx, name)
	if err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable, "failed to check knowledge base existence")
	}
	if exists {
		return errors.New(errors.CodeConflict, fmt.Sprintf("knowledge base %q already exists", name))
	}

	if err := a.engine.CreateCollection(ctx, name, description); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, errors.CodeStoreUnavailable, "failed to create knowledge base")
	}

	logger.Info(ctx, "knowledge base created", "collection", name)
	return nil
}

// Delete 删除知识库，不存在时同样成功
func (a *Admin) Delete(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "kb.Delete")
	defer span.End()

	if name == "" {
		return errors.New(errors.CodeInvalidParam, "knowledge base name is empty")
	}
	return a.registry.Drop(ctx, name)
}
