package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"rag-gateway/internal/domain/entity"
	"rag-gateway/pkg/errors"
	"rag-gateway/pkg/logger"
	"rag-gateway/pkg/metrics"
)

// Registry 按集合名缓存 Store 句柄
//
// 同名集合的句柄只构建一次，并发首次访问由 singleflight 合并，
// 引擎侧的建集合操作不会重复执行。
type Registry struct {
	engine            Engine
	defaultCollection string

	group  singleflight.Group
	mu     sync.RWMutex
	stores map[string]Store
}

// NewRegistry 创建注册表
func NewRegistry(engine Engine, defaultCollection string) *Registry {
	return &Registry{
		engine:            engine,
		defaultCollection: defaultCollection,
		stores:            make(map[string]Store),
	}
}

// DefaultCollection 返回默认集合名
func (r *Registry) DefaultCollection() string {
	return r.defaultCollection
}

// Resolve 归一化集合名，空名落到默认集合
func (r *Registry) Resolve(name string) string {
	if name == "" {
		return r.defaultCollection
	}
	return name
}

// Get 获取集合的 Store 句柄，必要时创建集合
func (r *Registry) Get(ctx context.Context, name string) (Store, error) {
	name = r.Resolve(name)

	r.mu.RLock()
	store, ok := r.stores[name]
	r.mu.RUnlock()
	if ok {
		return store, nil
	}

	v, err, _ := r.group.Do(name, func() (interface{}, error) {
		// 二次检查，singleflight 合并窗口之外的并发者可能已写入
		r.mu.RLock()
		cached, ok := r.stores[name]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		opened, err := r.engine.OpenStore(ctx, name)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStoreUnavailable,
				fmt.Sprintf("failed to open vector store for collection %q", name))
		}

		r.mu.Lock()
		r.stores[name] = opened
		r.mu.Unlock()
		metrics.RegistryStoresOpen.Set(float64(r.size()))

		logger.Info(ctx, "vector store opened", "collection", name)
		return opened, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Store), nil
}

// Drop 删除集合及其缓存句柄，集合不存在时同样成功
func (r *Registry) Drop(ctx context.Context, name string) error {
	name = r.Resolve(name)

	r.mu.Lock()
	delete(r.stores, name)
	r.mu.Unlock()
	metrics.RegistryStoresOpen.Set(float64(r.size()))

	if err := r.engine.DropCollection(ctx, name); err != nil {
		return errors.Wrap(err, errors.CodeStoreUnavailable,
			fmt.Sprintf("failed to drop collection %q", name))
	}

	logger.Info(ctx, "collection dropped", "collection", name)
	return nil
}

// Has 检查集合是否存在
func (r *Registry) Has(ctx context.Context, name string) (bool, error) {
	return r.engine.HasCollection(ctx, r.Resolve(name))
}

// List 列出全部集合
//
// 引擎目录不可达时降级为仅返回默认集合，保证管理页可用。
func (r *Registry) List(ctx context.Context) ([]entity.CollectionDescriptor, error) {
	descs, err := r.engine.ListCollections(ctx)
	if err != nil {
		logger.Warn(ctx, "collection listing degraded to default collection", "error", err.Error())
		return []entity.CollectionDescriptor{{Name: r.defaultCollection}}, nil
	}
	return descs, nil
}

func (r *Registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}
