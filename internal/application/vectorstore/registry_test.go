package vectorstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rag-gateway/internal/domain/entity"
)

type fakeStore struct {
	collection string
	chunks     []entity.Chunk
}

func (s *fakeStore) Add(_ context.Context, chunks []entity.Chunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, ids []string) error { return nil }

func (s *fakeStore) SimilaritySearch(_ context.Context, _ SearchQuery) ([]entity.ScoredChunk, error) {
	return nil, nil
}

type fakeEngine struct {
	mu        sync.Mutex
	openCalls map[string]int
	openDelay time.Duration
	dropped   []string
	listErr   error
	listDescs []entity.CollectionDescriptor
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{openCalls: make(map[string]int)}
}

func (e *fakeEngine) OpenStore(_ context.Context, collection string) (Store, error) {
	if e.openDelay > 0 {
		time.Sleep(e.openDelay)
	}
	e.mu.Lock()
	e.openCalls[collection]++
	e.mu.Unlock()
	return &fakeStore{collection: collection}, nil
}

func (e *fakeEngine) CreateCollection(_ context.Context, collection, _ string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openCalls[collection]++
	return nil
}

func (e *fakeEngine) HasCollection(_ context.Context, collection string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openCalls[collection] > 0, nil
}

func (e *fakeEngine) DropCollection(_ context.Context, collection string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropped = append(e.dropped, collection)
	return nil
}

func (e *fakeEngine) ListCollections(_ context.Context) ([]entity.CollectionDescriptor, error) {
	if e.listErr != nil {
		return nil, e.listErr
	}
	return e.listDescs, nil
}

func (e *fakeEngine) Close() error { return nil }

func TestRegistryGetCachesHandle(t *testing.T) {
	engine := newFakeEngine()
	reg := NewRegistry(engine, "rag")

	first, err := reg.Get(context.Background(), "kb1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := reg.Get(context.Background(), "kb1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first != second {
		t.Error("expected the same store handle for repeated Get")
	}
	if engine.openCalls["kb1"] != 1 {
		t.Errorf("OpenStore called %d times, want 1", engine.openCalls["kb1"])
	}
}

func TestRegistryGetDefaultsEmptyName(t *testing.T) {
	engine := newFakeEngine()
	reg := NewRegistry(engine, "rag")

	store, err := reg.Get(context.Background(), "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if store.(*fakeStore).collection != "rag" {
		t.Errorf("empty name resolved to %q, want rag", store.(*fakeStore).collection)
	}
}

func TestRegistryConcurrentGetOpensOnce(t *testing.T) {
	engine := newFakeEngine()
	engine.openDelay = 10 * time.Millisecond
	reg := NewRegistry(engine, "rag")

	const goroutines = 32
	var wg sync.WaitGroup
	var failures atomic.Int32
	stores := make([]Store, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := reg.Get(context.Background(), "kb_concurrent")
			if err != nil {
				failures.Add(1)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	if failures.Load() > 0 {
		t.Fatalf("%d Get calls failed", failures.Load())
	}
	if got := engine.openCalls["kb_concurrent"]; got != 1 {
		t.Errorf("OpenStore called %d times under contention, want 1", got)
	}
	for i := 1; i < goroutines; i++ {
		if stores[i] != stores[0] {
			t.Fatal("concurrent Get returned distinct handles")
		}
	}
}

func TestRegistryDropEvictsHandle(t *testing.T) {
	engine := newFakeEngine()
	reg := NewRegistry(engine, "rag")

	if _, err := reg.Get(context.Background(), "kb1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := reg.Drop(context.Background(), "kb1"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if _, err := reg.Get(context.Background(), "kb1"); err != nil {
		t.Fatalf("Get after drop: %v", err)
	}
	if engine.openCalls["kb1"] != 2 {
		t.Errorf("OpenStore called %d times, want 2 (handle must be evicted on drop)", engine.openCalls["kb1"])
	}
	if len(engine.dropped) != 1 || engine.dropped[0] != "kb1" {
		t.Errorf("dropped = %v, want [kb1]", engine.dropped)
	}
}

func TestRegistryDropAbsentCollectionSucceeds(t *testing.T) {
	engine := newFakeEngine()
	reg := NewRegistry(engine, "rag")

	if err := reg.Drop(context.Background(), "never_created"); err != nil {
		t.Fatalf("Drop of absent collection: %v", err)
	}
}

func TestRegistryListDegradesToDefault(t *testing.T) {
	engine := newFakeEngine()
	engine.listErr = errors.New("catalog unreachable")
	reg := NewRegistry(engine, "rag")

	descs, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("List should not fail when catalog is down: %v", err)
	}
	if len(descs) != 1 || descs[0].Name != "rag" {
		t.Errorf("degraded List = %v, want just the default collection", descs)
	}
}

func TestRegistryListPassesThrough(t *testing.T) {
	engine := newFakeEngine()
	engine.listDescs = []entity.CollectionDescriptor{
		{Name: "rag", ChunkCount: 3},
		{Name: "kb1", ChunkCount: 10},
	}
	reg := NewRegistry(engine, "rag")

	descs, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("List returned %d collections, want 2", len(descs))
	}
}
