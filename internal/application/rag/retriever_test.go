package rag

import (
	"context"
	"errors"
	"testing"

	"rag-gateway/internal/application/vectorstore"
	"rag-gateway/internal/domain/entity"
)

type fakeStore struct {
	results   []entity.ScoredChunk
	searchErr error
	lastQuery vectorstore.SearchQuery
}

func (s *fakeStore) Add(_ context.Context, _ []entity.Chunk) error  { return nil }
func (s *fakeStore) Delete(_ context.Context, _ []string) error     { return nil }
func (s *fakeStore) SimilaritySearch(_ context.Context, q vectorstore.SearchQuery) ([]entity.ScoredChunk, error) {
	s.lastQuery = q
	return s.results, s.searchErr
}

type fakeProvider struct {
	store  *fakeStore
	getErr error
}

func (p *fakeProvider) Get(_ context.Context, _ string) (vectorstore.Store, error) {
	if p.getErr != nil {
		return nil, p.getErr
	}
	return p.store, nil
}

func (p *fakeProvider) Resolve(name string) string {
	if name == "" {
		return "rag"
	}
	return name
}

func inCollection(text, collection string, score float32) entity.ScoredChunk {
	return entity.ScoredChunk{
		Chunk: entity.Chunk{
			Text:     text,
			Metadata: map[string]string{entity.MetaCollectionName: collection},
		},
		Score: score,
	}
}

func TestRetrieveFiltersForeignCollections(t *testing.T) {
	store := &fakeStore{results: []entity.ScoredChunk{
		inCollection("属于目标集合", "kb1", 0.95),
		inCollection("串库的分块", "other", 0.93),
		inCollection("也属于目标集合", "kb1", 0.88),
	}}
	r := NewRetriever(&fakeProvider{store: store}, 4, 0)

	got, err := r.Retrieve(context.Background(), "问题", "kb1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("kept %d chunks, want 2", len(got))
	}
	if got[0].Text != "属于目标集合" || got[1].Text != "也属于目标集合" {
		t.Errorf("engine order not preserved: %v, %v", got[0].Text, got[1].Text)
	}
}

func TestRetrieveEmptyIsNotError(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(&fakeProvider{store: store}, 4, 0)

	got, err := r.Retrieve(context.Background(), "冷门问题", "kb1")
	if err != nil {
		t.Fatalf("empty retrieval must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d chunks, want 0", len(got))
	}
}

func TestRetrievePassesQueryParams(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(&fakeProvider{store: store}, 7, 0.3)

	if _, err := r.Retrieve(context.Background(), "问题", ""); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if store.lastQuery.TopK != 7 {
		t.Errorf("TopK = %d, want 7", store.lastQuery.TopK)
	}
	if store.lastQuery.ScoreThreshold != 0.3 {
		t.Errorf("ScoreThreshold = %v, want 0.3", store.lastQuery.ScoreThreshold)
	}
	if store.lastQuery.Text != "问题" {
		t.Errorf("Text = %q", store.lastQuery.Text)
	}
}

func TestRetrieveSearchError(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("engine down")}
	r := NewRetriever(&fakeProvider{store: store}, 4, 0)

	if _, err := r.Retrieve(context.Background(), "问题", "kb1"); err == nil {
		t.Fatal("engine failure must surface as error")
	}
}

func TestRetrieveStoreOpenError(t *testing.T) {
	r := NewRetriever(&fakeProvider{getErr: errors.New("store unavailable")}, 4, 0)

	if _, err := r.Retrieve(context.Background(), "问题", "kb1"); err == nil {
		t.Fatal("store open failure must surface as error")
	}
}
