package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"rag-gateway/internal/application/vectorstore"
	"rag-gateway/internal/domain/entity"
)

type fakeStore struct {
	added   []entity.Chunk
	deleted []string
	addErr  error
}

func (s *fakeStore) Add(_ context.Context, chunks []entity.Chunk) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, chunks...)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, ids []string) error {
	s.deleted = append(s.deleted, ids...)
	return nil
}

func (s *fakeStore) SimilaritySearch(_ context.Context, _ vectorstore.SearchQuery) ([]entity.ScoredChunk, error) {
	return nil, nil
}

type fakeProvider struct {
	store *fakeStore
	def   string
	got   []string
}

func (p *fakeProvider) Get(_ context.Context, name string) (vectorstore.Store, error) {
	p.got = append(p.got, name)
	return p.store, nil
}

func (p *fakeProvider) Resolve(name string) string {
	if name == "" {
		return p.def
	}
	return name
}

type fakeParser struct {
	doc *ParsedDocument
	err error
}

func (p *fakeParser) Parse(_ context.Context, _ string, _ []byte) (*ParsedDocument, error) {
	return p.doc, p.err
}

func newTestPipeline(store *fakeStore, parser Parser, atomic bool) *Pipeline {
	provider := &fakeProvider{store: store, def: "rag"}
	return NewPipeline(provider, parser, Options{ChunkSize: 10, ChunkOverlap: 2, Atomic: atomic})
}

func TestIngestTextInjectsCollectionName(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store, &fakeParser{}, false)

	chunk, err := p.IngestText(context.Background(), TextInput{
		Content:    "咖啡豆的种植海拔影响风味",
		Title:      "coffee",
		Collection: "kb1",
		Metadata:   map[string]string{entity.MetaCollectionName: "spoofed", "origin": "manual"},
	})
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	if len(store.added) != 1 {
		t.Fatalf("added %d chunks, want 1", len(store.added))
	}
	if got := chunk.Meta(entity.MetaCollectionName); got != "kb1" {
		t.Errorf("collection_name = %q, want kb1 (caller value must be overridden)", got)
	}
	if got := chunk.Meta(entity.MetaTitle); got != "coffee" {
		t.Errorf("title = %q, want coffee", got)
	}
	if got := chunk.Meta("origin"); got != "manual" {
		t.Errorf("custom metadata lost: origin = %q", got)
	}
	if chunk.ID == "" {
		t.Error("chunk ID not assigned")
	}
}

func TestIngestTextEmptyContent(t *testing.T) {
	p := newTestPipeline(&fakeStore{}, &fakeParser{}, false)

	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := p.IngestText(context.Background(), TextInput{Content: content}); err == nil {
			t.Errorf("IngestText(%q) should fail", content)
		}
	}
}

func TestIngestTextDefaultsCollection(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(store, &fakeParser{}, false)

	chunk, err := p.IngestText(context.Background(), TextInput{Content: "hello world"})
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	if got := chunk.Meta(entity.MetaCollectionName); got != "rag" {
		t.Errorf("collection_name = %q, want rag", got)
	}
}

func TestIngestFileMetadataPrecedence(t *testing.T) {
	store := &fakeStore{}
	parser := &fakeParser{doc: &ParsedDocument{
		Text: "short text",
		Metadata: map[string]string{
			entity.MetaFileName: "notes.txt",
			entity.MetaFileType: "text/plain",
			entity.MetaTag:      "parser-tag",
		},
	}}
	p := newTestPipeline(store, parser, false)

	n, err := p.IngestFile(context.Background(), FileInput{
		FileName:   "notes.txt",
		Data:       []byte("raw"),
		Collection: "kb1",
		Metadata:   map[string]string{entity.MetaTag: "custom-tag"},
	})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if n != 1 {
		t.Fatalf("ingested %d chunks, want 1", n)
	}
	chunk := store.added[0]
	if got := chunk.Meta(entity.MetaTag); got != "custom-tag" {
		t.Errorf("tag = %q, custom metadata must win over parser metadata", got)
	}
	if got := chunk.Meta(entity.MetaFileName); got != "notes.txt" {
		t.Errorf("file_name = %q, parser metadata must survive when not overridden", got)
	}
	if got := chunk.Meta(entity.MetaCollectionName); got != "kb1" {
		t.Errorf("collection_name = %q, want kb1", got)
	}
}

func TestIngestFileSplitsLongText(t *testing.T) {
	store := &fakeStore{}
	parser := &fakeParser{doc: &ParsedDocument{
		Text:     strings.Repeat("a", 25),
		Metadata: map[string]string{entity.MetaFileName: "big.txt"},
	}}
	p := newTestPipeline(store, parser, false)

	n, err := p.IngestFile(context.Background(), FileInput{FileName: "big.txt", Data: []byte("raw")})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if n < 2 {
		t.Errorf("long text produced %d chunks, want several", n)
	}
	for i, c := range store.added {
		if c.Meta(entity.MetaCollectionName) != "rag" {
			t.Errorf("chunk %d missing collection_name injection", i)
		}
	}
}

func TestIngestFileParserError(t *testing.T) {
	parser := &fakeParser{err: errors.New("tika down")}
	p := newTestPipeline(&fakeStore{}, parser, false)

	if _, err := p.IngestFile(context.Background(), FileInput{FileName: "f", Data: []byte("x")}); err == nil {
		t.Fatal("IngestFile should surface parser errors")
	}
}

func TestIngestFileAtomicRollback(t *testing.T) {
	store := &fakeStore{addErr: errors.New("partial write")}
	parser := &fakeParser{doc: &ParsedDocument{Text: strings.Repeat("b", 25)}}
	p := newTestPipeline(store, parser, true)

	if _, err := p.IngestFile(context.Background(), FileInput{FileName: "f", Data: []byte("x")}); err == nil {
		t.Fatal("IngestFile should fail when store rejects the batch")
	}
	if len(store.deleted) == 0 {
		t.Error("atomic mode should attempt to delete the batch ids")
	}
}

func TestIngestFileNonAtomicNoRollback(t *testing.T) {
	store := &fakeStore{addErr: errors.New("partial write")}
	parser := &fakeParser{doc: &ParsedDocument{Text: "some text"}}
	p := newTestPipeline(store, parser, false)

	if _, err := p.IngestFile(context.Background(), FileInput{FileName: "f", Data: []byte("x")}); err == nil {
		t.Fatal("IngestFile should fail when store rejects the batch")
	}
	if len(store.deleted) != 0 {
		t.Error("non-atomic mode must not delete anything")
	}
}
