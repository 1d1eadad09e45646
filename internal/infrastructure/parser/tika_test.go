package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rag-gateway/internal/config"
	"rag-gateway/internal/domain/entity"
)

func TestParsePlainTextWithoutEndpoint(t *testing.T) {
	p := NewTikaParser(&config.ParserConfig{})

	doc, err := p.Parse(context.Background(), "notes.txt", []byte("咖啡豆产自埃塞俄比亚"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Text != "咖啡豆产自埃塞俄比亚" {
		t.Errorf("text = %q", doc.Text)
	}
	if doc.Metadata[entity.MetaFileName] != "notes.txt" {
		t.Errorf("file_name = %q", doc.Metadata[entity.MetaFileName])
	}
	if doc.Metadata[entity.MetaFileType] != "txt" {
		t.Errorf("file_type = %q", doc.Metadata[entity.MetaFileType])
	}
}

func TestParseBinaryWithoutEndpointFails(t *testing.T) {
	p := NewTikaParser(&config.ParserConfig{})

	pdf := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	if _, err := p.Parse(context.Background(), "report.pdf", pdf); err == nil {
		t.Fatal("binary file without extraction endpoint must fail")
	}
}

func TestParseViaEndpoint(t *testing.T) {
	var gotPath, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		w.Write([]byte("extracted content"))
	}))
	defer srv.Close()

	p := NewTikaParser(&config.ParserConfig{Endpoint: srv.URL, Timeout: 5 * time.Second})

	pdf := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	doc, err := p.Parse(context.Background(), "report.pdf", pdf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Text != "extracted content" {
		t.Errorf("text = %q", doc.Text)
	}
	if gotPath != "/tika" {
		t.Errorf("path = %q, want /tika", gotPath)
	}
	if gotAccept != "text/plain" {
		t.Errorf("accept = %q, want text/plain", gotAccept)
	}
	if doc.Metadata[entity.MetaFileType] != "pdf" {
		t.Errorf("file_type = %q", doc.Metadata[entity.MetaFileType])
	}
}

func TestParseEndpointErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p := NewTikaParser(&config.ParserConfig{Endpoint: srv.URL})

	_, err := p.Parse(context.Background(), "broken.docx", []byte{0x50, 0x4b, 0x03, 0x04})
	if err == nil {
		t.Fatal("extraction failure must surface")
	}
	if !strings.Contains(err.Error(), "status=422") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestFileTypeFallsBackToSniffedExtension(t *testing.T) {
	p := NewTikaParser(&config.ParserConfig{})

	doc, err := p.Parse(context.Background(), "README", []byte("plain text, no extension"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Metadata[entity.MetaFileType] != "txt" {
		t.Errorf("file_type = %q, want txt", doc.Metadata[entity.MetaFileType])
	}
}
