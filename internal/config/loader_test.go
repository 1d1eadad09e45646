package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("RAG_TEST_SET", "from-env")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "set variable wins over default",
			in:   "host: ${RAG_TEST_SET:fallback}",
			want: "host: from-env",
		},
		{
			name: "unset variable falls back to default",
			in:   "host: ${RAG_TEST_UNSET:localhost}",
			want: "host: localhost",
		},
		{
			name: "unset variable with empty default",
			in:   "password: ${RAG_TEST_UNSET:}",
			want: "password: ",
		},
		{
			name: "unset variable without default keeps placeholder",
			in:   "key: ${RAG_TEST_UNSET}",
			want: "key: ${RAG_TEST_UNSET}",
		},
		{
			name: "multiple placeholders in one document",
			in:   "a: ${RAG_TEST_SET:x}\nb: ${RAG_TEST_UNSET:y}",
			want: "a: from-env\nb: y",
		},
		{
			name: "plain text untouched",
			in:   "name: rag-gateway",
			want: "name: rag-gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandEnv(tt.in)
			if got != tt.want {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetDefaultsCoversCore(t *testing.T) {
	cfg, err := loadFromString(t, "app:\n  name: test-app\n")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Name != "test-app" {
		t.Errorf("App.Name = %q, want test-app", cfg.App.Name)
	}
	if cfg.Server.HTTP.Port != 8080 {
		t.Errorf("Server.HTTP.Port = %d, want 8080", cfg.Server.HTTP.Port)
	}
	if cfg.Memory.WindowSize != 20 {
		t.Errorf("Memory.WindowSize = %d, want 20", cfg.Memory.WindowSize)
	}
	if cfg.Tool.TriggerKeyword != "文件" {
		t.Errorf("Tool.TriggerKeyword = %q, want 文件", cfg.Tool.TriggerKeyword)
	}
	if cfg.Vector.Milvus.MetricType != "COSINE" {
		t.Errorf("Vector.Milvus.MetricType = %q, want COSINE", cfg.Vector.Milvus.MetricType)
	}
	if cfg.RAG.TopK != 4 {
		t.Errorf("RAG.TopK = %d, want 4", cfg.RAG.TopK)
	}
	if cfg.Ingest.Atomic {
		t.Error("Ingest.Atomic should default to false")
	}
}

func loadFromString(t *testing.T, content string) (*Config, error) {
	t.Helper()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "configs"), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), []byte(content), 0o644); err != nil {
		return nil, err
	}
	t.Chdir(dir)

	return Load()
}
