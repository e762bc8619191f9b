package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retrieval.RelevanceFloor != 0.15 {
		t.Fatalf("relevance floor = %v, want 0.15", cfg.Retrieval.RelevanceFloor)
	}
	if cfg.Retrieval.HistoryWindow != 6 {
		t.Fatalf("history window = %d, want 6", cfg.Retrieval.HistoryWindow)
	}
	if cfg.Quiz.MaxQuestions != 10 || cfg.Quiz.SampleSize != 3 || cfg.Quiz.MinContextChars != 200 {
		t.Fatalf("unexpected quiz defaults: %+v", cfg.Quiz)
	}
	if cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Fatalf("llm model = %q", cfg.LLM.Model)
	}
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
embedder:
  type: openai
  openai:
    model: custom-embed
vector_store:
  type: chromem
  chromem: {}
retrieval:
  relevance_floor: 0.3
  chat_top_k: 4
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Embedder.OpenAI.Model != "custom-embed" {
		t.Fatalf("model = %q", cfg.Embedder.OpenAI.Model)
	}
	if cfg.Embedder.OpenAI.APIKeyEnv != "OPENAI_API_KEY" || cfg.Embedder.OpenAI.BatchSize != 32 {
		t.Fatalf("openai defaults not applied: %+v", cfg.Embedder.OpenAI)
	}
	if cfg.VectorStore.Chromem.Collection != "course_chunks" {
		t.Fatalf("chromem collection = %q", cfg.VectorStore.Chromem.Collection)
	}
	if cfg.Retrieval.RelevanceFloor != 0.3 || cfg.Retrieval.ChatTopK != 4 {
		t.Fatalf("retrieval overrides lost: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.AdHocTopK != 20 {
		t.Fatalf("adhoc top k = %d, want 20", cfg.Retrieval.AdHocTopK)
	}
	if cfg.Corpus.ChunksPath != "chunks.json" {
		t.Fatalf("chunks path = %q", cfg.Corpus.ChunksPath)
	}
}

func TestLoad_CapsQuizAndHistoryLimits(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantQuiz    int
		wantHistory int
	}{
		{"above the limits", "quiz:\n  max_questions: 50\nretrieval:\n  history_window: 40\n", 10, 6},
		{"below the limits", "quiz:\n  max_questions: 5\nretrieval:\n  history_window: 2\n", 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Quiz.MaxQuestions != tt.wantQuiz || cfg.Retrieval.HistoryWindow != tt.wantHistory {
				t.Fatalf("max_questions=%d history_window=%d", cfg.Quiz.MaxQuestions, cfg.Retrieval.HistoryWindow)
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Server.Addr = ":9090"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Server.Addr != ":9090" {
		t.Fatalf("addr = %q, want :9090", got.Server.Addr)
	}
}
