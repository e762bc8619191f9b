package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PostgresConfig holds connection details for a Postgres/pgvector chunk table.
type PostgresConfig struct {
	DSN         string `yaml:"dsn"`
	PasswordEnv string `yaml:"password_env"`
	Table       string `yaml:"table"`
	Debug       bool   `yaml:"debug"`
}

// CorpusConfig locates the pre-built chunk corpus and topic metadata.
type CorpusConfig struct {
	Source     string          `yaml:"source"`
	ChunksPath string          `yaml:"chunks_path"`
	TopicsPath string          `yaml:"topics_path"`
	Postgres   *PostgresConfig `yaml:"postgres,omitempty"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// OllamaEmbedderConfig configures the langchaingo Ollama embedder.
type OllamaEmbedderConfig struct {
	ServerURL string `yaml:"server_url"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// GeminiEmbedderConfig configures the Gemini embedding model.
type GeminiEmbedderConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Ollama *OllamaEmbedderConfig `yaml:"ollama,omitempty"`
	Gemini *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
}

// VectorStoreConfig selects and configures the full-corpus vector index.
type VectorStoreConfig struct {
	Type    string         `yaml:"type"`
	Chromem *ChromemConfig `yaml:"chromem,omitempty"`
	Qdrant  *QdrantConfig  `yaml:"qdrant,omitempty"`
}

// ChromemConfig configures the embedded chromem-go index.
type ChromemConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Compress   bool   `yaml:"compress"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLMConfig configures the hosted OpenAI-compatible chat model.
type LLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// RetrievalConfig tunes retrieval and answer synthesis.
type RetrievalConfig struct {
	ChatTopK       int     `yaml:"chat_top_k"`
	AdHocTopK      int     `yaml:"adhoc_top_k"`
	RelevanceFloor float64 `yaml:"relevance_floor"`
	HistoryWindow  int     `yaml:"history_window"`
	Rerank         bool    `yaml:"rerank"`
}

// QuizConfig tunes quiz generation.
type QuizConfig struct {
	MaxQuestions    int `yaml:"max_questions"`
	SampleSize      int `yaml:"sample_size"`
	MinContextChars int `yaml:"min_context_chars"`
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus      CorpusConfig      `yaml:"corpus"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	LLM         LLMConfig         `yaml:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Quiz        QuizConfig        `yaml:"quiz"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/coursetutor/config.yaml.
// If neither exists, it writes defaults to ~/.config/coursetutor/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "coursetutor", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Corpus:      CorpusConfig{Source: "file", ChunksPath: "chunks.json", TopicsPath: "demo_topics.json"},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		LLM: LLMConfig{
			BaseURL:   "https://api.groq.com/openai/v1",
			APIKeyEnv: "GROQ_API_KEY",
			Model:     "llama-3.1-8b-instant",
		},
		Retrieval: RetrievalConfig{ChatTopK: 7, AdHocTopK: 20, RelevanceFloor: 0.15, HistoryWindow: 6, Rerank: true},
		Quiz:      QuizConfig{MaxQuestions: 10, SampleSize: 3, MinContextChars: 200},
		Server:    ServerConfig{Addr: ":8000", AllowedOrigins: []string{"*"}},
		Log:       LogConfig{Level: "info", Console: true},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Corpus.Source == "" {
		cfg.Corpus.Source = def.Corpus.Source
	}
	if cfg.Corpus.ChunksPath == "" {
		cfg.Corpus.ChunksPath = def.Corpus.ChunksPath
	}
	if cfg.Corpus.TopicsPath == "" {
		cfg.Corpus.TopicsPath = def.Corpus.TopicsPath
	}
	if cfg.Corpus.Postgres != nil {
		if cfg.Corpus.Postgres.Table == "" {
			cfg.Corpus.Postgres.Table = "documents"
		}
		if cfg.Corpus.Postgres.PasswordEnv == "" {
			cfg.Corpus.Postgres.PasswordEnv = "PGPASSWORD"
		}
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Embedder.Type == "ollama" && cfg.Embedder.Ollama != nil {
		if cfg.Embedder.Ollama.ServerURL == "" {
			cfg.Embedder.Ollama.ServerURL = "http://localhost:11434"
		}
		if cfg.Embedder.Ollama.Model == "" {
			cfg.Embedder.Ollama.Model = "nomic-embed-text"
		}
		if cfg.Embedder.Ollama.BatchSize == 0 {
			cfg.Embedder.Ollama.BatchSize = 32
		}
	}
	if cfg.Embedder.Type == "gemini" && cfg.Embedder.Gemini != nil {
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.Embedder.Gemini.Model == "" {
			cfg.Embedder.Gemini.Model = "text-embedding-004"
		}
		if cfg.Embedder.Gemini.BatchSize == 0 {
			cfg.Embedder.Gemini.BatchSize = 100
		}
	}
	if cfg.VectorStore.Chromem != nil {
		if cfg.VectorStore.Chromem.Path == "" {
			cfg.VectorStore.Chromem.Path = "./chromemdb"
		}
		if cfg.VectorStore.Chromem.Collection == "" {
			cfg.VectorStore.Chromem.Collection = "course_chunks"
		}
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.Retrieval.ChatTopK <= 0 {
		cfg.Retrieval.ChatTopK = def.Retrieval.ChatTopK
	}
	if cfg.Retrieval.AdHocTopK <= 0 {
		cfg.Retrieval.AdHocTopK = def.Retrieval.AdHocTopK
	}
	// the defaults are also the upper bounds
	if cfg.Retrieval.HistoryWindow <= 0 || cfg.Retrieval.HistoryWindow > def.Retrieval.HistoryWindow {
		cfg.Retrieval.HistoryWindow = def.Retrieval.HistoryWindow
	}
	if cfg.Quiz.MaxQuestions <= 0 || cfg.Quiz.MaxQuestions > def.Quiz.MaxQuestions {
		cfg.Quiz.MaxQuestions = def.Quiz.MaxQuestions
	}
	if cfg.Quiz.SampleSize <= 0 {
		cfg.Quiz.SampleSize = def.Quiz.SampleSize
	}
	if cfg.Quiz.MinContextChars <= 0 {
		cfg.Quiz.MinContextChars = def.Quiz.MinContextChars
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
}
