package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type" validate:"oneof=words sentence"`
	MaxWords          int    `yaml:"max_words" validate:"gte=1"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk" validate:"gte=1"`
	OverlapSentences  int    `yaml:"overlap_sentences" validate:"gte=0"`
}

// ProviderEmbedderConfig configures the plain HTTP embedding provider.
type ProviderEmbedderConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// OpenAIConfig holds configuration for OpenAI-compatible APIs.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// HashingEmbedderConfig configures the offline hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension" validate:"gte=1"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type     string                 `yaml:"type" validate:"oneof=provider openai hashing"`
	Provider ProviderEmbedderConfig `yaml:"provider"`
	OpenAI   OpenAIConfig           `yaml:"openai"`
	Hashing  HashingEmbedderConfig  `yaml:"hashing"`
}

type FileStoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr" validate:"required,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Key      string `yaml:"key" validate:"required"`
}

type MinIOStoreConfig struct {
	Endpoint     string `yaml:"endpoint" validate:"required"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	Bucket       string `yaml:"bucket" validate:"required"`
	Object       string `yaml:"object" validate:"required"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type  string           `yaml:"type" validate:"oneof=file memory redis minio"`
	File  FileStoreConfig  `yaml:"file"`
	Redis RedisStoreConfig `yaml:"redis"`
	MinIO MinIOStoreConfig `yaml:"minio"`
}

type RetrievalConfig struct {
	TopK int `yaml:"top_k" validate:"gte=1"`
}

// IngestionConfig sets the per-chunk failure policy and embedding fan-out.
type IngestionConfig struct {
	OnError     string `yaml:"on_error" validate:"oneof=abort continue"`
	Concurrency int    `yaml:"concurrency" validate:"gte=1,lte=64"`
}

type OllamaConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	Model       string `yaml:"model" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// GenerationConfig selects the completion backend used by chat.
type GenerationConfig struct {
	Type         string       `yaml:"type" validate:"oneof=ollama openai"`
	HistoryLimit int          `yaml:"history_limit" validate:"gte=-1"`
	Ollama       OllamaConfig `yaml:"ollama"`
	OpenAI       OpenAIConfig `yaml:"openai"`
}

type ChatLogConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr" validate:"required"`
	UploadDir   string `yaml:"upload_dir" validate:"required"`
	MaxUploadMB int    `yaml:"max_upload_mb" validate:"gte=1"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Ingestion   IngestionConfig   `yaml:"ingestion"`
	Generation  GenerationConfig  `yaml:"generation"`
	ChatLog     ChatLogConfig     `yaml:"chatlog"`
	Server      ServerConfig      `yaml:"server"`
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
	return Parse(data)
}

// Parse decodes YAML, fills in defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyConfigDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func Validate(cfg *AppConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragkb/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragkb/config.yaml and returns them.
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
	return filepath.Join(home, ".config", "ragkb", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	setString(&cfg.Logging.Level, "info")
	setString(&cfg.Logging.Format, "json")

	setString(&cfg.Chunker.Type, "words")
	setInt(&cfg.Chunker.MaxWords, 500)
	setInt(&cfg.Chunker.SentencesPerChunk, 5)

	setString(&cfg.Embedder.Type, "provider")
	setString(&cfg.Embedder.Provider.URL, "http://localhost:5000/embed")
	setInt(&cfg.Embedder.Provider.TimeoutSecs, 30)
	applyOpenAIDefaults(&cfg.Embedder.OpenAI, "text-embedding-3-small")
	setInt(&cfg.Embedder.Hashing.Dimension, 256)

	setString(&cfg.VectorStore.Type, "file")
	setString(&cfg.VectorStore.File.Path, "vectors.json")
	setString(&cfg.VectorStore.Redis.Addr, "localhost:6379")
	setString(&cfg.VectorStore.Redis.Key, "ragkb:vectors")
	setString(&cfg.VectorStore.MinIO.Endpoint, "localhost:9000")
	setString(&cfg.VectorStore.MinIO.AccessKeyEnv, "MINIO_ACCESS_KEY")
	setString(&cfg.VectorStore.MinIO.SecretKeyEnv, "MINIO_SECRET_KEY")
	setString(&cfg.VectorStore.MinIO.Bucket, "ragkb")
	setString(&cfg.VectorStore.MinIO.Object, "vectors.json")

	setInt(&cfg.Retrieval.TopK, 3)

	setString(&cfg.Ingestion.OnError, "abort")
	setInt(&cfg.Ingestion.Concurrency, 1)

	setString(&cfg.Generation.Type, "ollama")
	setInt(&cfg.Generation.HistoryLimit, 10)
	setString(&cfg.Generation.Ollama.BaseURL, "http://localhost:11434")
	setString(&cfg.Generation.Ollama.Model, "llama3.1:8b")
	setInt(&cfg.Generation.Ollama.TimeoutSecs, 120)
	applyOpenAIDefaults(&cfg.Generation.OpenAI, "gpt-4o-mini")

	setString(&cfg.ChatLog.Path, "chatlog.json")

	setString(&cfg.Server.Addr, ":3000")
	setString(&cfg.Server.UploadDir, "uploads")
	setInt(&cfg.Server.MaxUploadMB, 32)
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	setString(&c.BaseURL, "https://api.openai.com/v1")
	setString(&c.APIKeyEnv, "OPENAI_API_KEY")
	setString(&c.Model, model)
	setInt(&c.TimeoutSecs, 30)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
