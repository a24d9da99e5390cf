// Package app assembles the knowledge base from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ragkb/internal/chatlog"
	"ragkb/internal/chunker"
	"ragkb/internal/config"
	"ragkb/internal/domain"
	"ragkb/internal/embedding/hashing"
	embopenai "ragkb/internal/embedding/openai"
	"ragkb/internal/embedding/provider"
	"ragkb/internal/generation/ollama"
	genopenai "ragkb/internal/generation/openai"
	"ragkb/internal/loader"
	"ragkb/internal/metrics"
	"ragkb/internal/service"
	"ragkb/internal/vectorstore/blob"
	"ragkb/internal/vectorstore/memory"
	"ragkb/internal/vectorstore/redis"
)

// App owns the assembled service and the resources behind it.
type App struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Service  *service.RAGServiceImpl
	Store    domain.VectorStore

	closers []func() error
}

// New builds every component named by cfg.
func New(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: log, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ch, err := buildChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	emb, err := buildEmbedder(cfg.Embedder, log)
	if err != nil {
		return nil, err
	}
	st, err := a.buildStore(ctx, cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	a.Store = st

	gen, err := buildGenerator(cfg.Generation, log)
	if err != nil {
		// Ingestion and retrieval still work; chat reports the missing generator.
		log.Warn("generation disabled", zap.Error(err))
	}

	svc, err := service.NewRAGService(service.Deps{
		Chunker:   ch,
		Embedder:  emb,
		Store:     st,
		Loader:    loader.New(log),
		Generator: gen,
		ChatLog:   chatlog.NewFile(cfg.ChatLog.Path, log),
	}, service.Options{
		TopK:         cfg.Retrieval.TopK,
		OnError:      cfg.Ingestion.OnError,
		Concurrency:  cfg.Ingestion.Concurrency,
		HistoryLimit: cfg.Generation.HistoryLimit,
		Logger:       log,
		Metrics:      metrics.New(a.Registry),
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Service = svc

	log.Info("knowledge base ready",
		zap.String("chunker", cfg.Chunker.Type),
		zap.String("embedder", emb.Name()),
		zap.String("vector_store", cfg.VectorStore.Type))
	return a, nil
}

// Close releases store connections.
func (a *App) Close() error {
	var err error
	for _, c := range a.closers {
		err = multierr.Append(err, c())
	}
	a.closers = nil
	return err
}

func buildChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "words", "":
		return chunker.NewWordChunker(cfg.MaxWords), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func buildEmbedder(cfg config.EmbedderConfig, log *zap.Logger) (domain.Embedder, error) {
	switch cfg.Type {
	case "provider", "":
		c, err := provider.NewClient(provider.Config{
			URL:     cfg.Provider.URL,
			Timeout: seconds(cfg.Provider.TimeoutSecs),
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "openai":
		c, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   seconds(cfg.OpenAI.TimeoutSecs),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return c, nil
	case "hashing":
		return hashing.NewEmbedder(cfg.Hashing.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func (a *App) buildStore(ctx context.Context, cfg config.VectorStoreConfig) (domain.VectorStore, error) {
	switch cfg.Type {
	case "file", "":
		return blob.New(blob.NewFile(cfg.File.Path), a.Logger), nil
	case "memory":
		return memory.NewStorage(), nil
	case "redis":
		st, err := redis.New(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		}, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	case "minio":
		obj, err := blob.NewObject(ctx, blob.MinIOConfig{
			Endpoint:     cfg.MinIO.Endpoint,
			AccessKeyEnv: cfg.MinIO.AccessKeyEnv,
			SecretKeyEnv: cfg.MinIO.SecretKeyEnv,
			Bucket:       cfg.MinIO.Bucket,
			Object:       cfg.MinIO.Object,
			UseSSL:       cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return blob.New(obj, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func buildGenerator(cfg config.GenerationConfig, log *zap.Logger) (domain.Generator, error) {
	switch cfg.Type {
	case "ollama", "":
		return ollama.NewClient(ollama.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			Timeout: seconds(cfg.Ollama.TimeoutSecs),
			Logger:  log,
		}), nil
	case "openai":
		c, err := genopenai.NewClient(genopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   seconds(cfg.OpenAI.TimeoutSecs),
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
