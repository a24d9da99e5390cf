// Package provider is a client for a plain HTTP embedding service that
// takes {"text": ...} and answers {"embedding": [...]}.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ragkb/internal/domain"
)

const name = "provider"

// DefaultMaxResponseBytes caps how much of a response body is read.
const DefaultMaxResponseBytes = 32 << 20

// Client calls the embedding provider once per Embed. It never retries
// and never caches.
type Client struct {
	url     string
	client  *http.Client
	maxBody int64
	log     *zap.Logger
}

// Config configures the provider client.
type Config struct {
	URL     string
	Timeout time.Duration
	// MaxResponseBytes defaults to DefaultMaxResponseBytes.
	MaxResponseBytes int64
	Logger           *zap.Logger
}

// NewClient creates a new provider client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("embedding provider url is required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return &Client{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		maxBody: cfg.MaxResponseBytes,
		log:     log.Named("embedder"),
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return name }

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	data, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return nil, c.fail(0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, c.fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.fail(0, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, c.fail(resp.StatusCode, err)
	}
	if int64(len(payload)) > c.maxBody {
		return nil, c.fail(resp.StatusCode, fmt.Errorf("response exceeds %d bytes", c.maxBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	v, err := decodeEmbedding(payload)
	if err != nil {
		return nil, c.fail(resp.StatusCode, err)
	}
	c.log.Debug("embedded text", zap.Int("chars", len(text)), zap.Int("dimension", len(v)))
	return v, nil
}

func (c *Client) fail(status int, err error) error {
	return &domain.EmbeddingProviderError{Op: "embed", Provider: name, StatusCode: status, Err: err}
}

// decodeEmbedding accepts the provider's native shape and, as a fallback,
// the OpenAI-compatible {"data":[{"embedding":[...]}]} shape.
func decodeEmbedding(payload []byte) ([]float64, error) {
	var out struct {
		Embedding []float64 `json:"embedding"`
		Data      []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) > 0 {
		return out.Embedding, nil
	}
	if len(out.Data) > 0 && len(out.Data[0].Embedding) > 0 {
		return out.Data[0].Embedding, nil
	}
	return nil, errors.New("response has no embedding")
}
