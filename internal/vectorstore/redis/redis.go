// Package redis stores records as JSON elements of a single Redis list.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ragkb/internal/domain"
	"ragkb/internal/vectorstore"
)

// Config configures the Redis connection and list key.
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Storage appends with RPUSH, so concurrent writers never lose records.
type Storage struct {
	client *goredis.Client
	key    string
	log    *zap.Logger
}

// New connects to Redis and pings it.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Storage, error) {
	if cfg.Key == "" {
		return nil, errors.New("redis key is required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return NewWithClient(client, cfg.Key, log), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, key string, log *zap.Logger) *Storage {
	if log == nil {
		log = zap.NewNop()
	}
	return &Storage{client: client, key: key, log: log.Named("vectorstore")}
}

func (s *Storage) Append(ctx context.Context, record domain.Record) error {
	dim, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	if dim == 0 {
		err = vectorstore.CheckDimension(nil, record)
	} else {
		err = vectorstore.CheckAgainst(dim, record)
	}
	if err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("append to %s: %w", s.key, err)
	}
	return nil
}

// dimension returns the embedding length of the first decodable element,
// or 0 for an empty list. The whole list is only read when the head is
// undecodable.
func (s *Storage) dimension(ctx context.Context) (int, error) {
	head, err := s.client.LIndex(ctx, s.key, 0).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read head of %s: %w", s.key, err)
	}
	if dim := dimensionOf([]string{head}); dim > 0 {
		return dim, nil
	}
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.key, err)
	}
	return dimensionOf(items), nil
}

func dimensionOf(items []string) int {
	for _, item := range items {
		var r domain.Record
		if err := json.Unmarshal([]byte(item), &r); err == nil && len(r.Embedding) > 0 {
			return len(r.Embedding)
		}
	}
	return 0
}

// ReadAll returns every decodable element in list order. Undecodable
// elements are skipped and logged.
func (s *Storage) ReadAll(ctx context.Context) ([]domain.Record, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}
	records := make([]domain.Record, 0, len(items))
	for i, item := range items {
		var r domain.Record
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			s.log.Warn("skipping undecodable record",
				zap.Int("index", i),
				zap.Error(&domain.StoreCorruptError{Resource: s.key, Err: err}))
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Storage) Close() error { return s.client.Close() }
