// Package blob implements a vector store kept as a single JSON document in
// a file or an object bucket. Every append rewrites the whole document.
//
// Appends from one process are serialised. Appends from several processes
// against the same blob race: the last writer wins and records written by
// the others are lost.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"ragkb/internal/domain"
	"ragkb/internal/vectorstore"
)

// Backend reads and replaces the raw persisted document.
// Read returns domain.ErrNotExist when nothing has been written yet.
// Write must replace the document atomically.
type Backend interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Store implements domain.VectorStore on top of a Backend.
type Store struct {
	mu      sync.Mutex
	backend Backend
	log     *zap.Logger
}

func New(backend Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log.Named("vectorstore")}
}

// Append loads the persisted records, appends record and rewrites the document.
func (s *Store) Append(ctx context.Context, record domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := vectorstore.CheckDimension(records, record); err != nil {
		return err
	}
	records = append(records, record)

	data, err := encode(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.backend.Name(), err)
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("write %s: %w", s.backend.Name(), err)
	}
	return nil
}

// ReadAll returns every record in insertion order. A missing document is an
// empty store.
func (s *Store) ReadAll(ctx context.Context) ([]domain.Record, error) {
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) ([]domain.Record, error) {
	data, err := s.backend.Read(ctx)
	if errors.Is(err, domain.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.backend.Name(), err)
	}
	records, err := decode(data)
	if err != nil {
		corrupt := &domain.StoreCorruptError{Resource: s.backend.Name(), Err: err}
		s.log.Warn("treating vector store as empty", zap.Error(corrupt))
		return nil, nil
	}
	return records, nil
}

func encode(records []domain.Record) ([]byte, error) {
	if records == nil {
		records = []domain.Record{}
	}
	return json.Marshal(records)
}

func decode(data []byte) ([]domain.Record, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var records []domain.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
