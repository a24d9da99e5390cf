package memory

import (
	"context"
	"sync"

	"ragkb/internal/domain"
	"ragkb/internal/vectorstore"
)

// Storage is an in-process vector store. Records live only as long as the process.
type Storage struct {
	mu      sync.RWMutex
	records []domain.Record
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Append(_ context.Context, record domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := vectorstore.CheckDimension(s.records, record); err != nil {
		return err
	}
	s.records = append(s.records, clone(record))
	return nil
}

func (s *Storage) ReadAll(_ context.Context) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record, len(s.records))
	for i, r := range s.records {
		out[i] = clone(r)
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func clone(r domain.Record) domain.Record {
	emb := make([]float64, len(r.Embedding))
	copy(emb, r.Embedding)
	return domain.Record{Text: r.Text, Embedding: emb}
}
