package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragkb/internal/domain"
)

func TestStorage_AppendPreservesOrder(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, domain.Record{Text: "a", Embedding: []float64{1, 0}}))
	require.NoError(t, s.Append(ctx, domain.Record{Text: "b", Embedding: []float64{0, 1}}))

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
}

func TestStorage_EmptyReadAll(t *testing.T) {
	got, err := NewStorage().ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStorage_RejectsDimensionMismatch(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, domain.Record{Text: "a", Embedding: []float64{1, 0}}))

	err := s.Append(ctx, domain.Record{Text: "b", Embedding: []float64{1, 0, 0}})

	assert.True(t, domain.IsDimensionMismatch(err))
	assert.Equal(t, 1, s.Len())
}

func TestStorage_ReadAllReturnsCopies(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, domain.Record{Text: "a", Embedding: []float64{1, 0}}))

	got, _ := s.ReadAll(ctx)
	got[0].Embedding[0] = 42

	again, _ := s.ReadAll(ctx)
	assert.Equal(t, 1.0, again[0].Embedding[0])
}

func TestStorage_ConcurrentAppends(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(ctx, domain.Record{Text: fmt.Sprint(i), Embedding: []float64{float64(i), 1}})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}
