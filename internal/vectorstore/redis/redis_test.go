package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragkb/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	addr := os.Getenv("RAGKB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RAGKB_TEST_REDIS_ADDR not set")
	}
	key := "ragkb:test:" + uuid.NewString()
	s, err := New(context.Background(), Config{Addr: addr, Key: key}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.client.Del(context.Background(), key).Err()
		_ = s.Close()
	})
	return s
}

func TestStorage_AppendReadAll(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Append(ctx, domain.Record{Text: "a", Embedding: []float64{1, 0}}))
	require.NoError(t, s.Append(ctx, domain.Record{Text: "b", Embedding: []float64{0, 1}}))

	got, err = s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
}

func TestStorage_DimensionMismatch(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, domain.Record{Text: "a", Embedding: []float64{1, 0}}))

	err := s.Append(ctx, domain.Record{Text: "b", Embedding: []float64{1, 0, 0}})
	assert.True(t, domain.IsDimensionMismatch(err))
}

func TestStorage_SkipsUndecodableElements(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.client.RPush(ctx, s.key, "garbage").Err())
	require.NoError(t, s.Append(ctx, domain.Record{Text: "ok", Embedding: []float64{1}}))

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Text)
}

func TestStorage_DimensionFromFirstDecodableElement(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	require.NoError(t, s.client.RPush(ctx, s.key, "garbage").Err())
	require.NoError(t, s.Append(ctx, domain.Record{Text: "a", Embedding: []float64{1, 0}}))

	err := s.Append(ctx, domain.Record{Text: "b", Embedding: []float64{1, 0, 0}})
	assert.True(t, domain.IsDimensionMismatch(err))
	require.NoError(t, s.Append(ctx, domain.Record{Text: "c", Embedding: []float64{0, 1}}))
}

func TestDimensionOf(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  int
	}{
		{"empty", nil, 0},
		{"head decodes", []string{`{"text":"a","embedding":[1,2,3]}`}, 3},
		{"corrupt head", []string{"garbage", `{"text":"a","embedding":[1,2]}`, `{"text":"b","embedding":[1,2]}`}, 2},
		{"empty embedding skipped", []string{`{"text":"a","embedding":[]}`, `{"text":"b","embedding":[1]}`}, 1},
		{"nothing decodable", []string{"garbage", "{"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dimensionOf(tt.items))
		})
	}
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{Addr: "localhost:0"}, nil)
	assert.Error(t, err)
}
