package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ragkb/internal/domain"
)

func newFileStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store", "vectors.json")
	return New(NewFile(path), nil), path
}

func TestStore_ReadAllMissingIsEmpty(t *testing.T) {
	s, _ := newFileStore(t)

	got, err := s.ReadAll(context.Background())

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_AppendThenReadAll(t *testing.T) {
	s, path := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, domain.Record{Text: "first", Embedding: []float64{1, 0}}))
	require.NoError(t, s.Append(ctx, domain.Record{Text: "second", Embedding: []float64{0, 1}}))

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{
		{Text: "first", Embedding: []float64{1, 0}},
		{Text: "second", Embedding: []float64{0, 1}},
	}, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"text":"first","embedding":[1,0]},{"text":"second","embedding":[0,1]}]`, string(raw))
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")
	ctx := context.Background()

	require.NoError(t, New(NewFile(path), nil).Append(ctx, domain.Record{Text: "kept", Embedding: []float64{1}}))

	got, err := New(NewFile(path), nil).ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Text)
}

func TestStore_RejectsDimensionMismatch(t *testing.T) {
	s, _ := newFileStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, domain.Record{Text: "a", Embedding: []float64{1, 0}}))

	err := s.Append(ctx, domain.Record{Text: "b", Embedding: []float64{1}})

	assert.True(t, domain.IsDimensionMismatch(err))
	got, _ := s.ReadAll(ctx)
	assert.Len(t, got, 1)
}

func TestStore_CorruptStateRecoversAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	s := New(NewFile(path), zap.New(core))
	ctx := context.Background()

	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.Equal(t, 1, logs.Len())

	require.NoError(t, s.Append(ctx, domain.Record{Text: "fresh", Embedding: []float64{1, 2}}))
	got, err = s.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Text)
}

func TestFile_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(NewFile(filepath.Join(dir, "vectors.json")), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, domain.Record{Text: "x", Embedding: []float64{float64(i), 1}}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "vectors.json", entries[0].Name())
}

type memBackend struct {
	data []byte
}

func (m *memBackend) Name() string { return "mem" }

func (m *memBackend) Read(context.Context) ([]byte, error) {
	if m.data == nil {
		return nil, domain.ErrNotExist
	}
	return m.data, nil
}

func (m *memBackend) Write(_ context.Context, data []byte) error {
	m.data = append([]byte(nil), data...)
	return nil
}

func TestStore_EmptyDocumentIsEmptyStore(t *testing.T) {
	s := New(&memBackend{data: []byte{}}, nil)
	got, err := s.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestObject_Integration(t *testing.T) {
	endpoint := os.Getenv("RAGKB_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("RAGKB_TEST_MINIO_ENDPOINT not set")
	}
	ctx := context.Background()
	obj, err := NewObject(ctx, MinIOConfig{
		Endpoint:     endpoint,
		AccessKeyEnv: "RAGKB_TEST_MINIO_ACCESS_KEY",
		SecretKeyEnv: "RAGKB_TEST_MINIO_SECRET_KEY",
		Bucket:       "ragkb-test",
		Object:       t.Name() + ".json",
	})
	require.NoError(t, err)
	s := New(obj, nil)

	require.NoError(t, s.Append(ctx, domain.Record{Text: "remote", Embedding: []float64{0.5, 0.5}}))
	got, err := s.ReadAll(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "remote", got[len(got)-1].Text)
}
