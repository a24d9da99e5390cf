package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragkb/internal/chunker"
	"ragkb/internal/domain"
	"ragkb/internal/embedding/hashing"
	"ragkb/internal/loader"
	"ragkb/internal/metrics"
	"ragkb/internal/service"
	"ragkb/internal/vectorstore/memory"
)

type echoGenerator struct{}

func (echoGenerator) Name() string { return "echo" }

func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("%d chars", len(prompt)), nil
}

func newTestServer(t *testing.T) (*Server, *memory.Storage) {
	t.Helper()
	store := memory.NewStorage()
	reg := prometheus.NewRegistry()
	svc, err := service.NewRAGService(service.Deps{
		Chunker:   chunker.NewWordChunker(chunker.DefaultMaxWords),
		Embedder:  hashing.NewEmbedder(64),
		Store:     store,
		Loader:    loader.New(nil),
		Generator: echoGenerator{},
	}, service.Options{Metrics: metrics.New(reg)})
	require.NoError(t, err)
	return New(svc, Config{UploadDir: t.TempDir(), Gatherer: reg}), store
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Error
}

func TestUpload(t *testing.T) {
	srv, store := newTestServer(t)
	body, ct := multipartBody(t, "notes.txt", []byte("Go is great for AI. Vector stores keep embeddings."))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report domain.IngestReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, domain.IngestReport{Chunks: 1, Appended: 1}, report)
	assert.Equal(t, 1, store.Len())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	entries, err := os.ReadDir(srv.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_RejectsBinary(t *testing.T) {
	srv, store := newTestServer(t)
	body, ct := multipartBody(t, "image.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only text-based files are allowed", decodeError(t, rec))
	assert.Zero(t, store.Len())
}

func TestUpload_MissingFile(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("no form"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, strings.HasSuffix(out.Response, "chars"))
}

func TestChat_MissingMessage(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, body := range []string{`{}`, `{"message":"   "}`, ``} {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Message is required", decodeError(t, rec))
	}
}

func TestRetrieve(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()
	emb := hashing.NewEmbedder(64)
	for _, text := range []string{"redis vector store", "sourdough bread recipe"} {
		v, err := emb.Embed(ctx, text)
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, domain.Record{Text: text, Embedding: v}))
	}

	req := httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(`{"query":"vector store","top_k":1}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out retrieveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "redis vector store", out.Results[0].Text)
	assert.Equal(t, "redis vector store", out.Context)
}

func TestRetrieve_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, body := range []string{`{}`, `{"query":"x","top_k":-1}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(`{"query":"x"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ragkb_retrieval_duration_seconds")
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// failingService returns err from every operation.
type failingService struct{ err error }

func (f failingService) Ingest(context.Context, string) (domain.IngestReport, error) {
	return domain.IngestReport{}, f.err
}

func (f failingService) IngestFile(context.Context, string) (domain.IngestReport, error) {
	return domain.IngestReport{}, f.err
}

func (f failingService) Retrieve(context.Context, string, int) (string, error) { return "", f.err }

func (f failingService) Search(context.Context, string, int) ([]domain.RankedChunk, error) {
	return nil, f.err
}

func (f failingService) Chat(context.Context, string) (string, error) { return "", f.err }

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unreadable", &domain.UnreadableDocumentError{Path: "x", Err: errors.New("bad")}, http.StatusBadRequest},
		{"provider", &domain.EmbeddingProviderError{Op: "embed", Provider: "p", StatusCode: 503}, http.StatusBadGateway},
		{"dimension", &domain.DimensionMismatchError{Op: "rank", Want: 3, Got: 4, Index: 0}, http.StatusInternalServerError},
		{"wrapped provider", fmt.Errorf("embed query: %w", &domain.EmbeddingProviderError{Op: "embed", Provider: "p"}), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := New(failingService{err: tc.err}, Config{UploadDir: t.TempDir()})

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`)))
			assert.Equal(t, tc.status, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))

			rec = httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(`{"query":"hi"}`)))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
