package domain

import "context"

// Document is a single source text loaded into the system.
type Document struct {
	Path    string
	Content string
}

// Record is one persisted (text, embedding) pair of the vector store.
type Record struct {
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
}

// RankedChunk is a stored text scored against a query.
type RankedChunk struct {
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// IngestReport summarises one document ingestion.
type IngestReport struct {
	Chunks   int `json:"chunks"`
	Appended int `json:"appended"`
	Failed   int `json:"failed"`
}

// ChatEntry is one user/assistant exchange kept in the chat log.
type ChatEntry struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
	Timestamp string `json:"timestamp"`
}

// Chunker splits document text into pieces suitable for embedding.
type Chunker interface {
	Chunk(text string) []string
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorStore is an append-only, ordered collection of records.
type VectorStore interface {
	Append(ctx context.Context, record Record) error
	ReadAll(ctx context.Context) ([]Record, error)
}

// DocumentLoader extracts the text of a file.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (Document, error)
}

// Generator produces a completion for a composed prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatLog persists chat exchanges.
type ChatLog interface {
	Append(ctx context.Context, entry ChatEntry) error
	Recent(ctx context.Context, limit int) ([]ChatEntry, error)
}

// RAGService defines the operations exposed by the application core.
type RAGService interface {
	Ingest(ctx context.Context, text string) (IngestReport, error)
	IngestFile(ctx context.Context, path string) (IngestReport, error)
	Retrieve(ctx context.Context, query string, topK int) (string, error)
	Search(ctx context.Context, query string, topK int) ([]RankedChunk, error)
	Chat(ctx context.Context, message string) (string, error)
}
