package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ragkb/internal/chatlog"
	"ragkb/internal/domain"
	"ragkb/internal/generation"
	"ragkb/internal/metrics"
	"ragkb/internal/ranking"
)

// Per-chunk ingestion failure policies.
const (
	OnErrorAbort    = "abort"
	OnErrorContinue = "continue"
)

const DefaultTopK = 3

var (
	ErrEmptyMessage   = errors.New("message is required")
	ErrNoGenerator    = errors.New("no generator configured")
	ErrNoLoader       = errors.New("no document loader configured")
	errMissingBackend = errors.New("chunker, embedder and store are required")
)

// Deps are the collaborators of the service. Loader, Generator and ChatLog
// are optional; the operations needing them fail without them.
type Deps struct {
	Chunker   domain.Chunker
	Embedder  domain.Embedder
	Store     domain.VectorStore
	Loader    domain.DocumentLoader
	Generator domain.Generator
	ChatLog   domain.ChatLog
}

// Options tune the service. Zero values pick the defaults.
type Options struct {
	TopK         int
	OnError      string
	Concurrency  int
	HistoryLimit int // negative disables chat history
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

type RAGServiceImpl struct {
	chunker   domain.Chunker
	embedder  domain.Embedder
	store     domain.VectorStore
	loader    domain.DocumentLoader
	generator domain.Generator
	chatLog   domain.ChatLog

	opts    Options
	log     *zap.Logger
	metrics *metrics.Metrics
}

var _ domain.RAGService = (*RAGServiceImpl)(nil)

func NewRAGService(deps Deps, opts Options) (*RAGServiceImpl, error) {
	if deps.Chunker == nil || deps.Embedder == nil || deps.Store == nil {
		return nil, errMissingBackend
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	switch opts.OnError {
	case "":
		opts.OnError = OnErrorAbort
	case OnErrorAbort, OnErrorContinue:
	default:
		return nil, fmt.Errorf("unknown ingestion error policy %q", opts.OnError)
	}
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = chatlog.DefaultHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &RAGServiceImpl{
		chunker:   deps.Chunker,
		embedder:  deps.Embedder,
		store:     deps.Store,
		loader:    deps.Loader,
		generator: deps.Generator,
		chatLog:   deps.ChatLog,
		opts:      opts,
		log:       log.Named("service"),
		metrics:   opts.Metrics,
	}, nil
}

// Ingest chunks text, embeds every chunk and appends the records in chunk
// order. Records appended before a failure stay persisted.
func (s *RAGServiceImpl) Ingest(ctx context.Context, text string) (domain.IngestReport, error) {
	chunks := s.chunker.Chunk(text)
	report := domain.IngestReport{Chunks: len(chunks)}
	if len(chunks) == 0 {
		return report, nil
	}

	vectors, embedErrs, groupErr := s.embedAll(ctx, chunks)

	var errs error
	for i, chunk := range chunks {
		err := embedErrs[i]
		if err == nil {
			if err = s.store.Append(ctx, domain.Record{Text: chunk, Embedding: vectors[i]}); err != nil {
				err = fmt.Errorf("append chunk %d: %w", i, err)
			}
		}
		s.metrics.ObserveChunk(err)
		if err == nil {
			report.Appended++
			continue
		}
		report.Failed++

		if s.opts.OnError == OnErrorAbort || domain.IsDimensionMismatch(err) {
			// A chunk cancelled by another chunk's failure reports that failure.
			if groupErr != nil && errors.Is(err, context.Canceled) {
				err = groupErr
			}
			return report, err
		}
		s.log.Warn("skipping chunk", zap.Int("chunk", i), zap.Error(err))
		errs = multierr.Append(errs, err)
	}
	return report, errs
}

// embedAll embeds chunks with bounded concurrency. Under the abort policy
// the first failure cancels the remaining calls.
func (s *RAGServiceImpl) embedAll(ctx context.Context, chunks []string) ([][]float64, []error, error) {
	vectors := make([][]float64, len(chunks))
	errs := make([]error, len(chunks))
	abort := s.opts.OnError == OnErrorAbort

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = fmt.Errorf("embed chunk %d: %w", i, err)
				return nil
			}
			v, err := s.embedder.Embed(gctx, chunk)
			s.metrics.ObserveEmbedding(s.embedder.Name(), err)
			if err != nil {
				errs[i] = fmt.Errorf("embed chunk %d: %w", i, err)
				if abort {
					return errs[i]
				}
				return nil
			}
			vectors[i] = v
			return nil
		})
	}
	groupErr := g.Wait()
	return vectors, errs, groupErr
}

// IngestFile loads the document at path and ingests its text.
func (s *RAGServiceImpl) IngestFile(ctx context.Context, path string) (domain.IngestReport, error) {
	if s.loader == nil {
		return domain.IngestReport{}, ErrNoLoader
	}
	doc, err := s.loader.Load(ctx, path)
	if err != nil {
		return domain.IngestReport{}, err
	}
	report, err := s.Ingest(ctx, doc.Content)
	s.log.Info("ingested document",
		zap.String("path", path),
		zap.Int("chunks", report.Chunks),
		zap.Int("appended", report.Appended),
		zap.Int("failed", report.Failed),
		zap.Error(err))
	return report, err
}

// Search embeds query and ranks every stored record against it.
// topK <= 0 uses the configured default.
func (s *RAGServiceImpl) Search(ctx context.Context, query string, topK int) ([]domain.RankedChunk, error) {
	if topK <= 0 {
		topK = s.opts.TopK
	}
	start := time.Now()
	defer func() { s.metrics.ObserveRetrieval(time.Since(start)) }()

	vec, err := s.embedder.Embed(ctx, query)
	s.metrics.ObserveEmbedding(s.embedder.Name(), err)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	records, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	s.metrics.SetStoreSize(len(records))
	return ranking.Rank(vec, records, topK)
}

// Retrieve returns the texts of the topK best chunks joined by blank
// lines, or "" when the store is empty.
func (s *RAGServiceImpl) Retrieve(ctx context.Context, query string, topK int) (string, error) {
	ranked, err := s.Search(ctx, query, topK)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(ranked))
	for i, r := range ranked {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\n\n"), nil
}

// Chat answers message grounded on retrieved context and recent history,
// then records the exchange. A failed chat log write is only logged.
func (s *RAGServiceImpl) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if s.generator == nil {
		return "", ErrNoGenerator
	}

	contextText, err := s.Retrieve(ctx, message, 0)
	if err != nil {
		return "", err
	}
	prompt := generation.BuildPrompt(contextText, s.history(ctx), message)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}

	if s.chatLog != nil {
		entry := domain.ChatEntry{
			User:      message,
			Assistant: answer,
			Timestamp: s.opts.Now().UTC().Format(time.RFC3339),
		}
		if err := s.chatLog.Append(ctx, entry); err != nil {
			s.log.Warn("failed to save chat log entry", zap.Error(err))
		}
	}
	return answer, nil
}

func (s *RAGServiceImpl) history(ctx context.Context) string {
	if s.chatLog == nil || s.opts.HistoryLimit < 0 {
		return ""
	}
	entries, err := s.chatLog.Recent(ctx, s.opts.HistoryLimit)
	if err != nil {
		s.log.Warn("failed to read chat history", zap.Error(err))
		return ""
	}
	return chatlog.FormatHistory(entries)
}
