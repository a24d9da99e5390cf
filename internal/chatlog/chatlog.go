// Package chatlog persists user/assistant exchanges as a JSON array file.
package chatlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ragkb/internal/domain"
	"ragkb/internal/vectorstore/blob"
)

// DefaultHistoryLimit is the number of exchanges folded into a prompt.
const DefaultHistoryLimit = 10

// File is a chat log kept in a single JSON file. An unparseable file is
// treated as empty and overwritten on the next append.
type File struct {
	mu   sync.Mutex
	path string
	doc  *blob.File
	log  *zap.Logger
}

func NewFile(path string, log *zap.Logger) *File {
	if log == nil {
		log = zap.NewNop()
	}
	return &File{path: path, doc: blob.NewFile(path), log: log.Named("chatlog")}
}

// Append rewrites the log with entry added. The file is replaced
// atomically, so a failed write leaves the previous history intact.
func (f *File) Append(ctx context.Context, entry domain.ChatEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chat log: %w", err)
	}
	if err := f.doc.Write(ctx, data); err != nil {
		return fmt.Errorf("write chat log: %w", err)
	}
	return nil
}

// Recent returns at most limit of the newest entries, oldest first.
func (f *File) Recent(ctx context.Context, limit int) ([]domain.ChatEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (f *File) load(ctx context.Context) ([]domain.ChatEntry, error) {
	data, err := f.doc.Read(ctx)
	if errors.Is(err, domain.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat log: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var entries []domain.ChatEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		f.log.Warn("chat log is unparseable, starting fresh", zap.String("path", f.path), zap.Error(err))
		return nil, nil
	}
	return entries, nil
}

// FormatHistory renders entries as "User: ...\nAssistant: ..." blocks
// separated by blank lines.
func FormatHistory(entries []domain.ChatEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, "User: "+e.User+"\nAssistant: "+e.Assistant)
	}
	return strings.Join(parts, "\n\n")
}
