package domain

import (
	"errors"
	"fmt"
)

// ErrNotExist is returned by blob backends when nothing has been persisted yet.
var ErrNotExist = errors.New("resource does not exist")

// ErrEmptyEmbedding is the cause of a DimensionMismatchError for a record
// without any embedding components.
var ErrEmptyEmbedding = errors.New("embedding is empty")

// EmbeddingProviderError reports a failed or unusable embedding call.
type EmbeddingProviderError struct {
	Op         string
	Provider   string
	StatusCode int
	Err        error
}

func (e *EmbeddingProviderError) Error() string {
	msg := fmt.Sprintf("%s: embedding provider %s", e.Op, e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" returned status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Err }

// DimensionMismatchError reports vectors of disagreeing length.
// Index is the position of the offending record, or -1 when not applicable.
// Err is an optional underlying cause.
type DimensionMismatchError struct {
	Op    string
	Want  int
	Got   int
	Index int
	Err   error
}

func (e *DimensionMismatchError) Error() string {
	var msg string
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s: dimension mismatch at record %d: want %d, got %d", e.Op, e.Index, e.Want, e.Got)
	} else {
		msg = fmt.Sprintf("%s: dimension mismatch: want %d, got %d", e.Op, e.Want, e.Got)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DimensionMismatchError) Unwrap() error { return e.Err }

// StoreCorruptError reports persisted state that could not be decoded.
// Stores recover from it by treating the collection as empty.
type StoreCorruptError struct {
	Resource string
	Err      error
}

func (e *StoreCorruptError) Error() string {
	return fmt.Sprintf("vector store %s is corrupt: %v", e.Resource, e.Err)
}

func (e *StoreCorruptError) Unwrap() error { return e.Err }

// UnreadableDocumentError reports a source document whose text could not be obtained.
type UnreadableDocumentError struct {
	Path string
	Err  error
}

func (e *UnreadableDocumentError) Error() string {
	return fmt.Sprintf("document %s is unreadable or corrupted: %v", e.Path, e.Err)
}

func (e *UnreadableDocumentError) Unwrap() error { return e.Err }

// IsEmbeddingProviderError reports whether err wraps an EmbeddingProviderError.
func IsEmbeddingProviderError(err error) bool {
	var target *EmbeddingProviderError
	return errors.As(err, &target)
}

// IsDimensionMismatch reports whether err wraps a DimensionMismatchError.
func IsDimensionMismatch(err error) bool {
	var target *DimensionMismatchError
	return errors.As(err, &target)
}

// IsStoreCorrupt reports whether err wraps a StoreCorruptError.
func IsStoreCorrupt(err error) bool {
	var target *StoreCorruptError
	return errors.As(err, &target)
}

// IsUnreadableDocument reports whether err wraps an UnreadableDocumentError.
func IsUnreadableDocument(err error) bool {
	var target *UnreadableDocumentError
	return errors.As(err, &target)
}
