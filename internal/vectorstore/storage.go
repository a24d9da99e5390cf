// Package vectorstore holds helpers shared by the vector store backends.
package vectorstore

import (
	"ragkb/internal/domain"
)

// CheckDimension verifies that record matches the embedding length of the
// records already stored. An empty store accepts any non-empty embedding.
func CheckDimension(existing []domain.Record, record domain.Record) error {
	if len(existing) == 0 {
		return checkNonEmpty(record)
	}
	return CheckAgainst(len(existing[0].Embedding), record)
}

// CheckAgainst verifies record against a known store dimension.
func CheckAgainst(dimension int, record domain.Record) error {
	if err := checkNonEmpty(record); err != nil {
		return err
	}
	if len(record.Embedding) != dimension {
		return &domain.DimensionMismatchError{Op: "append", Want: dimension, Got: len(record.Embedding), Index: -1}
	}
	return nil
}

func checkNonEmpty(record domain.Record) error {
	if len(record.Embedding) == 0 {
		return &domain.DimensionMismatchError{Op: "append", Want: 1, Got: 0, Index: -1, Err: domain.ErrEmptyEmbedding}
	}
	return nil
}
