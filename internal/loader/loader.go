// Package loader turns files on disk into plain-text documents.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"ragkb/internal/domain"
)

// ErrUnsupportedType is wrapped when a file's detected type is not accepted.
var ErrUnsupportedType = errors.New("only text-based files are allowed")

const (
	mimePDF  = "application/pdf"
	mimeText = "text/plain"
	mimeDoc  = "application/msword"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePy   = "text/x-python"
)

// AllowedTypes lists the accepted MIME types. Types descending from one of
// these (markdown, source files) are accepted too.
var AllowedTypes = []string{mimePDF, mimeText, mimeDoc, mimeDocx, mimePy}

// Allowed reports whether m or one of its parent types is in AllowedTypes.
func Allowed(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		for _, t := range AllowedTypes {
			if m.Is(t) {
				return true
			}
		}
	}
	return false
}

// Loader reads documents by content type.
type Loader struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{log: log.Named("loader")}
}

// Load detects the file type and extracts its text. Any failure is
// reported as a *domain.UnreadableDocumentError.
func (l *Loader) Load(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return domain.Document{}, unreadable(path, err)
	}
	if !Allowed(m) {
		return domain.Document{}, unreadable(path, fmt.Errorf("%w: got %s", ErrUnsupportedType, m.String()))
	}

	var text string
	switch {
	case m.Is(mimePDF):
		text, err = readPDF(path)
	case m.Is(mimeDocx):
		text, err = readDocx(path)
	case m.Is(mimeDoc):
		err = errors.New("legacy Word documents cannot be parsed")
	default:
		text, err = readText(path)
	}
	if err != nil {
		return domain.Document{}, unreadable(path, err)
	}

	l.log.Debug("loaded document",
		zap.String("path", path),
		zap.String("mime", m.String()),
		zap.Int("chars", len(text)))
	return domain.Document{Path: path, Content: text}, nil
}

func unreadable(path string, err error) error {
	return &domain.UnreadableDocumentError{Path: path, Err: err}
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New("content is not valid UTF-8")
	}
	return string(data), nil
}

// readPDF extracts the plain text layer. The parser panics on some
// malformed inputs, so panics are turned into errors.
func readPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
