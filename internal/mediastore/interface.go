package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"labhub/internal/models"
)

var (
	// ErrUnsupportedMediaKind is returned for kinds outside image/video/podcast.
	ErrUnsupportedMediaKind = errors.New("unsupported media kind")
	// ErrStorageWrite matches every *WriteError.
	ErrStorageWrite = errors.New("media storage write failed")
)

// WriteError reports a failure to create a media directory or write a file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write media %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{ErrStorageWrite, e.Err}
}

// MediaStore is the byte-storage abstraction used by the lab service.
type MediaStore interface {
	// Store persists r as "{disambiguator}-{sanitized name}" and returns its public reference.
	Store(ctx context.Context, kind models.MediaKind, originalName, disambiguator string, r io.Reader) (string, error)
	// Remove unlinks the file behind reference. Missing files are ignored.
	Remove(ctx context.Context, kind models.MediaKind, reference string) error
}
