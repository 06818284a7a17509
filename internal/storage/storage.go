package storage

import (
	"context"
	"errors"
	"io"
)

var ErrInvalidName = errors.New("invalid object name")

// ImageStore persists uploaded device images under a caller-chosen name.
type ImageStore interface {
	Save(ctx context.Context, name string, r io.Reader, size int64) error
	Delete(ctx context.Context, name string) error
}
