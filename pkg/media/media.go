package media

import (
	"context"
	"io"
)

// Upload describes a stored file: the public delivery URL plus the opaque
// identifier the store needs for a later delete.
type Upload struct {
	URL      string
	PublicID string
}

// Store uploads and deletes submission files on an external media host.
type Store interface {
	Upload(ctx context.Context, r io.Reader, filename string) (*Upload, error)
	Delete(ctx context.Context, publicID string) error
}
