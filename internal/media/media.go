// Package media stores uploaded images for the editor: it validates files,
// writes the original and its responsive variants to an object store and
// records them in the media repository.
package media

import (
	"context"

	"github.com/rs/zerolog"
)

var mediaLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	mediaLogger = l
}

// Store keeps objects under slash-separated keys and serves them at a URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (url string, err error)
	Delete(ctx context.Context, key string) error
}
