package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid object key")

// FSStore keeps objects in a local directory served at baseURL.
type FSStore struct {
	dir     string
	baseURL string
}

func NewFSStore(dir, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &FSStore{dir: dir, baseURL: baseURL}, nil
}

func (s *FSStore) Dir() string {
	return s.dir
}

func (s *FSStore) path(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

func (s *FSStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}

	// Write then rename so readers never see a partial file.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return "", err
	}

	mediaLogger.Debug().Str("key", key).Int("size", len(data)).Msg("Object written")
	return s.baseURL + key, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Probe implements editor.Prober for URLs this store serves, reading the
// image header from disk.
func (s *FSStore) Probe(ctx context.Context, url string) (int, int, error) {
	key, ok := strings.CutPrefix(url, s.baseURL)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s is not served by this store", ErrInvalidKey, url)
	}
	p, err := s.path(key)
	if err != nil {
		return 0, 0, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
