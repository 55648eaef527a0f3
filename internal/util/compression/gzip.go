package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// GzipCompressor stores document HTML as gzip, for databases shared with
// tools that cannot read zstd.
type GzipCompressor struct{}

func (GzipCompressor) Compress(content []byte) ([]byte, error) {
	var b bytes.Buffer
	w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return nil, fmt.Errorf("gzip: compressing document content: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip: flushing document content: %w", err)
	}
	return b.Bytes(), nil
}

func (GzipCompressor) Decompress(stored []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(stored))
	if err != nil {
		return nil, fmt.Errorf("gzip: reading stored document content: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}
