// Package compression holds the codecs used for stored document content.
package compression

import "fmt"

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

const (
	Zstd = "zstd"
	Gzip = "gzip"
)

// New returns the compressor registered under name.
func New(name string) (Compressor, error) {
	switch name {
	case Zstd, "":
		return NewZstdCompressor()
	case Gzip:
		return GzipCompressor{}, nil
	}
	return nil, fmt.Errorf("unknown compression %q", name)
}
