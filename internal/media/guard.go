package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/debemdeboas/fundacion-cms/internal/editor"
)

var (
	ErrEmptyFile       = errors.New("empty file")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
)

var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// GuardError carries the message shown to the user next to the cause.
type GuardError struct {
	Err error
	Msg string
}

func (e *GuardError) Error() string { return e.Msg }
func (e *GuardError) Unwrap() error { return e.Err }

// DetectType returns the sniffed content type of f, falling back to the
// declared one when sniffing is inconclusive.
func DetectType(f editor.File) string {
	sniffed := http.DetectContentType(f.Data)
	if sniffed == "application/octet-stream" && f.ContentType != "" {
		return f.ContentType
	}
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}

// Check validates size and type of f. An empty allowed list means
// DefaultAllowedTypes.
func Check(f editor.File, maxBytes int64, allowed []string) error {
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	if len(f.Data) == 0 {
		return &GuardError{Err: ErrEmptyFile, Msg: "El archivo está vacío"}
	}
	if maxBytes > 0 && int64(len(f.Data)) > maxBytes {
		return &GuardError{
			Err: fmt.Errorf("%w: %d bytes", ErrTooLarge, len(f.Data)),
			Msg: fmt.Sprintf("La imagen supera el tamaño máximo de %d MB", maxBytes>>20),
		}
	}
	if ct := DetectType(f); !slices.Contains(allowed, ct) {
		return &GuardError{
			Err: fmt.Errorf("%w: %s", ErrUnsupportedType, ct),
			Msg: fmt.Sprintf("El tipo de archivo %s no está permitido", ct),
		}
	}
	return nil
}

// NewGuard returns an editor guard that vetoes files failing Check before a
// placeholder is inserted.
func NewGuard(maxBytes int64, allowed []string) editor.GuardFunc {
	return func(ctx context.Context, f editor.File) error {
		if err := Check(f, maxBytes, allowed); err != nil {
			mediaLogger.Info().Err(err).Str("file", f.Name).Msg("Upload vetoed")
			return err
		}
		return nil
	}
}
