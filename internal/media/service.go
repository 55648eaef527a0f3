package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/debemdeboas/fundacion-cms/internal/editor"
	"github.com/debemdeboas/fundacion-cms/internal/model"
	"github.com/debemdeboas/fundacion-cms/internal/repository"
)

const KeyPrefix = "images/"

type Options struct {
	MaxBytes     int64
	AllowedTypes []string
	// Variants enables the responsive copies listed in editor.VariantWidths.
	Variants bool
	// Quality of JPEG variants, 1 to 100.
	Quality int
}

// Service implements editor.Uploader.
type Service struct {
	store Store
	repo  repository.MediaRepository
	opts  Options
}

func NewService(store Store, repo repository.MediaRepository, opts Options) *Service {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = jpeg.DefaultQuality
	}
	return &Service{store: store, repo: repo, opts: opts}
}

var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

// Upload stores f and its variants and records the media row.
func (s *Service) Upload(ctx context.Context, f editor.File) (*editor.UploadResult, error) {
	if err := Check(f, s.opts.MaxBytes, s.opts.AllowedTypes); err != nil {
		return nil, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return nil, &GuardError{Err: fmt.Errorf("decoding %s: %w", f.Name, err), Msg: "El archivo no es una imagen válida"}
	}

	id := model.MediaID(uuid.New().String())
	ext := extensions[format]
	contentType := "image/" + format

	m := &model.Media{
		ID:          id,
		Key:         KeyPrefix + string(id) + ext,
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Size:        int64(len(f.Data)),
		CreatedAt:   time.Now().UTC(),
	}

	var stored []string
	cleanup := func() {
		for _, key := range stored {
			if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
				mediaLogger.Warn().Err(err).Str("key", key).Msg("Failed to remove partial upload")
			}
		}
	}

	m.URL, err = s.store.Put(ctx, m.Key, contentType, f.Data)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", m.Key, err)
	}
	stored = append(stored, m.Key)

	if s.opts.Variants && format != "gif" {
		variants, keys, err := s.storeVariants(ctx, id, f.Data, cfg.Width)
		stored = append(stored, keys...)
		if err != nil {
			cleanup()
			return nil, err
		}
		if len(variants) > 0 {
			m.Variants = variants
		}
	}

	if s.repo != nil {
		if err := s.repo.SaveMedia(m); err != nil {
			cleanup()
			return nil, err
		}
	}

	mediaLogger.Info().
		Str("media_id", string(id)).
		Str("key", m.Key).
		Int("width", m.Width).
		Int("height", m.Height).
		Int("variants", len(m.Variants)).
		Msg("Image stored")

	return &editor.UploadResult{
		URL:      m.URL,
		ID:       string(id),
		Width:    m.Width,
		Height:   m.Height,
		Variants: m.Variants,
	}, nil
}

func (s *Service) storeVariants(ctx context.Context, id model.MediaID, data []byte, natural int) (map[string]string, []string, error) {
	var todo []string
	for _, name := range []string{editor.VariantMD, editor.VariantLG} {
		if editor.VariantWidths[name] < natural {
			todo = append(todo, name)
		}
	}
	if len(todo) == 0 {
		return nil, nil, nil
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding image for variants: %w", err)
	}

	variants := make(map[string]string, len(todo))
	var keys []string
	for _, name := range todo {
		encoded, contentType, ext, err := s.encode(Resize(src, editor.VariantWidths[name]), format)
		if err != nil {
			return nil, keys, fmt.Errorf("encoding %s variant: %w", name, err)
		}

		key := KeyPrefix + string(id) + "-" + name + ext
		url, err := s.store.Put(ctx, key, contentType, encoded)
		if err != nil {
			return nil, keys, fmt.Errorf("storing %s: %w", key, err)
		}
		keys = append(keys, key)
		variants[name] = url
	}
	return variants, keys, nil
}

func (s *Service) encode(img image.Image, format string) ([]byte, string, string, error) {
	var buf bytes.Buffer
	if format == "jpeg" {
		err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.opts.Quality})
		return buf.Bytes(), "image/jpeg", ".jpg", err
	}
	// No WebP encoder is available; PNG keeps transparency.
	err := png.Encode(&buf, img)
	return buf.Bytes(), "image/png", ".png", err
}

// Resize scales img to width, keeping its aspect ratio.
func Resize(img image.Image, width int) image.Image {
	b := img.Bounds()
	height := int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
