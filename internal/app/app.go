// Package app assembles the CMS from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/fundacion-cms/internal/api"
	"github.com/debemdeboas/fundacion-cms/internal/config"
	"github.com/debemdeboas/fundacion-cms/internal/db"
	"github.com/debemdeboas/fundacion-cms/internal/editor"
	"github.com/debemdeboas/fundacion-cms/internal/media"
	"github.com/debemdeboas/fundacion-cms/internal/render"
	"github.com/debemdeboas/fundacion-cms/internal/repository"
	"github.com/debemdeboas/fundacion-cms/internal/repository/draft"
	"github.com/debemdeboas/fundacion-cms/internal/session"
	"github.com/debemdeboas/fundacion-cms/internal/sse"
	"github.com/debemdeboas/fundacion-cms/internal/util/compression"
)

// ReapInterval is how often idle sessions are looked for.
const ReapInterval = time.Minute

// SetLoggers hands l to every package logger.
func SetLoggers(l zerolog.Logger) {
	config.SetLogger(l)
	db.SetLogger(l)
	repository.SetLogger(l)
	editor.SetLogger(l)
	media.SetLogger(l)
	render.SetLogger(l)
	session.SetLogger(l)
	sse.SetLogger(l)
	api.SetLogger(l)
}

type App struct {
	Config *config.Config

	DB       db.DB
	Docs     *repository.DBDocumentRepository
	Media    *repository.DBMediaRepository
	Store    media.Store
	Uploader *media.Service
	Renderer *render.Renderer
	Clients  *sse.SSEClients
	Sessions *session.Registry

	log     zerolog.Logger
	handler http.Handler
}

// New opens the database and media store described by cfg and wires the
// editor sessions and HTTP handlers on top of them.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}

	database := db.NewSQLite(cfg.Database.Path)
	if err := database.InitDB(); err != nil {
		return nil, err
	}
	a.DB = database

	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	compressor, err := compression.New(cfg.Database.Compression)
	if err != nil {
		return err
	}

	a.Docs = repository.NewDBDocumentRepository(a.DB, compressor)
	if err := a.Docs.Init(); err != nil {
		return fmt.Errorf("error loading documents: %w", err)
	}
	a.Media = repository.NewDBMediaRepository(a.DB)

	store, prober, err := NewStore(ctx, cfg)
	if err != nil {
		return err
	}
	a.Store = store

	maxBytes := int64(cfg.Media.MaxUploadMB) << 20
	a.Uploader = media.NewService(store, a.Media, media.Options{
		MaxBytes:     maxBytes,
		AllowedTypes: cfg.Media.AllowedTypes,
		Variants:     cfg.Media.Variants,
		Quality:      cfg.Media.Quality,
	})

	if a.Renderer, err = render.New(cfg.Render.Renderer, cfg.Render.SyntaxTheme); err != nil {
		return err
	}

	a.Clients = sse.NewSSEClients()
	a.Sessions = session.NewRegistry(a.Docs, draft.NewMemoryRepository(), a.Clients, session.Options{
		Editor: editor.Options{
			Width:         cfg.Editor.Width,
			MinImageWidth: cfg.Editor.MinImageWidth,
			HandleSize:    cfg.Editor.HandleSize,
			Uploader:      a.Uploader,
			Guard:         media.NewGuard(maxBytes, cfg.Media.AllowedTypes),
			Prober:        prober,
		},
		IdleTimeout: time.Duration(cfg.Editor.SessionIdleMinutes) * time.Minute,
	})
	a.Docs.SetReloadNotifier(a.Sessions.Reload)

	mux := http.NewServeMux()
	api.New(a.Docs, a.Sessions, a.Clients, api.Options{
		MaxUploadBytes: maxBytes,
		Renderer:       a.Renderer,
	}).Register(mux)

	mediaPrefix := ""
	if fs, ok := store.(*media.FSStore); ok {
		mediaPrefix = cfg.Media.FS.URLPath
		mux.Handle("GET "+mediaPrefix, http.StripPrefix(mediaPrefix, http.FileServer(http.Dir(fs.Dir()))))
	}

	a.handler = api.RequestLogger(a.log)(api.SecureHeaders(api.CacheIt(mediaPrefix, mux)))
	return nil
}

// NewStore returns the configured media store and the prober that checks
// the URLs it hands out. The prober is nil when probing is disabled.
func NewStore(ctx context.Context, cfg *config.Config) (media.Store, editor.Prober, error) {
	switch cfg.Media.Store {
	case "s3":
		s3cfg := cfg.Media.S3
		store, err := media.NewS3Store(ctx, media.S3Options{
			AccessKeyID:     os.Getenv(config.EnvS3AccessKeyID),
			SecretAccessKey: os.Getenv(config.EnvS3SecretKey),
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			Bucket:          s3cfg.Bucket,
			PublicURL:       s3cfg.PublicURL,
			PathStyle:       s3cfg.Endpoint != "",
		})
		if err != nil {
			return nil, nil, err
		}
		if cfg.Media.ProbeSeconds == 0 {
			return store, nil, nil
		}
		return store, media.NewHTTPProber("", time.Duration(cfg.Media.ProbeSeconds)*time.Second), nil
	default:
		store, err := media.NewFSStore(cfg.Media.FS.Dir, cfg.Media.FS.URLPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP on the configured address until ctx is done, then shuts
// down gracefully. The watcher and the idle session reaper run alongside.
func (a *App) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", a.Config.Addr())
	if err != nil {
		return err
	}
	return a.Serve(ctx, l)
}

func (a *App) Serve(ctx context.Context, l net.Listener) error {
	go a.Docs.Watch(ctx, time.Duration(a.Config.Database.PollSeconds)*time.Second)
	go a.Sessions.Reap(ctx, ReapInterval)

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with the server context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(l)
	}()
	a.log.Info().Str("addr", l.Addr().String()).Msg("Server started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.Config.Server.ShutdownSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
