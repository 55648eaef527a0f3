// Package session keeps one live editor per open document and connects its
// callbacks to drafts, the document repository and SSE clients.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/fundacion-cms/internal/editor"
	"github.com/debemdeboas/fundacion-cms/internal/model"
	"github.com/debemdeboas/fundacion-cms/internal/repository"
	"github.com/debemdeboas/fundacion-cms/internal/repository/draft"
	"github.com/debemdeboas/fundacion-cms/internal/sse"
)

var sessionLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	sessionLogger = l
}

var ErrNoSession = errors.New("no open session for document")

// Broadcaster pushes an event to the clients of a document.
type Broadcaster interface {
	Broadcast(id model.DocumentID, name, data string)
}

type Options struct {
	// Editor is the template for every session's editor options. Its
	// callbacks are replaced by the registry.
	Editor editor.Options
	// IdleTimeout closes sessions nobody used for that long.
	IdleTimeout time.Duration
}

type Session struct {
	ID     model.DocumentID
	Editor *editor.Editor

	mu       sync.Mutex
	lastUsed time.Time
	uploads  map[editor.UploadID]*editor.Upload
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

type Registry struct {
	mu       sync.Mutex
	sessions map[model.DocumentID]*Session

	docs    repository.DocumentRepository
	drafts  draft.Repository
	clients Broadcaster
	opts    Options
}

func NewRegistry(docs repository.DocumentRepository, drafts draft.Repository, clients Broadcaster, opts Options) *Registry {
	return &Registry{
		sessions: make(map[model.DocumentID]*Session),
		docs:     docs,
		drafts:   drafts,
		clients:  clients,
		opts:     opts,
	}
}

// Open returns the session of document id, starting one from the unsaved
// draft or the stored content.
func (r *Registry) Open(id model.DocumentID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.touch()
		return s, nil
	}

	doc, err := r.docs.Get(id)
	if err != nil {
		return nil, err
	}

	value := doc.HTML
	if d, err := r.drafts.GetDraft(id); err == nil && d.Initialized {
		value = string(d.Content)
	}

	ed, err := editor.New(value, r.editorOptions(id))
	if err != nil {
		return nil, fmt.Errorf("opening editor for %s: %w", id, err)
	}

	s := &Session{
		ID:       id,
		Editor:   ed,
		lastUsed: time.Now(),
		uploads:  make(map[editor.UploadID]*editor.Upload),
	}
	r.sessions[id] = s

	sessionLogger.Info().Str("document_id", string(id)).Msg("Session opened")
	return s, nil
}

func (r *Registry) editorOptions(id model.DocumentID) editor.Options {
	o := r.opts.Editor
	log := sessionLogger.With().Str("document_id", string(id)).Logger()

	o.OnChange = func(html string) {
		if err := r.drafts.SaveDraft(id, []byte(html)); err != nil {
			log.Error().Err(err).Msg("Failed to save draft")
		}
		r.clients.Broadcast(id, sse.EventChange, html)
	}
	o.OnAlert = func(msg string) {
		r.clients.Broadcast(id, sse.EventAlert, msg)
	}
	o.OnFocusAlt = func(fig editor.FigureID) {
		r.clients.Broadcast(id, sse.EventFocusAlt, string(fig))
	}
	o.OnFeatured = func(img editor.FeaturedImage) {
		if img.MediaID != "" {
			if err := r.docs.SetFeatured(id, model.MediaID(img.MediaID)); err != nil {
				log.Error().Err(err).Str("media_id", img.MediaID).Msg("Failed to set featured image")
				r.clients.Broadcast(id, sse.EventAlert, "No se pudo marcar la imagen como destacada")
				return
			}
		}
		data, _ := json.Marshal(img)
		r.clients.Broadcast(id, sse.EventFeatured, string(data))
	}
	return o
}

func (r *Registry) Get(id model.DocumentID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	s.touch()
	return s, nil
}

// Save stores the exported content of the session as the document content
// and drops the draft.
func (r *Registry) Save(id model.DocumentID) (*model.Document, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	doc, err := r.docs.Get(id)
	if err != nil {
		return nil, err
	}
	doc.HTML = s.Editor.Export()
	if err := r.docs.Save(doc); err != nil {
		return nil, err
	}
	if err := r.drafts.DeleteDraft(id); err != nil {
		sessionLogger.Warn().Err(err).Str("document_id", string(id)).Msg("Failed to drop draft")
	}

	sessionLogger.Info().Str("document_id", string(id)).Str("hash", doc.ContentHash).Msg("Document saved")
	return doc, nil
}

// Close ends the session of document id. Uploads still running keep
// updating its draft.
func (r *Registry) Close(id model.DocumentID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	delete(r.sessions, id)
	sessionLogger.Info().Str("document_id", string(id)).Msg("Session closed")
	return nil
}

// CloseIdle closes sessions unused since before now minus the idle timeout
// and returns how many were closed.
func (r *Registry) CloseIdle(now time.Time) int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessions {
		if now.Sub(s.LastUsed()) >= r.opts.IdleTimeout {
			delete(r.sessions, id)
			n++
			sessionLogger.Info().Str("document_id", string(id)).Msg("Idle session closed")
		}
	}
	return n
}

// Reap calls CloseIdle every interval until ctx is done.
func (r *Registry) Reap(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.CloseIdle(now)
		}
	}
}

// Reload adopts content changed by another instance into an open session
// without unsaved changes, then tells the clients of id.
func (r *Registry) Reload(id model.DocumentID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()

	if ok && !r.hasDraft(id) {
		doc, err := r.docs.Get(id)
		if err != nil {
			sessionLogger.Error().Err(err).Str("document_id", string(id)).Msg("Failed to reload document")
			return
		}
		if err := s.Editor.SetValue(doc.HTML); err != nil {
			sessionLogger.Error().Err(err).Str("document_id", string(id)).Msg("Failed to reload session")
			return
		}
		if err := r.drafts.DeleteDraft(id); err != nil {
			sessionLogger.Warn().Err(err).Str("document_id", string(id)).Msg("Failed to drop draft")
		}
	}
	r.clients.Broadcast(id, sse.EventReload, string(id))
}

func (r *Registry) hasDraft(id model.DocumentID) bool {
	d, err := r.drafts.GetDraft(id)
	return err == nil && d.Initialized
}
