// Package api exposes documents and live editor sessions over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/fundacion-cms/internal/config"
	"github.com/debemdeboas/fundacion-cms/internal/editor"
	"github.com/debemdeboas/fundacion-cms/internal/model"
	"github.com/debemdeboas/fundacion-cms/internal/render"
	"github.com/debemdeboas/fundacion-cms/internal/repository"
	"github.com/debemdeboas/fundacion-cms/internal/routes"
	"github.com/debemdeboas/fundacion-cms/internal/session"
	"github.com/debemdeboas/fundacion-cms/internal/sse"
)

var apiLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	apiLogger = l
}

// MaxJSONBytes bounds every JSON request body.
const MaxJSONBytes = 4 << 20

var errBadRequest = errors.New("bad request")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Options struct {
	// MaxUploadBytes bounds the multipart body of an image upload.
	MaxUploadBytes int64
	// Renderer converts Markdown sent on document creation.
	Renderer *render.Renderer
}

type Handler struct {
	docs     repository.DocumentRepository
	sessions *session.Registry
	clients  *sse.SSEClients
	opts     Options
}

func New(docs repository.DocumentRepository, sessions *session.Registry, clients *sse.SSEClients, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = int64(config.DefaultMaxUploadMB) << 20
	}
	return &Handler{docs: docs, sessions: sessions, clients: clients, opts: opts}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+routes.RobotsPath, serveRobots)
	mux.HandleFunc("GET "+routes.SyntaxCSS, h.serveSyntaxCSS)
	mux.HandleFunc("GET "+routes.SSEPath, h.serveEvents)

	mux.HandleFunc("GET "+routes.Documents, h.listDocuments)
	mux.HandleFunc("POST "+routes.Documents, h.createDocument)
	mux.HandleFunc("GET "+routes.Document, h.getDocument)
	mux.HandleFunc("PUT "+routes.Document, h.saveDocument)
	mux.HandleFunc("DELETE "+routes.Document, h.deleteDocument)

	mux.HandleFunc("POST "+routes.Session, h.openSession)
	mux.HandleFunc("GET "+routes.Session, h.getSession)
	mux.HandleFunc("DELETE "+routes.Session, h.closeSession)
	mux.HandleFunc("PUT "+routes.SessionValue, h.setValue)
	mux.HandleFunc("POST "+routes.SessionCommands, h.execute)
	mux.HandleFunc("POST "+routes.SessionImages, h.uploadImage)
	mux.HandleFunc("GET "+routes.SessionImage, h.uploadStatus)
}

func serveRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(config.HCType, config.CTypePlain)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("User-agent: *\nDisallow: /"))
}

func (h *Handler) serveSyntaxCSS(w http.ResponseWriter, r *http.Request) {
	theme := render.DefaultSyntaxTheme
	if h.opts.Renderer != nil {
		theme = h.opts.Renderer.SyntaxTheme
	}
	w.Header().Set(config.HCType, config.CTypeCSS)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(render.SyntaxCSS(theme)))
}

func (h *Handler) serveEvents(w http.ResponseWriter, r *http.Request) {
	id := model.DocumentID(r.URL.Query().Get(routes.QueryDocument))
	if id == "" {
		writeError(w, r, fmt.Errorf("%w: missing %s parameter", errBadRequest, routes.QueryDocument))
		return
	}
	if _, err := h.docs.Get(id); err != nil {
		writeError(w, r, err)
		return
	}
	h.clients.Serve(w, r, id)
}

func documentID(r *http.Request) model.DocumentID {
	return model.DocumentID(r.PathValue("id"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		apiLogger.Error().Err(err).Msg("Failed to write response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, repository.ErrDocumentNotFound),
		errors.Is(err, editor.ErrFigureNotFound),
		errors.Is(err, session.ErrUploadNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, session.ErrInvalidCommand),
		errors.Is(err, editor.ErrInvalidWidth):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, editor.ErrNoSelection),
		errors.Is(err, editor.ErrNotResizing),
		errors.Is(err, editor.ErrNotDragging),
		errors.Is(err, editor.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, editor.ErrUploadVetoed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrNoUploader):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	log := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("Request rejected")
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
