package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/debemdeboas/fundacion-cms/internal/config"
	"github.com/debemdeboas/fundacion-cms/internal/document"
	"github.com/debemdeboas/fundacion-cms/internal/model"
	"github.com/debemdeboas/fundacion-cms/internal/routes"
	"github.com/debemdeboas/fundacion-cms/internal/session"
)

type documentSummary struct {
	ID              model.DocumentID `json:"id"`
	Kind            model.Kind       `json:"kind"`
	Title           string           `json:"title"`
	FeaturedMediaID model.MediaID    `json:"featured_media_id,omitempty"`
	ModifiedAt      time.Time        `json:"modified_at"`
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	var kind model.Kind
	if q := r.URL.Query().Get(routes.QueryKind); q != "" {
		k, err := model.ParseKind(q)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		kind = k
	}

	docs := h.docs.List(kind)
	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentSummary{
			ID:              d.ID,
			Kind:            d.Kind,
			Title:           d.Title,
			FeaturedMediaID: d.FeaturedMediaID,
			ModifiedAt:      d.ModifiedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type createRequest struct {
	Kind  string `json:"kind" validate:"omitempty,oneof=news event page"`
	Title string `json:"title" validate:"max=300"`
	// Either HTML or Markdown, optionally with %%% front matter.
	HTML     string `json:"html"`
	Markdown string `json:"markdown" validate:"excluded_with=HTML"`
}

func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	kind, _ := model.ParseKind(req.Kind)
	doc := h.docs.New(kind, req.Title)

	switch {
	case req.Markdown != "":
		if h.opts.Renderer == nil {
			writeError(w, r, fmt.Errorf("%w: markdown import is disabled", errBadRequest))
			return
		}
		imp, err := h.opts.Renderer.Import([]byte(req.Markdown))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		doc.HTML = imp.HTML
		doc.Info = imp.Info
		if imp.Info != nil && req.Kind == "" && imp.Info.Kind != "" {
			if doc.Kind, err = model.ParseKind(imp.Info.Kind); err != nil {
				writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
				return
			}
		}
	case req.HTML != "":
		out, err := document.Clean(req.HTML)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		doc.HTML = out
	}

	if doc.Title == "" {
		doc.Title = doc.GetTitle()
	}
	if doc.Title == "" {
		doc.Title = "Sin título - " + doc.CreatedAt.Format("2006-01-02")
	}

	if err := h.docs.Save(doc); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set(config.HLocation, routes.Documents+"/"+string(doc.ID))
	writeJSON(w, http.StatusCreated, doc)
}

func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(documentID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type saveRequest struct {
	Title *string `json:"title,omitempty" validate:"omitempty,min=1,max=300"`
	// HTML replaces the content when no session is open.
	HTML *string `json:"html,omitempty"`
}

// saveDocument stores the export of the open session, or the given HTML when
// the document is not being edited.
func (h *Handler) saveDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)

	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, err)
		return
	}

	doc, err := h.sessions.Save(id)
	switch {
	case errors.Is(err, session.ErrNoSession) && req.HTML != nil:
		if doc, err = h.docs.Get(id); err != nil {
			writeError(w, r, err)
			return
		}
		if doc.HTML, err = document.Clean(*req.HTML); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		if req.Title != nil {
			doc.Title = *req.Title
		}
		if err := h.docs.Save(doc); err != nil {
			writeError(w, r, err)
			return
		}
	case err != nil:
		writeError(w, r, err)
		return
	case req.Title != nil && *req.Title != doc.Title:
		doc.Title = *req.Title
		if err := h.docs.Save(doc); err != nil {
			writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)

	if err := h.sessions.Close(id); err != nil && !errors.Is(err, session.ErrNoSession) {
		writeError(w, r, err)
		return
	}
	if err := h.docs.Delete(id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
