package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/debemdeboas/fundacion-cms/internal/document"
	"github.com/debemdeboas/fundacion-cms/internal/editor"
	"github.com/debemdeboas/fundacion-cms/internal/model"
	"github.com/debemdeboas/fundacion-cms/internal/routes"
	"github.com/debemdeboas/fundacion-cms/internal/session"
)

// sessionView is the state a client needs to render an editor session.
type sessionView struct {
	ID       model.DocumentID      `json:"id"`
	HTML     string                `json:"html"`
	Figures  []editor.FigureInfo   `json:"figures"`
	Caret    document.Caret        `json:"caret"`
	Controls *editor.ImageControls `json:"controls,omitempty"`
}

func viewOf(s *session.Session) sessionView {
	v := sessionView{
		ID:      s.ID,
		HTML:    s.Editor.HTML(),
		Figures: s.Editor.Figures(),
		Caret:   s.Editor.SaveSelection(),
	}
	if c, ok := s.Editor.Selected(); ok {
		v.Controls = &c
	}
	return v
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Open(documentID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(documentID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(documentID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type valueRequest struct {
	HTML string `json:"html"`
	// Input marks content typed by the user, which is always emitted.
	Input bool `json:"input"`
}

func (h *Handler) setValue(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(documentID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req valueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.Input {
		err = s.Editor.Input(req.HTML)
	} else {
		err = s.Editor.SetValue(req.HTML)
	}
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(documentID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var cmd session.Command
	if err := decodeJSON(w, r, &cmd); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.Execute(cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// multipartOverhead leaves room for the caret field and part headers.
const multipartOverhead = 64 << 10

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes + multipartOverhead); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	file, header, err := r.FormFile(routes.FormFile)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	var caret *document.Caret
	if raw := r.FormValue(routes.FormCaret); raw != "" {
		caret = &document.Caret{}
		if err := json.Unmarshal([]byte(raw), caret); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid caret: %v", errBadRequest, err))
			return
		}
	}

	f := editor.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}

	// The upload outlives the request.
	ctx := context.WithoutCancel(r.Context())
	u, err := h.sessions.InsertImage(ctx, id, caret, f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, session.StatusOf(u))
}

func (h *Handler) uploadStatus(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(documentID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.Upload(editor.UploadID(r.PathValue("upload")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.StatusOf(u))
}
