package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/debemdeboas/fundacion-cms/internal/document"
	"github.com/debemdeboas/fundacion-cms/internal/editor"
	"github.com/debemdeboas/fundacion-cms/internal/model"
	"github.com/debemdeboas/fundacion-cms/internal/sse"
)

var ErrUploadNotFound = errors.New("upload not found")

// UploadStatus is what clients learn about an upload.
type UploadStatus struct {
	ID     editor.UploadID   `json:"id"`
	State  editor.ImageState `json:"state"`
	Figure editor.FigureID   `json:"figure,omitempty"`
	URL    string            `json:"url,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func StatusOf(u *editor.Upload) UploadStatus {
	st := UploadStatus{ID: u.ID, State: u.State(), Figure: u.Figure()}
	if res := u.Result(); res != nil {
		st.URL = res.URL
	}
	if err := u.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

// InsertImage starts an upload into the session of document id at caret at,
// or at the saved selection when at is nil. Clients get an upload event once
// the pipeline is done with it.
func (r *Registry) InsertImage(ctx context.Context, id model.DocumentID, at *document.Caret, f editor.File) (*editor.Upload, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	caret := s.Editor.SaveSelection()
	if at != nil {
		caret = *at
	}

	u, err := s.Editor.InsertImage(ctx, caret, f)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.uploads[u.ID] = u
	s.mu.Unlock()

	sessionLogger.Info().Str("document_id", string(id)).Str("upload_id", string(u.ID)).Str("file", f.Name).Msg("Upload started")

	go func() {
		<-u.Done()
		st := StatusOf(u)
		data, _ := json.Marshal(st)
		r.clients.Broadcast(id, sse.EventUpload, string(data))
		sessionLogger.Info().Str("document_id", string(id)).Str("upload_id", string(u.ID)).Stringer("state", st.State).Msg("Upload finished")
	}()
	return u, nil
}

// Upload returns an upload started in this session.
func (s *Session) Upload(id editor.UploadID) (*editor.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.uploads[id]
	if !ok {
		return nil, ErrUploadNotFound
	}
	return u, nil
}
