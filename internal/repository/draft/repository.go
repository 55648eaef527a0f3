// Package draft keeps the last content an editor session emitted for each
// document.
package draft

import (
	"errors"
	"time"

	"github.com/debemdeboas/fundacion-cms/internal/model"
)

var ErrDraftNotFound = errors.New("draft not found")

type DraftID = model.DocumentID

type Draft struct {
	ID      DraftID
	Content []byte

	Initialized bool
	UpdatedAt   time.Time
}

type Repository interface {
	CreateDraft(id DraftID) (*Draft, error)
	SaveDraft(id DraftID, content []byte) error
	GetDraft(id DraftID) (*Draft, error)
	DeleteDraft(id DraftID) error
}
