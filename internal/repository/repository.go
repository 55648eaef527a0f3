package repository

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/fundacion-cms/internal/model"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrMediaNotFound    = errors.New("media not found")
)

type DocumentRepository interface {
	// List returns the documents of kind, most recently modified first. An
	// empty kind lists every document.
	List(kind model.Kind) []model.Document
	Get(id model.DocumentID) (*model.Document, error)
	New(kind model.Kind, title string) *model.Document
	Save(doc *model.Document) error
	SetFeatured(id model.DocumentID, media model.MediaID) error
	Delete(id model.DocumentID) error

	// SetReloadNotifier sets a function that will be called when a document
	// changes outside this process.
	SetReloadNotifier(notifier func(model.DocumentID))
}

type MediaRepository interface {
	SaveMedia(m *model.Media) error
	GetMedia(id model.MediaID) (*model.Media, error)
	DeleteMedia(id model.MediaID) error
}
