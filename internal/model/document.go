// Package model defines the core data structures of the CMS.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/debemdeboas/fundacion-cms/internal/util"
)

type DocumentID string

// Kind is the section a document belongs to.
type Kind string

const (
	KindNews  Kind = "news"
	KindEvent Kind = "event"
	KindPage  Kind = "page"
)

func (k Kind) Valid() bool {
	switch k {
	case KindNews, KindEvent, KindPage:
		return true
	}
	return false
}

// ParseKind accepts a kind name; empty means news.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return KindNews, nil
	}
	if !k.Valid() {
		return "", fmt.Errorf("unknown document kind %q", s)
	}
	return k, nil
}

type Document struct {
	ID    DocumentID `json:"id"`
	Kind  Kind       `json:"kind"`
	Title string     `json:"title"`

	// HTML is the exported editor content.
	HTML string `json:"html"`

	// ContentHash is the hash of HTML, used to detect changes on reload.
	ContentHash string `json:"content_hash"`

	FeaturedMediaID MediaID `json:"featured_media_id,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`

	// Optional data from an imported file's front matter.
	Info *util.FrontMatter `json:"-"`
}

func (d *Document) GetTitle() string {
	if d.Info != nil && d.Info.TitleData != nil && d.Info.Title != "" {
		var s strings.Builder

		if d.Info.SeriesInfo.Name != "" && d.Info.SeriesInfo.Value != "" {
			s.WriteString("[")
			s.WriteString(d.Info.SeriesInfo.Name)
			s.WriteString("-")
			s.WriteString(d.Info.SeriesInfo.Value)
			s.WriteString("] ")
		}

		s.WriteString(d.Info.Title)

		return s.String()
	}
	return d.Title
}
