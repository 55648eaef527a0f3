// Package editor implements a headless rich-text editor over an HTML document:
// value normalization, caret tracking, an asynchronous image upload pipeline
// and the image controls (selection, alt text, width, alignment, resize,
// reordering).
//
// An Editor serializes every mutation behind its own mutex. Callbacks in
// Options run while that mutex is held and must not call back into the
// Editor.
package editor

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/debemdeboas/fundacion-cms/internal/document"
)

var editorLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	editorLogger = l
}

const (
	DefaultWidth         = 1200
	DefaultMinImageWidth = 60
	DefaultHandleSize    = 16
)

// FigureID identifies a figure while its node lives in the editor. It is
// never written to the HTML.
type FigureID string

type Options struct {
	// Width of the editing surface in pixels.
	Width int
	// MinImageWidth is the floor for every width change.
	MinImageWidth int
	// HandleSize is the side of the bottom-right resize corner.
	HandleSize int

	Uploader Uploader
	Guard    GuardFunc
	Prober   Prober

	OnChange   func(html string)
	OnAlert    func(msg string)
	OnFocusAlt func(id FigureID)
	OnFeatured func(img FeaturedImage)
}

type Editor struct {
	mu   sync.Mutex
	opts Options
	doc  *document.Document

	ids    map[*html.Node]FigureID
	nodes  map[FigureID]*html.Node
	nextID int

	caret    document.Caret
	selected FigureID
	resize   *resizeState
	dragging FigureID

	uploads map[UploadID]*Upload
}

// New returns an editor holding the normalized value.
func New(value string, opts Options) (*Editor, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.MinImageWidth <= 0 {
		opts.MinImageWidth = DefaultMinImageWidth
	}
	if opts.HandleSize <= 0 {
		opts.HandleSize = DefaultHandleSize
	}

	e := &Editor{
		opts:    opts,
		doc:     document.New(),
		ids:     make(map[*html.Node]FigureID),
		nodes:   make(map[FigureID]*html.Node),
		uploads: make(map[UploadID]*Upload),
	}

	d, err := e.load(value)
	if err != nil {
		return nil, err
	}
	e.doc = d
	e.sync()
	e.caret = e.doc.End()
	return e, nil
}

// SetValue adopts an external value. It does nothing when value matches the
// current content, so a caller echoing emitted HTML back causes no change.
func (e *Editor) SetValue(value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if value == e.doc.HTML() {
		return nil
	}
	return e.replace(value)
}

// Input adopts content produced by user typing and always emits.
func (e *Editor) Input(value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.replace(value)
}

// HTML returns the live content, editing markers included.
func (e *Editor) HTML() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.doc.HTML()
}

// Export returns the content to persist: no placeholders, no markers.
func (e *Editor) Export() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.doc.Export()
}

func (e *Editor) load(value string) (*document.Document, error) {
	d, err := document.Parse(document.Sanitize(value))
	if err != nil {
		return nil, err
	}
	d.Normalize()
	d.StripPlaceholders(func(tempID string) bool {
		u, ok := e.uploads[UploadID(tempID)]
		return ok && u.State() == StatePending
	})
	for _, n := range append(d.Images(), d.Figures()...) {
		document.RemoveClass(n, document.ClassSelected)
		document.RemoveClass(n, document.ClassDragging)
	}
	return d, nil
}

func (e *Editor) replace(value string) error {
	var selectedSrc string
	if img := e.selectedImage(); img != nil {
		selectedSrc, _ = document.Attr(img, document.AttrSrc)
	}

	d, err := e.load(value)
	if err != nil {
		return err
	}

	e.doc = d
	e.ids = make(map[*html.Node]FigureID)
	e.nodes = make(map[FigureID]*html.Node)
	e.selected = ""
	e.resize = nil
	e.dragging = ""
	e.sync()

	for _, u := range e.uploads {
		var id FigureID
		if fig := e.uploadFigure(u); fig != nil {
			id = e.ids[fig]
		}
		u.setFigure(id)
	}

	if selectedSrc != "" {
		for _, img := range e.doc.Images() {
			if src, _ := document.Attr(img, document.AttrSrc); src == selectedSrc {
				e.selectLocked(e.ids[document.FigureOf(img)])
				break
			}
		}
	}

	if !e.doc.Valid(e.caret) {
		e.caret = e.doc.End()
	}

	e.emit()
	return nil
}

// sync assigns ids to new figures and forgets detached ones.
func (e *Editor) sync() {
	live := make(map[*html.Node]bool)
	for _, fig := range e.doc.Figures() {
		live[fig] = true
		if _, ok := e.ids[fig]; !ok {
			e.nextID++
			id := FigureID(fmt.Sprintf("fig-%d", e.nextID))
			e.ids[fig] = id
			e.nodes[id] = fig
		}
	}

	for n, id := range e.ids {
		if live[n] {
			continue
		}
		delete(e.ids, n)
		delete(e.nodes, id)
		if e.selected == id {
			e.selected = ""
		}
		if e.dragging == id {
			e.dragging = ""
		}
		if e.resize != nil && e.resize.figure == id {
			e.resize = nil
		}
	}
}

// uploadFigure finds the figure of u in the current document: by temp id
// while pending, by media id or final URL once uploaded.
func (e *Editor) uploadFigure(u *Upload) *html.Node {
	switch u.State() {
	case StatePending:
		if n := e.doc.FindByAttr(document.AttrTempID, string(u.ID)); n != nil {
			return document.FigureOf(n)
		}
	case StateUploaded, StateBroken:
		res := u.Result()
		if res == nil {
			return nil
		}
		if res.ID != "" {
			if n := e.doc.FindByAttr(document.AttrMediaID, res.ID); n != nil {
				return document.FigureOf(n)
			}
		}
		return e.figureBySrc(res.URL)
	}
	return nil
}

// pruneUploads forgets finished uploads whose figure left the document.
func (e *Editor) pruneUploads() {
	for id, u := range e.uploads {
		if !u.finished() {
			continue
		}
		if _, live := e.nodes[u.Figure()]; live && u.State() != StateFailed {
			continue
		}
		delete(e.uploads, id)
	}
}

func (e *Editor) emit() {
	e.doc.MirrorWidths()
	e.sync()
	e.pruneUploads()
	if e.opts.OnChange != nil {
		e.opts.OnChange(e.doc.HTML())
	}
}

func (e *Editor) alert(msg string) {
	editorLogger.Info().Str("message", msg).Msg("Editor alert")
	if e.opts.OnAlert != nil {
		e.opts.OnAlert(msg)
	}
}

func (e *Editor) figure(id FigureID) (*html.Node, error) {
	n, ok := e.nodes[id]
	if !ok || !e.doc.Contains(n) {
		return nil, fmt.Errorf("%w: %s", ErrFigureNotFound, id)
	}
	return n, nil
}

// FigureInfo describes a figure for clients that cannot see the tree.
type FigureInfo struct {
	ID       FigureID   `json:"id"`
	Src      string     `json:"src"`
	Alt      string     `json:"alt"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	MediaID  string     `json:"media_id,omitempty"`
	Align    Align      `json:"align"`
	Selected bool       `json:"selected"`
	Upload   UploadID   `json:"upload_id,omitempty"`
	State    ImageState `json:"state"`
}

// Figures lists the figures in document order.
func (e *Editor) Figures() []FigureInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	byFigure := make(map[FigureID]*Upload)
	for _, u := range e.uploads {
		byFigure[u.Figure()] = u
	}

	var out []FigureInfo
	for _, fig := range e.doc.Figures() {
		id := e.ids[fig]
		info := FigureInfo{
			ID:       id,
			Align:    alignOf(fig),
			Selected: id != "" && id == e.selected,
		}
		if img := document.ImageOf(fig); img != nil {
			info.Src, _ = document.Attr(img, document.AttrSrc)
			info.Alt, _ = document.Attr(img, document.AttrAlt)
			info.MediaID, _ = document.Attr(img, document.AttrMediaID)
			info.Width = document.DisplayWidth(img)
			info.Height = document.AttrInt(img, document.AttrHeight)
		}
		if u, ok := byFigure[id]; ok && id != "" {
			info.Upload = u.ID
			info.State = u.State()
		}
		out = append(out, info)
	}
	return out
}

// UploadState returns the lifecycle state of an upload.
func (e *Editor) UploadState(id UploadID) (ImageState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.uploads[id]
	if !ok {
		return StateNone, false
	}
	return u.State(), true
}
