package editor

import (
	"fmt"
	"math"

	"golang.org/x/net/html"

	"github.com/debemdeboas/fundacion-cms/internal/document"
)

type Align string

const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
	AlignCenter Align = "center"
)

// WidthPresets are the percentages of the editor width offered next to the
// width slider.
var WidthPresets = []int{25, 50, 75, 100}

// ImageControls seeds the floating panel of the selected image.
type ImageControls struct {
	Figure  FigureID `json:"figure"`
	Src     string   `json:"src"`
	Alt     string   `json:"alt"`
	Width   int      `json:"width"`
	Align   Align    `json:"align"`
	MediaID string   `json:"media_id,omitempty"`
}

// FeaturedImage is handed to OnFeatured. MediaID is empty for images that
// were not uploaded through the pipeline.
type FeaturedImage struct {
	Figure  FigureID `json:"figure"`
	MediaID string   `json:"media_id,omitempty"`
	Src     string   `json:"src"`
	Alt     string   `json:"alt"`
}

// Select makes the image of figure id the only selected one.
func (e *Editor) Select(id FigureID) (ImageControls, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.figure(id); err != nil {
		return ImageControls{}, err
	}
	e.selectLocked(id)
	e.emit()
	return e.controls(), nil
}

// Deselect clears the selection, as a click outside any image does.
func (e *Editor) Deselect() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected == "" {
		return
	}
	e.clearSelection()
	e.emit()
}

// Selected returns the controls of the selected image.
func (e *Editor) Selected() (ImageControls, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selectedImage() == nil {
		return ImageControls{}, false
	}
	return e.controls(), true
}

func (e *Editor) selectLocked(id FigureID) {
	e.clearSelection()
	fig, ok := e.nodes[id]
	if !ok {
		return
	}
	if img := document.ImageOf(fig); img != nil {
		document.AddClass(img, document.ClassSelected)
		e.selected = id
	}
}

func (e *Editor) clearSelection() {
	for _, img := range e.doc.Images() {
		document.RemoveClass(img, document.ClassSelected)
	}
	e.selected = ""
}

func (e *Editor) selectedImage() *html.Node {
	if e.selected == "" {
		return nil
	}
	fig, err := e.figure(e.selected)
	if err != nil {
		return nil
	}
	return document.ImageOf(fig)
}

func (e *Editor) controls() ImageControls {
	fig := e.nodes[e.selected]
	img := document.ImageOf(fig)

	c := ImageControls{Figure: e.selected, Align: alignOf(fig)}
	c.Src, _ = document.Attr(img, document.AttrSrc)
	c.Alt, _ = document.Attr(img, document.AttrAlt)
	c.MediaID, _ = document.Attr(img, document.AttrMediaID)
	c.Width = document.DisplayWidth(img)
	return c
}

func (e *Editor) requireSelection() (*html.Node, error) {
	img := e.selectedImage()
	if img == nil {
		return nil, ErrNoSelection
	}
	return img, nil
}

func (e *Editor) SetAlt(alt string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	img, err := e.requireSelection()
	if err != nil {
		return err
	}
	document.SetAttr(img, document.AttrAlt, alt)
	e.emit()
	return nil
}

// SetWidth sets the selected image width in pixels, clamped between the
// minimum image width and the editor width. It returns the applied width.
func (e *Editor) SetWidth(px int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	img, err := e.requireSelection()
	if err != nil {
		return 0, err
	}
	w := min(max(px, e.opts.MinImageWidth), e.opts.Width)
	document.SetImageWidth(img, w)
	e.emit()
	return w, nil
}

// SetWidthPercent sizes the selected image to a share of the editor width.
func (e *Editor) SetWidthPercent(percent int) (int, error) {
	if percent <= 0 || percent > 100 {
		return 0, fmt.Errorf("%w: %d%%", ErrInvalidWidth, percent)
	}
	px := int(math.Round(float64(e.opts.Width) * float64(percent) / 100))
	return e.SetWidth(px)
}

// SetAlign floats the selected figure.
func (e *Editor) SetAlign(a Align) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireSelection(); err != nil {
		return err
	}
	applyAlign(e.nodes[e.selected], a)
	e.emit()
	return nil
}

// ToggleAlign cycles the selected figure through none, left and right.
func (e *Editor) ToggleAlign() (Align, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.requireSelection(); err != nil {
		return AlignNone, err
	}
	fig := e.nodes[e.selected]

	next := AlignLeft
	switch alignOf(fig) {
	case AlignLeft:
		next = AlignRight
	case AlignRight:
		next = AlignNone
	}
	applyAlign(fig, next)
	e.emit()
	return next, nil
}

// MarkFeatured hands the selected image to OnFeatured.
func (e *Editor) MarkFeatured() (FeaturedImage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	img, err := e.requireSelection()
	if err != nil {
		return FeaturedImage{}, err
	}

	f := FeaturedImage{Figure: e.selected}
	f.MediaID, _ = document.Attr(img, document.AttrMediaID)
	f.Src, _ = document.Attr(img, document.AttrSrc)
	f.Alt, _ = document.Attr(img, document.AttrAlt)

	if e.opts.OnFeatured != nil {
		e.opts.OnFeatured(f)
	}
	return f, nil
}

func alignOf(fig *html.Node) Align {
	if fig == nil {
		return AlignNone
	}
	v, _ := document.Attr(fig, document.AttrAlign)
	switch Align(v) {
	case AlignLeft, AlignRight, AlignCenter:
		return Align(v)
	}
	return AlignNone
}

func applyAlign(fig *html.Node, a Align) {
	st := document.StyleOf(fig)
	for _, p := range []string{"float", "margin", "margin-left", "margin-right", "display"} {
		st.Remove(p)
	}

	switch a {
	case AlignLeft:
		st.Set("float", "left")
		st.Set("margin", "0 1em 1em 0")
	case AlignRight:
		st.Set("float", "right")
		st.Set("margin", "0 0 1em 1em")
	case AlignCenter:
		st.Set("margin-left", "auto")
		st.Set("margin-right", "auto")
	}
	st.Apply(fig)

	if a == AlignNone {
		document.RemoveAttr(fig, document.AttrAlign)
		return
	}
	document.SetAttr(fig, document.AttrAlign, string(a))
}
