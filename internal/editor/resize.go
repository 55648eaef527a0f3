package editor

import (
	"math"

	"github.com/debemdeboas/fundacion-cms/internal/document"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a client-side bounding box.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right() && p.Y >= r.Top && p.Y <= r.Bottom()
}

type resizeState struct {
	figure     FigureID
	startX     float64
	startWidth int
}

// BeginResize starts a drag resize when the pointer lands in the
// bottom-right corner of the selected image. rect is the image's box.
func (e *Editor) BeginResize(id FigureID, p Point, rect Rect) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id == "" || id != e.selected {
		return false
	}
	img := e.selectedImage()
	if img == nil || !rect.Contains(p) {
		return false
	}

	handle := float64(e.opts.HandleSize)
	if p.X < rect.Right()-handle || p.Y < rect.Bottom()-handle {
		return false
	}

	start := int(math.Round(rect.Width))
	if start <= 0 {
		start = document.DisplayWidth(img)
	}
	e.resize = &resizeState{figure: id, startX: p.X, startWidth: start}
	return true
}

// MoveResize follows the pointer. The width changes by the horizontal delta
// since BeginResize, never below the minimum image width, and every move is
// emitted.
func (e *Editor) MoveResize(x float64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resize == nil {
		return 0, ErrNotResizing
	}
	fig, err := e.figure(e.resize.figure)
	if err != nil {
		e.resize = nil
		return 0, err
	}
	img := document.ImageOf(fig)

	w := e.resize.startWidth + int(math.Round(x-e.resize.startX))
	w = max(w, e.opts.MinImageWidth)
	document.SetImageWidth(img, w)
	e.emit()
	return w, nil
}

func (e *Editor) EndResize() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.resize != nil
	e.resize = nil
	return active
}

func (e *Editor) Resizing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.resize != nil
}
