package editor

import (
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/debemdeboas/fundacion-cms/internal/document"
)

type Key string

const (
	KeyBackspace  Key = "Backspace"
	KeyDelete     Key = "Delete"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowUp    Key = "ArrowUp"
	KeyArrowRight Key = "ArrowRight"
	KeyArrowDown  Key = "ArrowDown"
)

// HandleKey applies the image behaviour of a key pressed with the caret at
// at. It reports false when the key does not concern an image and should get
// its default text editing behaviour.
//
// Backspace and Delete remove the selected image, or the figure the caret is
// in or next to. Arrow keys with the caret on a figure move the figure one
// sibling backward (left, up) or forward (right, down).
func (e *Editor) HandleKey(at document.Caret, k Key) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	node, offset, err := e.doc.Resolve(at)
	if err != nil {
		node, offset = nil, 0
	} else {
		e.caret = at.Clone()
	}

	switch k {
	case KeyBackspace, KeyDelete:
		fig := e.nodes[e.selected]
		if e.selectedImage() == nil {
			fig = nil
		}
		if fig == nil && node != nil {
			fig = adjacentFigure(node, offset, k == KeyBackspace)
		}
		if fig == nil {
			return false, nil
		}
		e.caret = e.doc.CaretBefore(fig)
		document.Detach(fig)
		e.emit()
		return true, nil

	case KeyArrowLeft, KeyArrowUp, KeyArrowRight, KeyArrowDown:
		var fig *html.Node
		if node != nil {
			fig = document.FigureOf(node)
		}
		if fig == nil {
			return false, nil
		}
		if !moveFigure(fig, k == KeyArrowLeft || k == KeyArrowUp) {
			return true, nil
		}
		if path, ok := e.doc.PathOf(fig); ok {
			e.caret = document.Caret{Path: path}
		}
		e.emit()
		return true, nil
	}
	return false, nil
}

// adjacentFigure finds the figure the caret is inside of, or the one a
// backward or forward deletion would reach.
func adjacentFigure(n *html.Node, offset int, backward bool) *html.Node {
	if fig := document.FigureOf(n); fig != nil {
		return fig
	}

	var candidate *html.Node
	switch {
	case n.Type == html.TextNode && backward && offset == 0:
		candidate = previousAcross(n)
	case n.Type == html.TextNode && !backward && offset == utf8.RuneCountInString(n.Data):
		candidate = nextAcross(n)
	case n.Type == html.ElementNode && backward:
		if c := childAt(n, offset-1); c != nil {
			candidate = c
		} else if offset == 0 {
			candidate = previousAcross(n)
		}
	case n.Type == html.ElementNode && !backward:
		if c := childAt(n, offset); c != nil {
			candidate = c
		} else {
			candidate = nextAcross(n)
		}
	}

	if document.IsFigure(candidate) {
		return candidate
	}
	return nil
}

// previousAcross returns the element before n, climbing out of the blocks n
// starts.
func previousAcross(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if prev := document.PrevElement(p); prev != nil {
			return prev
		}
		if p.PrevSibling != nil {
			return nil
		}
	}
	return nil
}

// nextAcross returns the element after n, climbing out of the blocks n ends.
func nextAcross(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if next := document.NextElement(p); next != nil {
			return next
		}
		if p.NextSibling != nil {
			return nil
		}
	}
	return nil
}

// moveFigure swaps fig with its previous or next element sibling.
func moveFigure(fig *html.Node, backward bool) bool {
	parent := fig.Parent
	if backward {
		prev := document.PrevElement(fig)
		if prev == nil {
			return false
		}
		parent.RemoveChild(fig)
		parent.InsertBefore(fig, prev)
		return true
	}

	next := document.NextElement(fig)
	if next == nil {
		return false
	}
	parent.RemoveChild(fig)
	parent.InsertBefore(fig, next.NextSibling)
	return true
}

func childAt(n *html.Node, idx int) *html.Node {
	if idx < 0 {
		return nil
	}
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if i == idx {
			return c
		}
		i++
	}
	return nil
}
