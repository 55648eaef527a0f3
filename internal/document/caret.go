package document

import (
	"errors"
	"slices"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var ErrInvalidCaret = errors.New("caret does not resolve inside the document")

// Caret is an insertion point. Path indexes children starting at the
// container. Offset counts runes when Path ends on a text node and children
// when it ends on an element.
type Caret struct {
	Path   []int `json:"path"`
	Offset int   `json:"offset"`
}

func (c Caret) Clone() Caret {
	return Caret{Path: slices.Clone(c.Path), Offset: c.Offset}
}

func (c Caret) Equal(o Caret) bool {
	return c.Offset == o.Offset && slices.Equal(c.Path, o.Path)
}

// End returns the caret collapsed after the last top-level node.
func (d *Document) End() Caret {
	return Caret{Offset: childCount(d.root)}
}

// Resolve returns the node and offset c designates.
func (d *Document) Resolve(c Caret) (*html.Node, int, error) {
	n := d.root
	for _, idx := range c.Path {
		n = childAt(n, idx)
		if n == nil {
			return nil, 0, ErrInvalidCaret
		}
	}

	limit := childCount(n)
	if n.Type == html.TextNode {
		limit = utf8.RuneCountInString(n.Data)
	}
	if c.Offset < 0 || c.Offset > limit {
		return nil, 0, ErrInvalidCaret
	}
	return n, c.Offset, nil
}

// Valid reports whether c still resolves inside the document.
func (d *Document) Valid(c Caret) bool {
	_, _, err := d.Resolve(c)
	return err == nil
}

// PathOf returns the child-index path from the container to n.
func (d *Document) PathOf(n *html.Node) ([]int, bool) {
	var path []int
	for p := n; p != d.root; p = p.Parent {
		if p == nil || p.Parent == nil {
			return nil, false
		}
		path = append(path, indexOf(p))
	}
	slices.Reverse(path)
	return path, true
}

// CaretAfter returns the caret placed right after n in its parent.
func (d *Document) CaretAfter(n *html.Node) Caret {
	path, ok := d.PathOf(n.Parent)
	if !ok {
		return d.End()
	}
	return Caret{Path: path, Offset: indexOf(n) + 1}
}

// CaretBefore returns the caret placed right before n in its parent.
func (d *Document) CaretBefore(n *html.Node) Caret {
	path, ok := d.PathOf(n.Parent)
	if !ok {
		return d.End()
	}
	return Caret{Path: path, Offset: indexOf(n)}
}

// InsertAt inserts the detached block n at c, splitting text and lifting n
// out of phrasing content as needed. Inserting inside a figure places n
// after that figure. It returns the caret right after n.
func (d *Document) InsertAt(c Caret, n *html.Node) (Caret, error) {
	target, offset, err := d.Resolve(c)
	if err != nil {
		return Caret{}, err
	}

	var parent, before *html.Node
	switch {
	case FigureOf(target) != nil:
		fig := FigureOf(target)
		parent, before = fig.Parent, fig.NextSibling
	case target.Type == html.TextNode:
		parent, before = splitText(target, offset)
	case isVoid(target):
		parent, before = target.Parent, target.NextSibling
	default:
		parent, before = target, childAt(target, offset)
	}

	parent.InsertBefore(n, before)
	Place(n)
	return d.CaretAfter(n), nil
}

// splitText splits t at a rune offset and returns the insertion point
// between the halves. Empty halves are removed.
func splitText(t *html.Node, offset int) (parent, before *html.Node) {
	parent = t.Parent
	runes := []rune(t.Data)
	left, right := string(runes[:offset]), string(runes[offset:])

	before = t.NextSibling
	if right != "" {
		r := &html.Node{Type: html.TextNode, Data: right}
		parent.InsertBefore(r, before)
		before = r
	}
	if left == "" {
		parent.RemoveChild(t)
	} else {
		t.Data = left
	}
	return parent, before
}

func isVoid(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "source", "track", "wbr":
		return true
	}
	return false
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

func childCount(n *html.Node) int {
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		i++
	}
	return i
}

func indexOf(n *html.Node) int {
	i := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		i++
	}
	return i
}
