package document

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements whose content model is phrasing only. A figure placed inside one
// of them would be moved out by the parser on the next round trip.
var phrasingOnly = map[atom.Atom]bool{
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Pre: true, atom.Span: true, atom.A: true,
	atom.Strong: true, atom.Em: true, atom.B: true, atom.I: true, atom.U: true,
	atom.S: true, atom.Small: true, atom.Sub: true, atom.Sup: true, atom.Code: true,
	atom.Label: true, atom.Mark: true, atom.Abbr: true, atom.Cite: true, atom.Q: true,
	atom.Font: true,
}

// Elements that are content even when they hold no text.
var embedded = map[atom.Atom]bool{
	atom.Img: true, atom.Video: true, atom.Audio: true, atom.Iframe: true,
	atom.Hr: true, atom.Input: true, atom.Object: true, atom.Embed: true,
	atom.Figure: true, atom.Canvas: true, atom.Svg: true,
}

// Normalize gives the content the uniform shape the editor operates on:
// every image sits in a figure, unstyled images get DefaultImageStyle and
// inline pixel widths are mirrored into the width attribute.
func (d *Document) Normalize() {
	for _, img := range d.Images() {
		fig := FigureOf(img.Parent)
		if fig == nil {
			parent := img.Parent
			fig = NewFigure(nil)
			parent.InsertBefore(fig, img)
			parent.RemoveChild(img)
			fig.AppendChild(img)
		}
		AddClass(fig, ClassFigure)
		SetAttr(fig, "draggable", "true")
		Place(fig)

		if v, ok := Attr(img, "style"); !ok || strings.TrimSpace(v) == "" {
			SetAttr(img, "style", DefaultImageStyle)
		}
	}
	d.MirrorWidths()
}

// MirrorWidths copies inline pixel widths of images into their width
// attribute.
func (d *Document) MirrorWidths() {
	for _, img := range d.Images() {
		if w, ok := StyleOf(img).PixelWidth(); ok {
			SetAttr(img, AttrWidth, strconv.Itoa(w))
		}
	}
}

// Place lifts n out of any phrasing-only ancestors by splitting the outermost
// of them around n. Blank halves are dropped.
func Place(n *html.Node) {
	var outer *html.Node
	for p := n.Parent; p != nil && p.Type == html.ElementNode && phrasingOnly[p.DataAtom]; p = p.Parent {
		outer = p
	}
	if outer == nil || outer.Parent == nil {
		return
	}

	parent := outer.Parent
	before, after := splitAround(outer, n)
	if before != nil {
		parent.InsertBefore(before, outer)
	}
	parent.InsertBefore(n, outer)
	if after != nil {
		parent.InsertBefore(after, outer)
	}
	parent.RemoveChild(outer)
}

// splitAround empties block into two shallow copies holding the content
// before and after target. target is detached.
func splitAround(block, target *html.Node) (before, after *html.Node) {
	before, after = shallowClone(block), shallowClone(block)
	side := before

	for c := block.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c == target:
			block.RemoveChild(c)
			side = after
		case contains(c, target):
			b, a := splitAround(c, target)
			if b != nil {
				before.AppendChild(b)
			}
			if a != nil {
				after.AppendChild(a)
			}
			block.RemoveChild(c)
			side = after
		default:
			block.RemoveChild(c)
			side.AppendChild(c)
		}
		c = next
	}

	if isBlank(before) {
		before = nil
	}
	if isBlank(after) {
		after = nil
	}
	return before, after
}

func contains(n, target *html.Node) bool {
	for p := target.Parent; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

func isBlank(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return false
			}
		case html.ElementNode:
			if c.DataAtom == atom.Br {
				continue
			}
			if embedded[c.DataAtom] || !isBlank(c) {
				return false
			}
		}
	}
	return true
}

// Export returns the persistence form of the content: placeholders removed,
// editing markers stripped and widths mirrored. The document is not modified.
func (d *Document) Export() string {
	c := d.Clone()
	c.StripPlaceholders(nil)
	walk(c.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			RemoveClass(n, ClassSelected)
			RemoveClass(n, ClassDragging)
		}
		return true
	})
	c.MirrorWidths()
	return c.HTML()
}

// StripPlaceholders removes placeholder figures whose temporary id is not
// kept. A nil keep removes them all. It returns the number removed.
func (d *Document) StripPlaceholders(keep func(tempID string) bool) int {
	removed := 0
	for _, fig := range d.Figures() {
		id, ok := Attr(fig, AttrTempID)
		if !ok {
			continue
		}
		if keep != nil && keep(id) {
			continue
		}
		Detach(fig)
		removed++
	}
	return removed
}

// Clean sanitizes and normalizes s and returns its persistence form.
func Clean(s string) (string, error) {
	d, err := Parse(Sanitize(s))
	if err != nil {
		return "", err
	}
	d.Normalize()
	return d.Export(), nil
}
