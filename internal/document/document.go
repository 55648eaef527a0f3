// Package document holds the HTML content model edited by the rich-text editor.
//
// A Document is a fragment of body content parsed under a synthetic container
// node. Figures wrap every image so selection, resizing and reordering always
// target the same shape.
package document

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Document struct {
	root *html.Node
}

func New() *Document {
	return &Document{root: newContainer()}
}

func newContainer() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}

// Parse parses s as body content. The result is not normalized.
func Parse(s string) (*Document, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

	nodes, err := html.ParseFragment(strings.NewReader(s), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}

	d := New()
	for _, n := range nodes {
		d.root.AppendChild(n)
	}
	return d, nil
}

// Root returns the synthetic container. Its children are the content.
func (d *Document) Root() *html.Node {
	return d.root
}

func (d *Document) HTML() string {
	var b strings.Builder
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		// Rendering into a strings.Builder cannot fail.
		_ = html.Render(&b, c)
	}
	return b.String()
}

func (d *Document) Clone() *Document {
	c := New()
	for n := d.root.FirstChild; n != nil; n = n.NextSibling {
		c.root.AppendChild(cloneTree(n))
	}
	return c
}

// Contains reports whether n is attached below the container.
func (d *Document) Contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// Images returns every img element in document order.
func (d *Document) Images() []*html.Node {
	return d.findAll(func(n *html.Node) bool { return isElement(n, atom.Img) })
}

// Figures returns every figure element in document order.
func (d *Document) Figures() []*html.Node {
	return d.findAll(IsFigure)
}

// FindByAttr returns the first element carrying key=value.
func (d *Document) FindByAttr(key, value string) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := Attr(n, key); ok && v == value {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

func (d *Document) findAll(match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	walk(d.root, func(n *html.Node) bool {
		if n != d.root && match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// walk visits n and its descendants in document order until visit returns false.
// Children are captured before visiting so visit may detach the node it sees.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if !walk(c, visit) {
			return false
		}
		c = next
	}
	return true
}

func cloneTree(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneTree(child))
	}
	return c
}

func shallowClone(n *html.Node) *html.Node {
	return &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == a
}
