package document

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	AttrTempID   = "data-temp-id"
	AttrMediaID  = "data-media-id"
	AttrAlign    = "data-align"
	AttrWidth    = "width"
	AttrHeight   = "height"
	AttrSrc      = "src"
	AttrAlt      = "alt"
	AttrSrcset   = "srcset"
	AttrSizes    = "sizes"
	AttrLoading  = "loading"
	AttrDecoding = "decoding"

	ClassFigure    = "rte-figure"
	ClassUploading = "rte-uploading"
	ClassSelected  = "rte-selected"
	ClassDragging  = "rte-dragging"
	ClassBroken    = "rte-broken"
	ClassCaption   = "rte-caption"

	// DefaultImageStyle is applied to images that carry no inline style.
	DefaultImageStyle = "max-width: 100%; height: auto"
)

func IsFigure(n *html.Node) bool {
	return isElement(n, atom.Figure)
}

func IsImage(n *html.Node) bool {
	return isElement(n, atom.Img)
}

// FigureOf returns the closest figure ancestor of n, n included.
func FigureOf(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if IsFigure(p) {
			return p
		}
	}
	return nil
}

// ImageOf returns the first img inside a figure.
func ImageOf(fig *html.Node) *html.Node {
	var img *html.Node
	walk(fig, func(n *html.Node) bool {
		if IsImage(n) {
			img = n
			return false
		}
		return true
	})
	return img
}

// Captions returns the figcaption children of fig carrying class.
func Captions(fig *html.Node, class string) []*html.Node {
	var out []*html.Node
	for c := fig.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, atom.Figcaption) && HasClass(c, class) {
			out = append(out, c)
		}
	}
	return out
}

// NewFigure wraps img in a fresh figure. img must be detached; nil yields an
// empty figure.
func NewFigure(img *html.Node) *html.Node {
	fig := &html.Node{
		Type:     html.ElementNode,
		Data:     "figure",
		DataAtom: atom.Figure,
		Attr: []html.Attribute{
			{Key: "class", Val: ClassFigure},
			{Key: "draggable", Val: "true"},
		},
	}
	if img != nil {
		fig.AppendChild(img)
	}
	return fig
}

func NewImage(attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "img", DataAtom: atom.Img, Attr: attrs}
}

func NewCaption(class, text string) *html.Node {
	c := &html.Node{
		Type:     html.ElementNode,
		Data:     "figcaption",
		DataAtom: atom.Figcaption,
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
	c.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return c
}

func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func AttrInt(n *html.Node, key string) int {
	v, ok := Attr(n, key)
	if !ok {
		return 0
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return i
}

func SetAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func RemoveAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

func HasClass(n *html.Node, class string) bool {
	v, _ := Attr(n, "class")
	return slices.Contains(strings.Fields(v), class)
}

func AddClass(n *html.Node, class string) {
	if HasClass(n, class) {
		return
	}
	v, _ := Attr(n, "class")
	SetAttr(n, "class", strings.TrimSpace(v+" "+class))
}

func RemoveClass(n *html.Node, class string) {
	v, ok := Attr(n, "class")
	if !ok {
		return
	}
	fields := slices.DeleteFunc(strings.Fields(v), func(f string) bool { return f == class })
	if len(fields) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(fields, " "))
}

// Detach removes n from its parent, if any.
func Detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// PrevElement returns the previous sibling element of n.
func PrevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// NextElement returns the next sibling element of n.
func NextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}
