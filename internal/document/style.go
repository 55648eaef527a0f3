package document

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/gorilla/css/scanner"
	"golang.org/x/net/html"
)

var importantSuffix = regexp.MustCompile(`(?i)\s*!\s*important\s*$`)

// Style is the ordered list of declarations of an inline style attribute.
type Style struct {
	decls []*css.Declaration
}

// ParseStyle parses an inline style attribute. A declaration without a value
// is skipped; input the tokenizer rejects yields an empty style.
func ParseStyle(s string) *Style {
	st := &Style{}
	if strings.TrimSpace(s) == "" {
		return st
	}

	var property, value strings.Builder
	inValue := false
	flush := func() {
		if inValue {
			st.Set(property.String(), value.String())
		}
		property.Reset()
		value.Reset()
		inValue = false
	}

	sc := scanner.New(s)
	for {
		tok := sc.Next()
		switch {
		case tok.Type == scanner.TokenError:
			return &Style{}
		case tok.Type == scanner.TokenEOF:
			flush()
			return st
		case tok.Type == scanner.TokenComment:
		case tok.Type == scanner.TokenChar && tok.Value == ";":
			flush()
		case tok.Type == scanner.TokenChar && tok.Value == ":" && !inValue:
			inValue = true
		case tok.Type == scanner.TokenS:
			if inValue && value.Len() > 0 && !strings.HasSuffix(value.String(), " ") {
				value.WriteByte(' ')
			}
		case inValue:
			value.WriteString(tok.Value)
		default:
			property.WriteString(tok.Value)
		}
	}
}

func StyleOf(n *html.Node) *Style {
	v, _ := Attr(n, "style")
	return ParseStyle(v)
}

// Apply writes the style back to n, dropping the attribute when empty.
func (s *Style) Apply(n *html.Node) {
	if len(s.decls) == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", s.String())
}

// Get returns the value of property without its !important flag.
func (s *Style) Get(property string) string {
	property = strings.ToLower(property)
	for _, d := range s.decls {
		if d.Property == property {
			return d.Value
		}
	}
	return ""
}

// Set replaces the value of property, or appends it. A trailing !important
// in value is kept as the declaration's flag; an empty value or property is
// ignored.
func (s *Style) Set(property, value string) {
	property = strings.ToLower(strings.TrimSpace(property))
	important := importantSuffix.MatchString(value)
	value = strings.TrimSpace(importantSuffix.ReplaceAllString(value, ""))
	if property == "" || value == "" {
		return
	}
	for _, d := range s.decls {
		if d.Property == property {
			d.Value = value
			d.Important = important
			return
		}
	}
	s.decls = append(s.decls, &css.Declaration{Property: property, Value: value, Important: important})
}

func (s *Style) Remove(property string) {
	property = strings.ToLower(property)
	out := s.decls[:0]
	for _, d := range s.decls {
		if d.Property != property {
			out = append(out, d)
		}
	}
	s.decls = out
}

func (s *Style) Empty() bool {
	return len(s.decls) == 0
}

func (s *Style) String() string {
	parts := make([]string, 0, len(s.decls))
	for _, d := range s.decls {
		parts = append(parts, strings.TrimSuffix(d.String(), ";"))
	}
	return strings.Join(parts, "; ")
}

// PixelWidth returns the width declaration in pixels, if it is one.
func (s *Style) PixelWidth() (int, bool) {
	return parsePixels(s.Get("width"))
}

func parsePixels(v string) (int, bool) {
	v = strings.TrimSpace(strings.ToLower(v))
	if !strings.HasSuffix(v, "px") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "px")), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(math.Round(f)), true
}

// SetImageWidth sets the inline pixel width of img and mirrors it into the
// width attribute.
func SetImageWidth(img *html.Node, px int) {
	st := StyleOf(img)
	st.Set("width", strconv.Itoa(px)+"px")
	st.Apply(img)
	SetAttr(img, AttrWidth, strconv.Itoa(px))
}

// DisplayWidth is the width the image is shown at: the inline pixel width,
// falling back to the width attribute.
func DisplayWidth(img *html.Node) int {
	if w, ok := StyleOf(img).PixelWidth(); ok {
		return w
	}
	return AttrInt(img, AttrWidth)
}
