// Package render turns Markdown into HTML for documents imported into the CMS.
package render

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"

	"github.com/mmarkdown/mmark/v2/lang"
	"github.com/mmarkdown/mmark/v2/mast"
	"github.com/mmarkdown/mmark/v2/mparser"
	"github.com/mmarkdown/mmark/v2/render/mhtml"

	"github.com/debemdeboas/fundacion-cms/internal/cache"
	"github.com/debemdeboas/fundacion-cms/internal/util"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

const (
	Mmark   = "mmark"
	Classic = "classic"

	DefaultSyntaxTheme = "github"
	UntitledTitle      = "Sin título"
)

var regexCallout = regexp.MustCompile(`//\s*<<(\d+)>>`)

// Result is a rendered document. Info is only set by the mmark renderer.
type Result struct {
	HTML []byte
	Info *mast.TitleData
}

type Renderer struct {
	Kind        string
	SyntaxTheme string

	// Protects the check-render-set operation in RenderCached
	mu       sync.Mutex
	rendered *cache.Cache[string, *Result]
}

// New returns a renderer of the given kind, mmark when empty.
func New(kind, syntaxTheme string) (*Renderer, error) {
	switch kind {
	case "":
		kind = Mmark
	case Mmark, Classic:
	default:
		return nil, fmt.Errorf("unknown markdown renderer %q", kind)
	}
	if syntaxTheme == "" {
		syntaxTheme = DefaultSyntaxTheme
	}
	return &Renderer{
		Kind:        kind,
		SyntaxTheme: syntaxTheme,
		rendered:    cache.NewCache[string, *Result](),
	}, nil
}

func (r *Renderer) Render(md []byte) *Result {
	if r.Kind == Classic {
		return &Result{HTML: RenderMarkdownClassic(md, r.SyntaxTheme)}
	}
	out, info := RenderMarkdownMmark(md, r.SyntaxTheme)
	return &Result{HTML: out, Info: info}
}

// RenderCached renders md once per content hash.
func (r *Renderer) RenderCached(md []byte, contentHash string) *Result {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return r.Render(md)
	}

	if res, ok := r.rendered.Get(contentHash); ok {
		renderLogger.Debug().Str("contentHash", contentHash).Msg("Cache hit for rendered markdown")
		return res
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.rendered.Get(contentHash); ok {
		return res
	}
	renderLogger.Debug().Str("contentHash", contentHash).Msg("Cache miss for rendered markdown")

	res := r.Render(md)
	r.rendered.Set(contentHash, res)
	return res
}

func (r *Renderer) Cached() int {
	return r.rendered.Len()
}

func formatter() *chromahtml.Formatter {
	return chromahtml.New(
		chromahtml.WithClasses(true),
		chromahtml.TabWidth(4),
		chromahtml.WrapLongLines(true),
	)
}

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	style := styles.Get(highlightTheme)

	var buf strings.Builder
	if err := formatter().Format(&buf, style, iterator); err != nil {
		return code
	}

	res := html.UnescapeString(buf.String())
	res = regexCallout.ReplaceAllString(res, "<span class=\"callout\">$1</span>")
	return res
}

var syntaxCSS = cache.NewCache[string, string]()

// SyntaxCSS returns the stylesheet for the classes HighlightCode emits.
func SyntaxCSS(theme string) string {
	css, err := syntaxCSS.GetOrLoad(theme, func() (string, error) {
		return syntaxStylesheet(theme)
	})
	if err != nil {
		renderLogger.Error().Err(err).Str("theme", theme).Msg("Failed to write syntax CSS")
		return ""
	}
	return css
}

func syntaxStylesheet(theme string) (string, error) {
	var buf strings.Builder
	style := styles.Get(theme)

	bg := style.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Themes without a text colour get one that reads on their background.
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	if err := formatter().WriteCSS(&buf, style); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func codeBlockHook(highlightTheme string) func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	return func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
		if code, ok := node.(*ast.CodeBlock); ok && entering {
			var lang string
			if info := code.Info; info != nil {
				lang = string(info)
			}
			highlighted := HighlightCode(string(code.Literal), lang, highlightTheme)
			fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
			return ast.GoToNext, true
		}
		return ast.GoToNext, false
	}
}

func RenderMarkdownClassic(md []byte, highlightTheme string) []byte {
	highlight := codeBlockHook(highlightTheme)

	opts := md_html.RendererOptions{
		Flags:    md_html.CommonFlags | md_html.HrefTargetBlank | md_html.FootnoteReturnLinks,
		Comments: [][]byte{[]byte("//"), []byte("#")},
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if status, ok := highlight(w, node, entering); ok {
				return status, true
			}

			if callout, ok := node.(*ast.Callout); ok && entering {
				fmt.Fprintf(w, "<span class=\"callout\">%s</span>", callout.ID)
				return ast.GoToNext, true
			}

			return ast.GoToNext, false
		},
	}

	doc := parser.NewWithExtensions(
		parser.Tables | parser.FencedCode | parser.Autolink | parser.Strikethrough | parser.SpaceHeadings |
			parser.HeadingIDs | parser.BackslashLineBreak | parser.SuperSubscript | parser.DefinitionLists |
			parser.AutoHeadingIDs | parser.Footnotes | parser.OrderedListStart | parser.Attributes |
			parser.NonBlockingSpace,
	).Parse(md)

	return markdown.Render(doc, md_html.NewRenderer(opts))
}

// RenderMarkdownMmark renders md with the mmark extensions and returns the
// title block, defaulting to an untitled Spanish document.
func RenderMarkdownMmark(md []byte, highlightTheme string) ([]byte, *mast.TitleData) {
	md = markdown.NormalizeNewlines(md)

	p := parser.NewWithExtensions(mparser.Extensions | parser.NoIntraEmphasis)

	init := mparser.NewInitial("")
	var info *mast.TitleData

	p.Opts = parser.Options{
		ParserHook: func(data []byte) (ast.Node, []byte, int) {
			node, data, consumed := mparser.Hook(data)
			if t, ok := node.(*mast.Title); ok {
				info = t.TitleData
			}
			return node, data, consumed
		},
		ReadIncludeFn: init.ReadInclude,
		Flags:         parser.FlagsNone,
	}

	doc := markdown.Parse(md, p)

	mparser.AddIndex(doc)

	if info == nil {
		info = &mast.TitleData{Title: UntitledTitle}
	}
	if info.Language == "" {
		info.Language = util.DefaultLanguage
	}

	mhtmlOpts := mhtml.RendererOptions{
		Language: lang.New(info.Language),
	}

	highlight := codeBlockHook(highlightTheme)
	opts := md_html.RendererOptions{
		Comments: [][]byte{[]byte("//"), []byte("#")},
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if status, ok := highlight(w, node, entering); ok {
				return status, true
			}
			return mhtmlOpts.RenderHook(w, node, entering)
		},
		Flags: md_html.CommonFlags | md_html.FootnoteNoHRTag | md_html.FootnoteReturnLinks,
	}

	return markdown.Render(doc, md_html.NewRenderer(opts)), info
}
