package document

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func contentPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()

		p.AllowElements("figure", "figcaption")
		p.AllowAttrs("class").Globally()
		p.AllowDataAttributes()
		p.AllowDataURIImages()
		p.AllowAttrs("draggable").Matching(bluemonday.Paragraph).OnElements("figure")
		p.AllowAttrs("src", "alt", "width", "height", "srcset", "sizes", "loading", "decoding").OnElements("img")
		p.AllowStyles(
			"width", "max-width", "height", "float", "display",
			"margin", "margin-left", "margin-right", "opacity", "filter",
		).MatchingHandler(safeStyleValue).OnElements("img", "figure")
		p.AllowStyles("text-align").MatchingHandler(safeStyleValue).OnElements("p", "h1", "h2", "h3", "h4", "h5", "h6")

		policy = p
	})
	return policy
}

func safeStyleValue(v string) bool {
	v = strings.ToLower(v)
	return !strings.Contains(v, "url(") && !strings.Contains(v, "expression") && !strings.Contains(v, "javascript:")
}

// Sanitize removes markup the editor does not accept from untrusted input.
func Sanitize(s string) string {
	return contentPolicy().Sanitize(s)
}
