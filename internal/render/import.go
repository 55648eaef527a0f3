package render

import (
	"bytes"

	"github.com/debemdeboas/fundacion-cms/internal/document"
	"github.com/debemdeboas/fundacion-cms/internal/util"
)

// Imported is a Markdown file converted to editor content.
type Imported struct {
	// Info is nil when the file has neither front matter nor a title block.
	Info *util.FrontMatter
	HTML string
}

// Import renders md, taking a leading %%% block as front matter, and returns
// content in the shape the editor stores.
func (r *Renderer) Import(md []byte) (*Imported, error) {
	var info *util.FrontMatter
	body := md

	if bytes.HasPrefix(bytes.TrimLeft(md, "\n \t\r"), []byte("%%%")) {
		var err error
		if info, body, err = util.SplitFrontMatter(md); err != nil {
			return nil, err
		}
	}

	res := r.RenderCached(body, util.ContentHash(md))
	if info == nil && res.Info != nil && res.Info.Title != UntitledTitle {
		info = &util.FrontMatter{TitleData: res.Info}
	}

	out, err := document.Clean(string(res.HTML))
	if err != nil {
		return nil, err
	}
	return &Imported{Info: info, HTML: out}, nil
}
