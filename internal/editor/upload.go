package editor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/debemdeboas/fundacion-cms/internal/document"
)

// Responsive variant names and the widths they are produced at.
const (
	VariantMD = "md"
	VariantLG = "lg"

	DefaultSizes = "(max-width: 768px) 100vw, 75vw"
)

var VariantWidths = map[string]int{
	VariantMD: 768,
	VariantLG: 1280,
}

var variantOrder = []string{VariantMD, VariantLG}

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadResult is what an Uploader reports for a stored image. Only URL is
// required.
type UploadResult struct {
	URL      string            `json:"url"`
	ID       string            `json:"id,omitempty"`
	Width    int               `json:"width,omitempty"`
	Height   int               `json:"height,omitempty"`
	Variants map[string]string `json:"variants,omitempty"`
}

type Uploader interface {
	Upload(ctx context.Context, f File) (*UploadResult, error)
}

type UploaderFunc func(ctx context.Context, f File) (*UploadResult, error)

func (fn UploaderFunc) Upload(ctx context.Context, f File) (*UploadResult, error) {
	return fn(ctx, f)
}

// GuardFunc may veto an upload before anything is inserted. A nil error lets
// the upload proceed; otherwise the error message is shown to the user.
type GuardFunc func(ctx context.Context, f File) error

// Prober loads an image to learn its natural size. An error means the image
// cannot be displayed.
type Prober interface {
	Probe(ctx context.Context, url string) (width, height int, err error)
}

// InsertImage runs the upload pipeline for f. A placeholder is inserted at
// the caret before InsertImage returns; the upload itself continues in the
// background and is tracked by the returned Upload.
func (e *Editor) InsertImage(ctx context.Context, at document.Caret, f File) (*Upload, error) {
	if e.opts.Uploader == nil {
		e.mu.Lock()
		e.alert(MsgNoUploader)
		e.mu.Unlock()
		return nil, ErrNoUploader
	}

	if e.opts.Guard != nil {
		if err := e.opts.Guard(ctx, f); err != nil {
			msg := err.Error()
			if msg == "" {
				msg = MsgUploadVetoed
			}
			e.mu.Lock()
			e.alert(msg)
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrUploadVetoed, msg)
		}
	}

	u := newUpload(UploadID(uuid.New().String()))

	e.mu.Lock()
	caret := e.restore(at)
	fig := placeholder(u.ID, f)
	next, err := e.doc.InsertAt(caret, fig)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.caret = next
	e.uploads[u.ID] = u
	e.sync()
	u.setFigure(e.ids[fig])
	// A fresh upload always starts from none.
	_ = u.transition(StatePending)
	e.emit()
	e.mu.Unlock()

	editorLogger.Debug().Str("upload_id", string(u.ID)).Str("file", f.Name).Msg("Upload started")

	go e.run(ctx, u, f)
	return u, nil
}

func (e *Editor) run(ctx context.Context, u *Upload, f File) {
	defer close(u.done)

	res, err := e.opts.Uploader.Upload(ctx, f)
	if err == nil && (res == nil || res.URL == "") {
		err = ErrEmptyResult
	}
	if err != nil {
		e.fail(u, err)
		return
	}

	width, height := res.Width, res.Height
	var loadErr error
	if e.opts.Prober != nil {
		w, h, err := e.opts.Prober.Probe(ctx, res.URL)
		if err != nil {
			loadErr = err
		} else if width <= 0 || height <= 0 {
			width, height = w, h
		}
	}

	e.finish(u, res, width, height)

	if loadErr != nil {
		e.markBroken(u, res.URL, loadErr)
	}
}

func (e *Editor) finish(u *Upload, res *UploadResult, width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u.mu.Lock()
	u.result = res
	u.mu.Unlock()

	if err := u.transition(StateUploaded); err != nil {
		editorLogger.Error().Err(err).Str("upload_id", string(u.ID)).Msg("Upload finished out of order")
		return
	}

	fig := e.placeholderFigure(u.ID)
	if fig == nil {
		editorLogger.Warn().Str("upload_id", string(u.ID)).Msg("Placeholder removed before upload finished")
		return
	}
	img := document.ImageOf(fig)
	if img == nil {
		img = document.NewImage()
		fig.InsertBefore(img, fig.FirstChild)
	}

	document.RemoveAttr(fig, document.AttrTempID)
	document.RemoveAttr(img, document.AttrTempID)
	document.RemoveClass(fig, document.ClassUploading)
	for _, c := range document.Captions(fig, document.ClassUploading) {
		document.Detach(c)
	}

	st := document.StyleOf(img)
	st.Remove("opacity")
	st.Apply(img)

	document.SetAttr(img, document.AttrSrc, res.URL)
	if res.ID != "" {
		document.SetAttr(img, document.AttrMediaID, res.ID)
	}
	if width > 0 && height > 0 {
		document.SetAttr(img, document.AttrWidth, strconv.Itoa(width))
		document.SetAttr(img, document.AttrHeight, strconv.Itoa(height))
	}
	document.SetAttr(img, document.AttrLoading, "lazy")
	document.SetAttr(img, document.AttrDecoding, "async")

	if srcset := Srcset(res.URL, width, res.Variants); srcset != "" {
		document.SetAttr(img, document.AttrSrcset, srcset)
		document.SetAttr(img, document.AttrSizes, DefaultSizes)
	}

	if _, ok := st.PixelWidth(); !ok {
		if w := e.initialWidth(width); w > 0 {
			document.SetImageWidth(img, w)
		}
	}

	e.sync()
	id := e.ids[fig]
	u.setFigure(id)
	e.selectLocked(id)
	if e.opts.OnFocusAlt != nil {
		e.opts.OnFocusAlt(id)
	}

	editorLogger.Info().
		Str("upload_id", string(u.ID)).
		Str("url", res.URL).
		Int("width", width).
		Int("height", height).
		Msg("Upload finished")

	e.emit()
}

func (e *Editor) fail(u *Upload, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	u.mu.Lock()
	u.err = err
	u.mu.Unlock()

	if terr := u.transition(StateFailed); terr != nil {
		editorLogger.Error().Err(terr).Str("upload_id", string(u.ID)).Msg("Upload failed out of order")
	}

	editorLogger.Warn().Err(err).Str("upload_id", string(u.ID)).Msg("Upload failed")

	if fig := e.placeholderFigure(u.ID); fig != nil {
		document.Detach(fig)
		e.emit()
	}

	msg := err.Error()
	if msg == "" {
		msg = MsgUploadFailed
	}
	e.alert(msg)
}

// markBroken flags an uploaded image whose final URL cannot be loaded. The
// image stays in the content.
func (e *Editor) markBroken(u *Upload, url string, cause error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fig, err := e.figure(u.Figure())
	if err != nil {
		fig = e.figureBySrc(url)
	}
	if fig == nil {
		return
	}
	if err := u.transition(StateBroken); err != nil {
		editorLogger.Error().Err(err).Str("upload_id", string(u.ID)).Msg("Cannot mark image broken")
		return
	}

	editorLogger.Warn().Err(cause).Str("url", url).Msg("Uploaded image failed to load")

	if img := document.ImageOf(fig); img != nil {
		st := document.StyleOf(img)
		st.Set("opacity", "0.5")
		st.Set("filter", "grayscale(1)")
		st.Apply(img)
	}
	document.AddClass(fig, document.ClassBroken)
	if len(document.Captions(fig, document.ClassBroken)) == 0 {
		fig.AppendChild(document.NewCaption(document.ClassBroken, MsgLoadFailed))
	}
	e.emit()
}

func (e *Editor) placeholderFigure(id UploadID) *html.Node {
	n := e.doc.FindByAttr(document.AttrTempID, string(id))
	if n == nil {
		return nil
	}
	return document.FigureOf(n)
}

func (e *Editor) figureBySrc(src string) *html.Node {
	for _, img := range e.doc.Images() {
		if v, _ := document.Attr(img, document.AttrSrc); v == src {
			return document.FigureOf(img)
		}
	}
	return nil
}

// initialWidth is the display width of a freshly uploaded image:
// min(natural, 75% of the editor).
func (e *Editor) initialWidth(natural int) int {
	limit := int(math.Round(float64(e.opts.Width) * 0.75))
	if natural <= 0 {
		return 0
	}
	return min(natural, limit)
}

// Srcset builds a srcset attribute from responsive variants. The original at
// src is listed with its natural width when it is wider than every variant.
func Srcset(src string, natural int, variants map[string]string) string {
	var parts []string
	widest := 0
	for _, name := range variantOrder {
		if url := variants[name]; url != "" {
			parts = append(parts, url+" "+strconv.Itoa(VariantWidths[name])+"w")
			widest = max(widest, VariantWidths[name])
		}
	}
	if len(parts) > 0 && src != "" && natural > widest {
		parts = append(parts, src+" "+strconv.Itoa(natural)+"w")
	}
	return strings.Join(parts, ", ")
}

func placeholder(id UploadID, f File) *html.Node {
	img := document.NewImage(
		html.Attribute{Key: document.AttrSrc, Val: dataURL(f)},
		html.Attribute{Key: document.AttrAlt, Val: ""},
		html.Attribute{Key: document.AttrTempID, Val: string(id)},
		html.Attribute{Key: "style", Val: "opacity: 0.5; " + document.DefaultImageStyle},
	)
	fig := document.NewFigure(img)
	document.SetAttr(fig, document.AttrTempID, string(id))
	document.AddClass(fig, document.ClassUploading)
	fig.AppendChild(document.NewCaption(document.ClassUploading, MsgUploading))
	return fig
}

func dataURL(f File) string {
	ct := f.ContentType
	if ct == "" {
		ct = http.DetectContentType(f.Data)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// IsVetoed reports whether err comes from a guard rejecting an upload.
func IsVetoed(err error) bool {
	return errors.Is(err, ErrUploadVetoed)
}
