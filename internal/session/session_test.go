package session

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/fundacion-cms/internal/db"
	"github.com/debemdeboas/fundacion-cms/internal/document"
	"github.com/debemdeboas/fundacion-cms/internal/editor"
	"github.com/debemdeboas/fundacion-cms/internal/model"
	"github.com/debemdeboas/fundacion-cms/internal/repository"
	"github.com/debemdeboas/fundacion-cms/internal/repository/draft"
	"github.com/debemdeboas/fundacion-cms/internal/sse"
	"github.com/debemdeboas/fundacion-cms/internal/util/compression"
)

type event struct {
	id         model.DocumentID
	name, data string
}

type broadcaster struct {
	mu     sync.Mutex
	events []event
}

func (b *broadcaster) Broadcast(id model.DocumentID, name, data string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event{id, name, data})
}

func (b *broadcaster) named(name string) []event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []event
	for _, e := range b.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	registry *Registry
	docs     *repository.DBDocumentRepository
	media    *repository.DBMediaRepository
	drafts   *draft.MemoryRepository
	events   *broadcaster
	doc      *model.Document
}

const content = `<p>Hola</p><figure><img src="/media/a.png" alt="" data-media-id="m1" width="400" height="300"/></figure><p>Adiós</p>`

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	quiet := zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)
	SetLogger(quiet)
	db.SetLogger(quiet)
	repository.SetLogger(quiet)

	testDB := db.NewSQLite(":memory:")
	if err := testDB.InitDB(); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })

	c, _ := compression.New(compression.Zstd)
	docs := repository.NewDBDocumentRepository(testDB, c)
	if err := docs.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	media := repository.NewDBMediaRepository(testDB)
	if err := media.SaveMedia(&model.Media{ID: "m1", Key: "images/a.png", URL: "/media/a.png"}); err != nil {
		t.Fatalf("SaveMedia: %v", err)
	}

	doc := docs.New(model.KindNews, "Inauguración")
	doc.HTML = content
	if err := docs.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f := &fixture{
		docs:   docs,
		media:  media,
		drafts: draft.NewMemoryRepository(),
		events: &broadcaster{},
		doc:    doc,
	}
	f.registry = NewRegistry(docs, f.drafts, f.events, opts)
	return f
}

func (f *fixture) open(t *testing.T) *Session {
	t.Helper()
	s, err := f.registry.Open(f.doc.ID)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func (f *fixture) exec(t *testing.T, s *Session, cmd Command) *Result {
	t.Helper()
	res, err := s.Execute(cmd)
	if err != nil {
		t.Fatalf("Execute(%s): %v", cmd.Op, err)
	}
	return res
}

func TestOpen(t *testing.T) {
	f := newFixture(t, Options{})

	if _, err := f.registry.Open("missing"); !errors.Is(err, repository.ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}

	s := f.open(t)
	if again := f.open(t); again != s {
		t.Error("Expected Open to return the live session")
	}
	if got, err := f.registry.Get(f.doc.ID); err != nil || got != s {
		t.Errorf("Get: %v", err)
	}
	if figs := s.Editor.Figures(); len(figs) != 1 || figs[0].MediaID != "m1" {
		t.Errorf("Expected one uploaded figure, got %+v", figs)
	}
}

func TestCommandsDriveEditor(t *testing.T) {
	f := newFixture(t, Options{})
	s := f.open(t)

	res := f.exec(t, s, Command{Op: OpSelect, Figure: "fig-1"})
	if res.Controls == nil || res.Controls.MediaID != "m1" || res.Controls.Width != 400 {
		t.Fatalf("Unexpected controls %+v", res.Controls)
	}

	alt := "Corte de cinta"
	f.exec(t, s, Command{Op: OpAlt, Alt: &alt})

	res = f.exec(t, s, Command{Op: OpWidthPct, Percent: 50})
	if res.Width != 600 {
		t.Errorf("Expected 50%% of 1200 = 600, got %d", res.Width)
	}

	res = f.exec(t, s, Command{Op: OpAlign, Align: "right"})
	if res.Align == nil || *res.Align != editor.AlignRight {
		t.Errorf("Expected right alignment, got %v", res.Align)
	}
	res = f.exec(t, s, Command{Op: OpAlign, Align: "none"})
	if res.Align == nil || *res.Align != editor.AlignNone {
		t.Errorf("Expected no alignment, got %v", res.Align)
	}

	if len(res.Figures) != 1 || res.Figures[0].Alt != alt || res.Figures[0].Width != 600 {
		t.Errorf("Unexpected figures %+v", res.Figures)
	}

	changes := f.events.named(sse.EventChange)
	if len(changes) == 0 {
		t.Fatal("Expected change events")
	}
	d, err := f.drafts.GetDraft(f.doc.ID)
	if err != nil {
		t.Fatalf("Expected a draft: %v", err)
	}
	if string(d.Content) != changes[len(changes)-1].data {
		t.Error("Expected the draft to hold the last emitted content")
	}
}

func TestFeaturedImage(t *testing.T) {
	f := newFixture(t, Options{})
	s := f.open(t)

	if _, err := s.Execute(Command{Op: OpFeatured}); !errors.Is(err, editor.ErrNoSelection) {
		t.Errorf("Expected ErrNoSelection, got %v", err)
	}

	f.exec(t, s, Command{Op: OpSelect, Figure: "fig-1"})
	res := f.exec(t, s, Command{Op: OpFeatured})
	if res.Featured == nil || res.Featured.MediaID != "m1" {
		t.Fatalf("Unexpected featured image %+v", res.Featured)
	}

	doc, _ := f.docs.Get(f.doc.ID)
	if doc.FeaturedMediaID != "m1" {
		t.Errorf("Expected featured media m1 on the document, got %q", doc.FeaturedMediaID)
	}
	if ev := f.events.named(sse.EventFeatured); len(ev) != 1 || !strings.Contains(ev[0].data, `"media_id":"m1"`) {
		t.Errorf("Expected one featured event, got %+v", ev)
	}
}

func TestCommandValidation(t *testing.T) {
	f := newFixture(t, Options{})
	s := f.open(t)

	tests := []struct {
		name string
		cmd  Command
	}{
		{"unknown op", Command{Op: "explode"}},
		{"missing op", Command{}},
		{"select without figure", Command{Op: OpSelect}},
		{"key without caret", Command{Op: OpKey, Key: editor.KeyBackspace}},
		{"bad percent", Command{Op: OpWidthPct, Percent: 33}},
		{"bad align", Command{Op: OpAlign, Align: "justify"}},
		{"drag over without rect", Command{Op: OpDragOver, Figure: "fig-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Execute(tt.cmd); !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("Expected ErrInvalidCommand, got %v", err)
			}
		})
	}

	if _, err := s.Execute(Command{Op: OpSelect, Figure: "fig-9"}); !errors.Is(err, editor.ErrFigureNotFound) {
		t.Errorf("Expected ErrFigureNotFound, got %v", err)
	}
}

func TestResizeAndKeys(t *testing.T) {
	f := newFixture(t, Options{})
	s := f.open(t)

	f.exec(t, s, Command{Op: OpSelect, Figure: "fig-1"})

	rect := &editor.Rect{Left: 0, Top: 0, Width: 400, Height: 300}
	res := f.exec(t, s, Command{Op: OpResizeBegin, Figure: "fig-1", Point: &editor.Point{X: 395, Y: 295}, Rect: rect})
	if !res.Handled {
		t.Fatal("Expected resize to begin in the handle corner")
	}
	res = f.exec(t, s, Command{Op: OpResizeMove, X: 495})
	if res.Width != 500 {
		t.Errorf("Expected width 500, got %d", res.Width)
	}
	f.exec(t, s, Command{Op: OpResizeEnd})

	res = f.exec(t, s, Command{Op: OpKey, Key: editor.KeyDelete, Caret: &document.Caret{Path: []int{0}, Offset: 0}})
	if !res.Handled {
		t.Error("Expected Delete to remove the selected image")
	}
	if len(res.Figures) != 0 {
		t.Errorf("Expected no figures left, got %+v", res.Figures)
	}
}

func TestSaveExportsAndDropsDraft(t *testing.T) {
	f := newFixture(t, Options{})
	s := f.open(t)

	f.exec(t, s, Command{Op: OpSelect, Figure: "fig-1"})
	alt := "Foto"
	f.exec(t, s, Command{Op: OpAlt, Alt: &alt})

	doc, err := f.registry.Save(f.doc.ID)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if strings.Contains(doc.HTML, document.ClassSelected) {
		t.Errorf("Expected saved content without the selection marker, got %q", doc.HTML)
	}
	if !strings.Contains(doc.HTML, `alt="Foto"`) {
		t.Errorf("Expected saved content to carry the alt text, got %q", doc.HTML)
	}
	if _, err := f.drafts.GetDraft(f.doc.ID); err == nil {
		t.Error("Expected the draft to be dropped after saving")
	}

	if _, err := f.registry.Save("missing"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}
}

func TestReopenFromDraft(t *testing.T) {
	f := newFixture(t, Options{})
	s := f.open(t)

	f.exec(t, s, Command{Op: OpSelect, Figure: "fig-1"})
	alt := "Sin guardar"
	f.exec(t, s, Command{Op: OpAlt, Alt: &alt})

	if err := f.registry.Close(f.doc.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := f.registry.Close(f.doc.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession closing twice, got %v", err)
	}

	reopened := f.open(t)
	if reopened == s {
		t.Fatal("Expected a new session")
	}
	html := reopened.Editor.HTML()
	if !strings.Contains(html, `alt="Sin guardar"`) {
		t.Errorf("Expected the unsaved draft to be restored, got %q", html)
	}
	if strings.Contains(html, document.ClassSelected) {
		t.Errorf("Expected a fresh session without selection, got %q", html)
	}
}

func TestCloseIdle(t *testing.T) {
	f := newFixture(t, Options{IdleTimeout: time.Minute})
	f.open(t)

	if n := f.registry.CloseIdle(time.Now()); n != 0 {
		t.Errorf("Expected no idle sessions, closed %d", n)
	}
	if n := f.registry.CloseIdle(time.Now().Add(2 * time.Minute)); n != 1 {
		t.Errorf("Expected one idle session closed, got %d", n)
	}
	if _, err := f.registry.Get(f.doc.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected the session to be gone, got %v", err)
	}
}

func TestReload(t *testing.T) {
	f := newFixture(t, Options{})
	s := f.open(t)

	f.doc.HTML = "<p>Actualizado en otra instancia</p>"
	if err := f.docs.Save(f.doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	f.registry.Reload(f.doc.ID)

	if got := s.Editor.HTML(); !strings.Contains(got, "Actualizado en otra instancia") {
		t.Errorf("Expected the session to adopt the new content, got %q", got)
	}
	if len(f.events.named(sse.EventReload)) != 1 {
		t.Error("Expected a reload event")
	}
	if _, err := f.drafts.GetDraft(f.doc.ID); err == nil {
		t.Error("Expected no draft after adopting stored content")
	}

	t.Run("Unsaved changes are kept", func(t *testing.T) {
		s.Editor.Input("<p>Cambios locales</p>")

		f.doc.HTML = "<p>Otra versión</p>"
		f.docs.Save(f.doc)
		f.registry.Reload(f.doc.ID)

		if got := s.Editor.HTML(); !strings.Contains(got, "Cambios locales") {
			t.Errorf("Expected local changes to survive, got %q", got)
		}
	})
}

func TestInsertImage(t *testing.T) {
	uploader := editor.UploaderFunc(func(ctx context.Context, f editor.File) (*editor.UploadResult, error) {
		return &editor.UploadResult{URL: "/media/images/b.png", ID: "m2", Width: 800, Height: 600}, nil
	})
	f := newFixture(t, Options{Editor: editor.Options{Uploader: uploader}})

	file := editor.File{Name: "b.png", ContentType: "image/png", Data: []byte("png")}
	if _, err := f.registry.InsertImage(context.Background(), f.doc.ID, nil, file); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession before opening, got %v", err)
	}

	s := f.open(t)
	u, err := f.registry.InsertImage(context.Background(), f.doc.ID, nil, file)
	if err != nil {
		t.Fatalf("InsertImage: %v", err)
	}

	select {
	case <-u.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Upload did not finish")
	}

	got, err := s.Upload(u.ID)
	if err != nil || got != u {
		t.Fatalf("Expected the upload to be tracked, got %v", err)
	}
	if st := StatusOf(u); st.State != editor.StateUploaded || st.URL != "/media/images/b.png" {
		t.Errorf("Unexpected status %+v", st)
	}
	if _, err := s.Upload("nope"); !errors.Is(err, ErrUploadNotFound) {
		t.Errorf("Expected ErrUploadNotFound, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(f.events.named(sse.EventUpload)) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	ev := f.events.named(sse.EventUpload)
	if len(ev) != 1 || !strings.Contains(ev[0].data, `"state":"uploaded"`) {
		t.Errorf("Expected one upload event, got %+v", ev)
	}
	if !strings.Contains(s.Editor.HTML(), `data-media-id="m2"`) {
		t.Errorf("Expected the uploaded image in the content, got %q", s.Editor.HTML())
	}
}

func TestInsertImageWithoutUploader(t *testing.T) {
	f := newFixture(t, Options{})
	f.open(t)

	_, err := f.registry.InsertImage(context.Background(), f.doc.ID, nil, editor.File{Name: "a.png", Data: []byte("x")})
	if !errors.Is(err, editor.ErrNoUploader) {
		t.Errorf("Expected ErrNoUploader, got %v", err)
	}
	if ev := f.events.named(sse.EventAlert); len(ev) != 1 || ev[0].data != editor.MsgNoUploader {
		t.Errorf("Expected the no-uploader alert, got %+v", ev)
	}
}
