package model

import (
	"testing"

	"github.com/mmarkdown/mmark/v2/mast"
	"github.com/mmarkdown/mmark/v2/mast/reference"

	"github.com/debemdeboas/fundacion-cms/internal/util"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"news", KindNews, false},
		{"Event", KindEvent, false},
		{" page ", KindPage, false},
		{"", KindNews, false},
		{"calendar", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKindValid(t *testing.T) {
	if Kind("").Valid() {
		t.Error("Expected empty kind to be invalid")
	}
	for _, k := range []Kind{KindNews, KindEvent, KindPage} {
		if !k.Valid() {
			t.Errorf("Expected %q to be valid", k)
		}
	}
}

func info(title string, series reference.SeriesInfo) *util.FrontMatter {
	return &util.FrontMatter{TitleData: &mast.TitleData{Title: title, SeriesInfo: series}}
}

func TestDocumentGetTitle(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
		want string
	}{
		{
			name: "No Info returns Title field",
			doc:  &Document{Title: "Direct Title"},
			want: "Direct Title",
		},
		{
			name: "Info without title data",
			doc:  &Document{Title: "Direct Title", Info: &util.FrontMatter{}},
			want: "Direct Title",
		},
		{
			name: "Info title wins",
			doc:  &Document{Title: "Direct Title", Info: info("Info Title", reference.SeriesInfo{})},
			want: "Info Title",
		},
		{
			name: "Series is prepended",
			doc: &Document{Title: "Direct Title", Info: info("Taller de lectura",
				reference.SeriesInfo{Name: "Talleres", Value: "3"})},
			want: "[Talleres-3] Taller de lectura",
		},
		{
			name: "Partial series is ignored",
			doc: &Document{Title: "Direct Title", Info: info("Taller de lectura",
				reference.SeriesInfo{Name: "Talleres"})},
			want: "Taller de lectura",
		},
		{
			name: "Empty info title falls back",
			doc: &Document{Title: "Direct Title", Info: info("",
				reference.SeriesInfo{Name: "Talleres", Value: "3"})},
			want: "Direct Title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.GetTitle(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
