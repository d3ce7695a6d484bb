package transform

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"hdx/docx"
	"hdx/fetch"
)

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func localFetcher(t *testing.T) (*fetch.Fetcher, string) {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, dir, "pic.png", 40, 20)
	return fetch.New(fetch.Options{BaseDir: dir}, zap.NewNop()), dir
}

func pictures(doc *docx.Document) []*docx.Picture {
	var out []*docx.Picture
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			if pic := r.Picture(); pic != nil {
				out = append(out, pic)
			}
		}
	}
	return out
}

func TestImage_Inserted(t *testing.T) {
	f, _ := localFetcher(t)
	doc, res, err := convertWith(t, `<p><img src="pic.png" alt="red box" width="100"></p>`+
		`<p><img src="pic.png"></p>`+
		`<p><img src="pic.png" style="width: 50%; height: 10pt"></p>`, convertOptions{fetcher: f})
	if err != nil {
		t.Fatal(err)
	}
	if res.Images != 3 || res.Placeholders != 0 {
		t.Fatalf("result = %+v", res)
	}
	pics := pictures(doc)
	if len(pics) != 3 {
		t.Fatalf("pictures = %d", len(pics))
	}
	tests := []struct {
		w, h float64
		name string
	}{
		{75, 37.5, "red box"},
		{30, 15, "Picture 2"},
		{234, 10, "Picture 3"},
	}
	for i, tt := range tests {
		if pics[i].Width != tt.w || pics[i].Height != tt.h || pics[i].Name != tt.name {
			t.Errorf("picture %d = %.1fx%.1f %q, want %.1fx%.1f %q", i, pics[i].Width, pics[i].Height, pics[i].Name, tt.w, tt.h, tt.name)
		}
	}
}

func TestImage_Alignment(t *testing.T) {
	f, _ := localFetcher(t)
	doc, _, err := convertWith(t, `<p><img src="pic.png" style="float: right"></p>`+
		`<div><img src="pic.png" style="display: block; margin: 0 auto"></div>`, convertOptions{fetcher: f})
	if err != nil {
		t.Fatal(err)
	}
	ps := doc.Paragraphs()
	if len(ps) != 2 || ps[0].Props.Align != docx.AlignRight || ps[1].Props.Align != docx.AlignCenter {
		t.Errorf("alignment lost: %d paragraphs", len(ps))
	}
}

func TestImage_Placeholders(t *testing.T) {
	f, _ := localFetcher(t)
	tests := []struct {
		name    string
		markup  string
		fetcher Fetcher
		want    string
	}{
		{"missing file", `<img src="missing.png">`, f, "<image: missing.png>"},
		{"nested path", `<img src="pics/cat.png">`, f, "<image: cat.png>"},
		{"remote disabled", `<img src="http://example.invalid/a.png">`, f, "<image: http://example.invalid/a.png>"},
		{"broken data", `<img src="data:image/png;base64,AAAA">`, f, "<image: data>"},
		{"no fetcher", `<img src="pic.png">`, nil, "<image: pic.png>"},
		{"empty source", `<img>`, f, "<image: >"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, res, err := convertWith(t, "<p>"+tt.markup+"</p>", convertOptions{fetcher: tt.fetcher})
			if err != nil {
				t.Fatal(err)
			}
			if got := doc.Paragraphs()[0].Text(); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
			if res.Placeholders != 1 || res.Images != 0 || len(res.Warnings) == 0 {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestImage_Disabled(t *testing.T) {
	f, _ := localFetcher(t)
	settings := defaultSettings()
	settings.Images = false
	doc, res, err := convertWith(t, `<p>a<img src="pic.png">b</p>`, convertOptions{settings: &settings, fetcher: f})
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Paragraphs()[0].Text(); got != "ab" || res.Images != 0 || res.Placeholders != 0 {
		t.Errorf("text %q, result %+v", got, res)
	}
}

func TestShorten(t *testing.T) {
	long := "data:image/png;base64," + string(bytes.Repeat([]byte("A"), 100))
	if got := shorten(long); len(got) != 64 || got[61:] != "..." {
		t.Errorf("shorten() = %q", got)
	}
	if got := shorten("a.png"); got != "a.png" {
		t.Errorf("shorten() = %q", got)
	}
}
