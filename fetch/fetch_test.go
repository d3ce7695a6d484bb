package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/zap"
)

func TestFetch_DataURI(t *testing.T) {
	f := New(Options{}, zap.NewNop())
	tests := []struct {
		name    string
		src     string
		want    string
		wantErr bool
	}{
		{"base64", "data:image/png;base64,aGVsbG8=", "hello", false},
		{"base64 unpadded", "data:image/png;base64,aGVsbG8", "hello", false},
		{"base64 wrapped", "data:image/png;base64,aGVs\nbG8=", "hello", false},
		{"plain", "data:text/plain,a%20b", "a b", false},
		{"malformed", "data:image/png;base64", "", true},
		{"bad payload", "data:image/png;base64,***", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Fetch(context.Background(), tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetch_Local(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "img"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "img", "a.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	f := New(Options{BaseDir: dir}, zap.NewNop())
	got, err := f.Fetch(context.Background(), "img/a.png")
	if err != nil || string(got) != "png" {
		t.Fatalf("relative path: %q, %v", got, err)
	}
	got, err = f.Fetch(context.Background(), filepath.Join(dir, "img", "a.png"))
	if err != nil || string(got) != "png" {
		t.Fatalf("absolute path: %q, %v", got, err)
	}

	if _, err := f.Fetch(context.Background(), "img/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), "img"); !errors.Is(err, ErrNotFound) {
		t.Errorf("directory must not be read, got %v", err)
	}

	if _, err := New(Options{BaseDir: dir, NoLocal: true}, zap.NewNop()).Fetch(context.Background(), "img/a.png"); !errors.Is(err, ErrLocalDisabled) {
		t.Errorf("expected ErrLocalDisabled, got %v", err)
	}

	small := New(Options{BaseDir: dir, MaxSize: 2}, zap.NewNop())
	if _, err := small.Fetch(context.Background(), "img/a.png"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestFetch_Files(t *testing.T) {
	files := fstest.MapFS{
		"docs/img/a.png": {Data: []byte("png")},
		"logo.png":       {Data: []byte("logo")},
	}
	f := New(Options{Files: files, BaseDir: "docs"}, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		src  string
		want string
		err  error
	}{
		{"img/a.png", "png", nil},
		{"./img/../img/a.png", "png", nil},
		{"../logo.png", "logo", nil},
		{"/logo.png", "logo", nil},
		{"../../etc/passwd", "", ErrNotFound},
		{"img/missing.png", "", ErrNotFound},
		{"img", "", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := f.Fetch(ctx, tt.src)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("Fetch() error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil || string(got) != tt.want {
				t.Errorf("Fetch() = %q, %v", got, err)
			}
		})
	}
}

func TestFetch_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img.png":
			if r.Header.Get("Authorization") != "Bearer x" || r.Header.Get("User-Agent") != "test-agent" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write([]byte("image"))
		case "/big":
			w.Write([]byte(strings.Repeat("x", 64)))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(Options{
		AllowRemote: true,
		AuthHeader:  "Bearer x",
		UserAgent:   "test-agent",
		MaxSize:     32,
		Timeout:     50 * time.Millisecond,
	}, zap.NewNop())

	got, err := f.Fetch(context.Background(), srv.URL+"/img.png")
	if err != nil || string(got) != "image" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/big"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/slow"); err == nil {
		t.Error("expected timeout")
	}

	disabled := New(Options{}, zap.NewNop())
	if _, err := disabled.Fetch(context.Background(), srv.URL+"/img.png"); !errors.Is(err, ErrRemoteDisabled) {
		t.Errorf("expected ErrRemoteDisabled, got %v", err)
	}
}

func TestFetch_BaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	f := New(Options{AllowRemote: true, BaseURL: srv.URL + "/docs/index.html"}, zap.NewNop())
	got, err := f.Fetch(context.Background(), "css/site.css")
	if err != nil || string(got) != "/docs/css/site.css" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestFetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Options{}, zap.NewNop()).Fetch(ctx, "data:,x"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFetchStylesheet(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "s.css"), []byte("\xef\xbb\xbfp{color:red}"), 0644); err != nil {
		t.Fatal(err)
	}
	f := New(Options{BaseDir: dir}, zap.NewNop())
	got, err := f.FetchStylesheet(context.Background(), "s.css")
	if err != nil || string(got) != "p{color:red}" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := f.FetchStylesheet(context.Background(), "none.css"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected wrapped ErrNotFound, got %v", err)
	}
}

func TestName(t *testing.T) {
	f := New(Options{BaseDir: "/docs"}, zap.NewNop())
	tests := []struct {
		src  string
		want string
	}{
		{"https://example.com/a/b.png", "https://example.com/a/b.png"},
		{"images/photo.jpg", "photo.jpg"},
		{"/secret/path/photo.jpg", "photo.jpg"},
		{"data:image/png;base64,AAAA", "data"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := f.Name(tt.src); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}
