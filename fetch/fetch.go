// Package fetch retrieves resources referenced by documents: images and
// linked stylesheets. Sources may be data: URIs, http(s) URLs or local
// paths relative to the document.
package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrTooLarge       = errors.New("resource is too large")
	ErrRemoteDisabled = errors.New("remote resources are disabled")
	ErrLocalDisabled  = errors.New("local files are disabled")
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultMaxSize   = 20 << 20
	DefaultUserAgent = "hdx"
)

// Options control fetching.
type Options struct {
	Timeout     time.Duration
	MaxSize     int64
	UserAgent   string
	AuthHeader  string // sent as Authorization for http(s) sources
	AllowRemote bool
	NoLocal     bool   // refuse local files, for documents received over network
	BaseDir     string // local paths are resolved against it
	BaseURL     string // relative references of remote documents
	// Files replaces local disk, BaseDir is then slash separated directory
	// inside it. Used for documents read from archives.
	Files       fs.FS
}

// Fetcher loads resources. It is safe for concurrent use.
type Fetcher struct {
	opts   Options
	client *http.Client
	log    *zap.Logger
}

// New creates fetcher, zero options are replaced by defaults.
func New(opts Options, log *zap.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Fetcher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		log:    log.Named("fetch"),
	}
}

// WithClient replaces http client, used by tests.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// Fetch returns resource data.
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if strings.HasPrefix(strings.ToLower(src), "data:") {
		return f.decodeDataURI(src)
	}
	target, remote := f.resolve(src)
	if remote {
		return f.fetchRemote(ctx, target)
	}
	return f.readLocal(target)
}

// FetchStylesheet loads linked stylesheet with byte order mark removed.
func (f *Fetcher) FetchStylesheet(ctx context.Context, href string) ([]byte, error) {
	data, err := f.Fetch(ctx, href)
	if err != nil {
		return nil, fmt.Errorf("unable to load stylesheet %q: %w", href, err)
	}
	// strip UTF-8 BOM
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), nil
}

// Name returns short resource name for placeholders: URL for remote sources,
// bare file name for local ones.
func (f *Fetcher) Name(src string) string {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(strings.ToLower(src), "data:") {
		return "data"
	}
	if target, remote := f.resolve(src); remote {
		return target
	}
	return filepath.Base(src)
}

// resolve returns absolute reference and whether it is remote.
func (f *Fetcher) resolve(src string) (string, bool) {
	if u, err := url.Parse(src); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return u.String(), true
		case "file":
			return u.Path, false
		}
	}
	if f.opts.BaseURL != "" {
		if base, err := url.Parse(f.opts.BaseURL); err == nil {
			if ref, err := url.Parse(src); err == nil {
				return base.ResolveReference(ref).String(), true
			}
		}
	}
	if f.opts.Files != nil {
		if strings.HasPrefix(src, "/") {
			return path.Clean(src[1:]), false
		}
		return path.Join(f.opts.BaseDir, src), false
	}
	if !filepath.IsAbs(src) && f.opts.BaseDir != "" {
		src = filepath.Join(f.opts.BaseDir, filepath.FromSlash(src))
	}
	return src, false
}

func (f *Fetcher) decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(src[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		// tolerate whitespace and missing padding
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, fmt.Errorf("unable to decode data URI: %w", err)
			}
		}
		if int64(len(data)) > f.opts.MaxSize {
			return nil, ErrTooLarge
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("unable to decode data URI: %w", err)
	}
	return []byte(text), nil
}

func (f *Fetcher) readLocal(path string) ([]byte, error) {
	if f.opts.NoLocal {
		return nil, ErrLocalDisabled
	}
	if f.opts.Files != nil {
		return f.readFS(path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, filepath.Base(path))
	}
	if fi.Size() > f.opts.MaxSize {
		return nil, ErrTooLarge
	}
	f.log.Debug("Reading local resource", zap.String("path", path))
	return os.ReadFile(path)
}

func (f *Fetcher) readFS(name string) ([]byte, error) {
	fi, err := fs.Stat(f.opts.Files, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path.Base(name))
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path.Base(name))
	}
	if fi.Size() > f.opts.MaxSize {
		return nil, ErrTooLarge
	}
	f.log.Debug("Reading packed resource", zap.String("path", name))
	return fs.ReadFile(f.opts.Files, name)
}

func (f *Fetcher) fetchRemote(ctx context.Context, target string) ([]byte, error) {
	if !f.opts.AllowRemote {
		return nil, ErrRemoteDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	if f.opts.AuthHeader != "" {
		req.Header.Set("Authorization", f.opts.AuthHeader)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("unable to fetch %s: %s", target, resp.Status)
	case resp.ContentLength > f.opts.MaxSize:
		return nil, ErrTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", target, err)
	}
	if int64(len(data)) > f.opts.MaxSize {
		return nil, ErrTooLarge
	}
	f.log.Debug("Fetched remote resource", zap.String("url", target), zap.Int("size", len(data)), zap.Duration("elapsed", time.Since(start)))
	return data, nil
}
