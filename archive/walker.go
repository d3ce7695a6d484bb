// Package archive lets converter treat zip archive as a tree of source
// documents together with resources they reference.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// ErrUnsafePath is returned for entries which could escape extraction
// directory.
var ErrUnsafePath = errors.New("unsafe path (absolute or contains path traversal)")

// Entry is a single file found in archive.
type Entry struct {
	Archive string    // path of the archive on disk
	File    *zip.File // the entry itself
	Files   fs.FS     // whole archive, entries refer to other files relative to it
}

// Name returns slash separated entry path.
func (e Entry) Name() string {
	return e.File.FileHeader.Name
}

// WalkFunc is called for every file under requested prefix accepted by match.
// If an error is returned, processing stops.
type WalkFunc func(ctx context.Context, e Entry) error

// Walk visits files of the archive located under prefix in natural order of
// their names. Prefix is slash separated path of a directory or a single
// file inside archive, empty prefix selects everything. Directories are never
// visited and match (when not nil) filters files further. Archive with
// absolute or traversing entries is refused as a whole.
func Walk(ctx context.Context, archive, prefix string, match func(*zip.File) bool, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		r.Close()
		return fmt.Errorf("%s: %w", archive, ErrUnsafePath)
	}
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if !isSafePath(f.FileHeader.Name) {
			return fmt.Errorf("zip entry %q: %w", f.FileHeader.Name, ErrUnsafePath)
		}
	}

	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !under(f.FileHeader.Name, prefix) {
			continue
		}
		if match != nil && !match(f) {
			continue
		}
		files = append(files, f)
	}
	sort.SliceStable(files, func(i, j int) bool {
		return natural.Less(files[i].FileHeader.Name, files[j].FileHeader.Name)
	})

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := walkFn(ctx, Entry{Archive: archive, File: f, Files: &r.Reader}); err != nil {
			return err
		}
	}
	return nil
}

// under reports whether name is prefix itself or lies in prefix directory.
func under(name, prefix string) bool {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return true
	}
	return name == prefix || strings.HasPrefix(name, prefix+"/")
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
