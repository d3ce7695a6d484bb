package convert

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"hdx/content"
)

// enough to recognize zip local file header
const sniffLen = 262

// isArchiveFile checks if file is a zip archive, both extension and content
// have to agree.
func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	kind, err := filetype.Match(head[:n])
	if err != nil {
		return false, nil
	}
	return kind == matchers.TypeZip, nil
}

// isSourceFile checks if file is convertible document. Only regular
// non-empty files with known extensions qualify.
func isSourceFile(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if !fi.Mode().IsRegular() || fi.Size() == 0 {
		return false, nil
	}
	if _, err := content.DetectFormat(path); err != nil {
		return false, nil
	}
	return true, nil
}

// isSourceInArchive is isSourceFile for archive entries.
func isSourceInArchive(f *zip.File) bool {
	if f.FileInfo().IsDir() || f.UncompressedSize64 == 0 {
		return false
	}
	_, err := content.DetectFormat(f.FileHeader.Name)
	return err == nil
}
