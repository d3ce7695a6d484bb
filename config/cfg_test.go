package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	doc := cfg.Document

	if !doc.FixHTML || !doc.Images || !doc.Tables || !doc.Styles {
		t.Errorf("conversion toggles must be on by default: %+v", doc)
	}
	if doc.HTMLComments || doc.Sanitize {
		t.Error("comments and sanitizing must be off by default")
	}
	if doc.DefaultStyle != "Normal" || doc.TableStyle != "Table Grid" {
		t.Errorf("styles = %q/%q", doc.DefaultStyle, doc.TableStyle)
	}
	if got := doc.MaxIndentPoints(); got != 396 {
		t.Errorf("MaxIndentPoints() = %v, want 396", got)
	}
	if doc.Fetch.Timeout != 5*time.Second || doc.Fetch.AllowRemote {
		t.Errorf("fetch = %+v", doc.Fetch)
	}
	if !strings.HasPrefix(doc.Fetch.UserAgent, "hdx (") {
		t.Errorf("user agent template was not expanded: %q", doc.Fetch.UserAgent)
	}
	if doc.ImageProcessing.SVGScale != 1 {
		t.Errorf("svg_scale = %v", doc.ImageProcessing.SVGScale)
	}
	if doc.Markdown.HighlightStyle != "github" {
		t.Errorf("highlight_style = %q", doc.Markdown.HighlightStyle)
	}
	if !strings.HasSuffix(cfg.Server.Listen, ":8080") || cfg.Server.MaxBody <= 0 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" || cfg.Logging.FileLogger.Level != "none" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	path := writeConfig(t, `version: 1
document:
  fix_zip: true
  images: false
  style_map:
    note: Intense Quote
  tag_override:
    blockquote: Quote
  max_indent: 3in
  fetch:
    timeout: 250ms
    allow_remote: true
    auth_header: Bearer xyz
  image_processing:
    max_width: 800
  markdown:
    hard_wraps: true
logging:
  console:
    level: debug
reporting:
  destination: report.zip
server:
  listen: localhost:9000
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	doc := cfg.Document
	if !doc.FixZip || doc.Images {
		t.Error("explicit toggles not applied")
	}
	if !doc.Tables {
		t.Error("defaults must survive overlay")
	}
	if doc.StyleMap["note"] != "Intense Quote" || doc.TagOverride["blockquote"] != "Quote" {
		t.Errorf("maps = %v %v", doc.StyleMap, doc.TagOverride)
	}
	if doc.MaxIndentPoints() != 216 {
		t.Errorf("MaxIndentPoints() = %v, want 216", doc.MaxIndentPoints())
	}
	if doc.Fetch.Timeout != 250*time.Millisecond || string(doc.Fetch.AuthHeader) != "Bearer xyz" {
		t.Errorf("fetch = %+v", doc.Fetch)
	}
	if doc.ImageProcessing.MaxWidth != 800 || !doc.Markdown.HardWraps {
		t.Error("sub-sections not applied")
	}
	if cfg.Server.Listen != "localhost:9000" {
		t.Errorf("listen = %q", cfg.Server.Listen)
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\ndocument:\n  fix_zip: true\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"bad version", "version: 2\n"},
		{"bad log level", "version: 1\nlogging:\n  console:\n    level: loud\n"},
		{"bad max indent", "version: 1\ndocument:\n  max_indent: wide\n"},
		{"percent max indent", "version: 1\ndocument:\n  max_indent: 50%\n"},
		{"empty style map value", "version: 1\ndocument:\n  style_map:\n    note: \"\"\n"},
		{"upper case tag override", "version: 1\ndocument:\n  tag_override:\n    P: Quote\n"},
		{"auth without remote", "version: 1\ndocument:\n  fetch:\n    auth_header: Bearer x\n"},
		{"negative svg scale", "version: 1\ndocument:\n  image_processing:\n    svg_scale: -1\n"},
		{"bad listen", "version: 1\nserver:\n  listen: nowhere\n"},
		{"empty default style", "version: 1\ndocument:\n  default_style: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {}
	if _, err := LoadConfiguration("", option); err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, err := unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
	// output name template is expanded per document, not here
	if strings.Contains(string(data), "{{ .OS }}") {
		t.Error("template fields were not expanded")
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Document.Fetch.AllowRemote = true
	cfg.Document.Fetch.AuthHeader = "Bearer hidden"
	cfg.Document.OutputNameTemplate = "{{ .Title }}"

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	out := string(data)
	if strings.Contains(out, "Bearer hidden") || !strings.Contains(out, SecretStringValue) {
		t.Errorf("secret not masked:\n%s", out)
	}
	if !strings.Contains(out, "{{ .Title }}") {
		t.Errorf("output name template lost:\n%s", out)
	}

	// dumped configuration must load back
	back, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("unable to read dump back: %v", err)
	}
	if back.Document.TableStyle != cfg.Document.TableStyle {
		t.Errorf("table_style = %q", back.Document.TableStyle)
	}
}

func TestMaxIndentPoints(t *testing.T) {
	tests := []struct {
		value string
		want  float64
	}{
		{"", 396},
		{"1in", 72},
		{"100px", 75},
		{"garbage", 396},
		{"0", 396},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d := DocumentConfig{MaxIndent: tt.value}
			if got := d.MaxIndentPoints(); got != tt.want {
				t.Errorf("MaxIndentPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report", "report"},
		{"a" + string(os.PathSeparator) + "b", "ab"},
		{"..hidden", "hidden"},
		{"tab\there", "tabhere"},
		{"", "_bad_file_name_"},
		{"...", "_bad_file_name_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CleanFileName(tt.in); got != tt.want {
				t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
