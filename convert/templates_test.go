package convert

import (
	"strings"
	"testing"

	"golang.org/x/text/language"

	"hdx/config"
	"hdx/content"
)

func setupTestContentForTemplate(t *testing.T, title, lang, srcName string) *content.Content {
	t.Helper()
	c := &content.Content{
		SrcName: srcName,
		Format:  content.FormatHTML,
		Title:   title,
	}
	if lang != "" {
		c.Lang = language.MustParse(lang)
	}
	return c
}

func TestExpandTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		title    string
		lang     string
		src      string
		expected string
	}{
		{"simple text", "static-name", "", "", "a.html", "static-name"},
		{"title", "{{ .Title }}", "Annual Report", "", "a.html", "Annual Report"},
		{"language", "{{ .Language }}", "", "pt-BR", "a.html", "pt-BR"},
		{"no language", "[{{ .Language }}]", "", "", "a.html", "[]"},
		{"source file", "{{ .SourceFile }}", "", "", "dir/page.htm", "page"},
		{"format", "{{ .Format }}", "", "", "a.html", "html"},
		{"context", "{{ .Context }}", "", "", "a.html", string(config.OutputNameTemplateFieldName)},
		{"document id", "{{ .DocID }}", "", "", "a.html", "doc-42"},
		{"sprig functions", `{{ .Title | lower | replace " " "_" }}`, "Annual Report", "", "a.html", "annual_report"},
		{"default", `{{ .Title | default .SourceFile }}`, "", "", "notes.md", "notes"},
		{"path separators", "{{ .Language }}/{{ .Title }}", "T", "de", "a.html", "de/T"},
		{"trunc", `{{ trunc 3 .Title }}`, "Annual", "", "a.html", "Ann"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupTestContentForTemplate(t, tt.title, tt.lang, tt.src)
			got, err := expandTemplate(c, config.OutputNameTemplateFieldName, tt.template, "doc-42")
			if err != nil {
				t.Fatalf("expandTemplate() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("expandTemplate() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExpandTemplate_MarkdownFormat(t *testing.T) {
	c := setupTestContentForTemplate(t, "", "", "readme.md")
	c.Format = content.FormatMarkdown
	got, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .Format }}-{{ .SourceFile }}", "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "markdown-readme" {
		t.Errorf("expandTemplate() = %q", got)
	}
}

func TestExpandTemplate_InvalidTemplate(t *testing.T) {
	c := setupTestContentForTemplate(t, "", "", "a.html")
	_, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .Title", "")
	if err == nil || !strings.Contains(err.Error(), string(config.OutputNameTemplateFieldName)) {
		t.Errorf("expected parse error naming the field, got %v", err)
	}
}

func TestExpandTemplate_InvalidField(t *testing.T) {
	c := setupTestContentForTemplate(t, "", "", "a.html")
	if _, err := expandTemplate(c, config.OutputNameTemplateFieldName, "{{ .Authors }}", ""); err == nil {
		t.Error("expected execution error for unknown field")
	}
}
