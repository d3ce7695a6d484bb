package convert

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"

	"hdx/config"
	"hdx/content"
	"hdx/state"
)

func setupTestEnvForOutputPath(t *testing.T, noDirs bool, transliterate bool, template string) *state.LocalEnv {
	t.Helper()
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Document.FileNameTransliterate = transliterate
	cfg.Document.OutputNameTemplate = template

	env := &state.LocalEnv{
		Log:    logger,
		Cfg:    cfg,
		NoDirs: noDirs,
	}
	return env
}

func setupTestContentForPath(t *testing.T) *content.Content {
	t.Helper()
	return &content.Content{
		SrcName: "report.html",
		Format:  content.FormatHTML,
		Title:   "Quarterly Report",
		Lang:    language.MustParse("en"),
	}
}

func TestBuildOutputPath_SimpleCase_NoDirs(t *testing.T) {
	c := setupTestContentForPath(t)
	env := setupTestEnvForOutputPath(t, true, false, "")

	result := buildOutputPath(c, "pages/team/report.html", "/output", "id", env)
	expected := filepath.Join("/output", "report.docx")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_SimpleCase_WithDirs(t *testing.T) {
	c := setupTestContentForPath(t)
	env := setupTestEnvForOutputPath(t, false, false, "")

	result := buildOutputPath(c, "pages/team/report.html", "/output", "id", env)
	expected := filepath.Join("/output", "pages", "team", "report.docx")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_Markdown(t *testing.T) {
	c := setupTestContentForPath(t)
	env := setupTestEnvForOutputPath(t, true, false, "")

	result := buildOutputPath(c, "notes.v2.md", "/output", "id", env)
	expected := filepath.Join("/output", "notes.v2.docx")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_Transliterate(t *testing.T) {
	c := setupTestContentForPath(t)
	env := setupTestEnvForOutputPath(t, true, true, "")

	result := buildOutputPath(c, "Отчет за год.html", "/output", "id", env)
	expected := filepath.Join("/output", "otchet-za-god.docx")

	if result != expected {
		t.Errorf("buildOutputPath() = %q, want %q", result, expected)
	}
}

func TestBuildOutputPath_Template(t *testing.T) {
	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"title", `{{ .Title }}`, filepath.Join("/output", "Quarterly Report.docx")},
		{"subdirectory", `{{ .Language }}/{{ .SourceFile }}`, filepath.Join("/output", "en", "report.docx")},
		{"extension kept once", `{{ .SourceFile }}.docx`, filepath.Join("/output", "report.docx")},
		{"document id", `{{ .DocID | upper }}`, filepath.Join("/output", "ABC-1.docx")},
		{"broken template falls back", `{{ .Title `, filepath.Join("/output", "report.docx")},
		{"unknown field falls back", `{{ .Author }}`, filepath.Join("/output", "report.docx")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setupTestContentForPath(t)
			env := setupTestEnvForOutputPath(t, true, false, tt.template)

			result := buildOutputPath(c, "report.html", "/output", "abc-1", env)
			if result != tt.expected {
				t.Errorf("buildOutputPath() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestDetermineOutputDir(t *testing.T) {
	env := setupTestEnvForOutputPath(t, true, false, "")
	if got := determineOutputDir("a/b/c.html", "/out", env); got != "/out" {
		t.Errorf("determineOutputDir() with nodirs = %q", got)
	}
	env.NoDirs = false
	if got := determineOutputDir("a/b/c.html", "/out", env); got != filepath.Join("/out", "a", "b") {
		t.Errorf("determineOutputDir() = %q", got)
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
	}{
		{"a/b/c", []string{"a", "b", "c"}},
		{"c", []string{"c"}},
		{"a/b/", []string{"a", "b"}},
		{"a/../b", []string{"a", "b"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := splitAndCleanPath(filepath.FromSlash(tt.path))
			if len(got) != len(tt.expected) {
				t.Fatalf("splitAndCleanPath() = %q, want %q", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("segment %d = %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestAssemblePathWithSubdirs(t *testing.T) {
	tests := []struct {
		name          string
		expandedName  string
		transliterate bool
		expected      string
	}{
		{"simple template", "team/report", false, filepath.Join("/output", "team", "report.docx")},
		{"single level", "report", false, filepath.Join("/output", "report.docx")},
		{"with transliterate", "Команда/Отчет", true, filepath.Join("/output", "komanda", "otchet.docx")},
		{"hidden name", ".report", false, filepath.Join("/output", "report.docx")},
		{"empty", "", false, "/output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnvForOutputPath(t, true, tt.transliterate, "")

			result := assemblePathWithSubdirs("/output", filepath.FromSlash(tt.expandedName), env)
			if result != tt.expected {
				t.Errorf("assemblePathWithSubdirs() = %q, want %q", result, tt.expected)
			}
		})
	}
}
