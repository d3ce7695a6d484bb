package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"hdx/css"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	FetchConfig struct {
		Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
		MaxSize     int64         `yaml:"max_size" validate:"gte=0"`
		UserAgent   string        `yaml:"user_agent"`
		AuthHeader  SecretString  `yaml:"auth_header,omitempty"`
		AllowRemote bool          `yaml:"allow_remote"`
	}

	ImageProcessingConfig struct {
		MaxWidth           int     `yaml:"max_width" validate:"gte=0"`
		ConvertUnsupported bool    `yaml:"convert_unsupported"`
		SVGScale           float64 `yaml:"svg_scale" validate:"gte=0.0"`
	}

	MarkdownConfig struct {
		HighlightStyle string `yaml:"highlight_style"`
		HardWraps      bool   `yaml:"hard_wraps"`
	}

	DocumentConfig struct {
		FixHTML      bool `yaml:"fix_html"`
		Sanitize     bool `yaml:"sanitize"`
		Images       bool `yaml:"images"`
		Tables       bool `yaml:"tables"`
		Styles       bool `yaml:"styles"`
		HTMLComments bool `yaml:"html_comments"`

		DefaultStyle   string            `yaml:"default_style" validate:"required"`
		TableStyle     string            `yaml:"table_style"`
		StyleMap       map[string]string `yaml:"style_map"`
		TagOverride    map[string]string `yaml:"tag_override"`
		StylesheetPath string            `yaml:"stylesheet_path" sanitize:"assure_file_access"`

		MaxIndent       string `yaml:"max_indent"`
		SelectiveSheets bool   `yaml:"selective_sheets"`

		FixZip                bool   `yaml:"fix_zip"`
		OutputNameTemplate    string `yaml:"output_name_template"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`

		Fetch           FetchConfig           `yaml:"fetch"`
		ImageProcessing ImageProcessingConfig `yaml:"image_processing"`
		Markdown        MarkdownConfig        `yaml:"markdown"`
	}

	ServerConfig struct {
		Listen      string        `yaml:"listen" validate:"required,hostname_port"`
		MaxBody     int64         `yaml:"max_body" validate:"gt=0"`
		ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
		Server    ServerConfig   `yaml:"server"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

// MaxIndentPoints returns configured length ceiling in points.
func (d *DocumentConfig) MaxIndentPoints() float64 {
	if pt, ok := css.ConvertUnitMax(d.MaxIndent, 0); ok && pt > 0 {
		return pt
	}
	return css.DefaultMaxLength
}

// checkConfig performs checks validator tags cannot express.
func checkConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	doc := &cfg.Document

	if doc.MaxIndent != "" {
		if _, ok := css.ConvertUnitMax(doc.MaxIndent, 0); !ok || strings.HasSuffix(doc.MaxIndent, "%") {
			sl.ReportError(doc.MaxIndent, "max_indent", "MaxIndent", "css_length", "")
		}
	}
	for class, style := range doc.StyleMap {
		if strings.TrimSpace(class) == "" || strings.TrimSpace(style) == "" {
			sl.ReportError(doc.StyleMap, "style_map", "StyleMap", "non_empty_pairs", class)
		}
	}
	for tag, style := range doc.TagOverride {
		if tag != strings.ToLower(tag) || strings.ContainsAny(tag, " \t.#") || tag == "" || strings.TrimSpace(style) == "" {
			sl.ReportError(doc.TagOverride, "tag_override", "TagOverride", "tag_name", tag)
		}
	}
	if doc.Fetch.AuthHeader != "" && !doc.Fetch.AllowRemote {
		sl.ReportError(doc.Fetch.AuthHeader, "auth_header", "AuthHeader", "required_with_allow_remote", "")
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkConfig)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration expands embedded template to get defaults, overlays
// values from the file at path (if any) and validates the result.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare returns expanded default configuration.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

// Dump returns configuration as YAML, secrets are masked.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
