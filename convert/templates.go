package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"hdx/config"
	"hdx/content"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Title      string
	Language   string
	Format     string // source format: html or markdown
	SourceFile string
	DocID      string
}

func buildValues(c *content.Content, name config.TemplateFieldName, docID string) Values {
	v := Values{
		Context:    string(name),
		Title:      c.Title,
		Format:     c.Format.String(),
		SourceFile: strings.TrimSuffix(filepath.Base(c.SrcName), filepath.Ext(c.SrcName)),
		DocID:      docID,
	}
	if tag := c.Lang; !tag.IsRoot() {
		v.Language = tag.String()
	}
	return v
}

func expandTemplate(c *content.Content, name config.TemplateFieldName, field, docID string) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, buildValues(c, name, docID)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
