// Package debug has helpers producing human readable dumps for debug
// reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// Attr is a named value printed on a node line. Empty values are omitted.
type Attr struct {
	Key   string
	Value string
}

// A builds Attr formatting value with %v. Zero numbers, false and empty
// strings produce empty value.
func A(key string, value any) Attr {
	switch v := value.(type) {
	case string:
		return Attr{Key: key, Value: v}
	case bool:
		if !v {
			return Attr{Key: key}
		}
		return Attr{Key: key, Value: "true"}
	case int:
		if v == 0 {
			return Attr{Key: key}
		}
		return Attr{Key: key, Value: strconv.Itoa(v)}
	case float64:
		if v == 0 {
			return Attr{Key: key}
		}
		return Attr{Key: key, Value: strconv.FormatFloat(v, 'f', -1, 64)}
	case fmt.Stringer:
		return Attr{Key: key, Value: v.String()}
	default:
		return Attr{Key: key, Value: fmt.Sprint(v)}
	}
}

// TreeWriter accumulates indented lines, two spaces per level.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{w: &strings.Builder{}}
}

func (tw *TreeWriter) String() string {
	return tw.w.String()
}

func (tw *TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw *TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Node writes label followed by non-empty attributes as key=value. Values
// containing spaces or quotes are quoted.
func (tw *TreeWriter) Node(depth int, label string, attrs ...Attr) {
	tw.indent(depth)
	tw.w.WriteString(label)
	for _, a := range attrs {
		if a.Value == "" {
			continue
		}
		tw.w.WriteByte(' ')
		tw.w.WriteString(a.Key)
		tw.w.WriteByte('=')
		if strings.ContainsAny(a.Value, " \"\t\n=") {
			tw.w.WriteString(strconv.Quote(a.Value))
		} else {
			tw.w.WriteString(a.Value)
		}
	}
	tw.w.WriteByte('\n')
}

func (tw *TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
