// Package render prints call results and command responses for the
// condacall CLI.
//
// Format selection:
//   - --format always wins; invalid formats are errors
//   - otherwise table on a terminal, json when piped
//
// Results arrive as decoded msgpack values (maps, slices, scalars, byte
// strings) as well as the typed responses of list, sweep and version; the
// table format handles both.
//
// --no-color (or NO_COLOR) only affects relayed output and error banners.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string. The empty string selects the
// default for the output.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTable, FormatYAML, "":
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer writes values in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer writing to the app's writer.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if c.App != nil && c.App.Writer != nil {
		out = c.App.Writer
	}
	if format == "" {
		format = FormatJSON
		if f, ok := out.(*os.File); ok && isTTY(f) {
			format = FormatTable
		}
	}

	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color") || os.Getenv("NO_COLOR") != "",
		out:     out,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Format returns the selected output format.
func (r *Renderer) Format() Format { return r.format }

// NoColor reports whether styling is disabled.
func (r *Renderer) NoColor() bool { return r.noColor }

// Render writes data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

func (r *Renderer) renderTable(data any) error {
	v := indirect(reflect.ValueOf(data))
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	switch {
	case !v.IsValid():
		fmt.Fprintln(w, "null")
	case isBytes(v):
		fmt.Fprintln(w, cell(v))
	case v.Kind() == reflect.Slice || v.Kind() == reflect.Array:
		writeRecords(w, v)
	case v.Kind() == reflect.Map || v.Kind() == reflect.Struct:
		for _, f := range fieldsOf(v) {
			fmt.Fprintf(w, "%s:\t%s\n", f.name, cell(f.value))
		}
	default:
		fmt.Fprintln(w, cell(v))
	}
	return w.Flush()
}

// writeRecords prints a list. Lists of maps or structs become one row per
// element with the union of their keys as columns, in first-seen order;
// other lists are printed as index/value rows.
func writeRecords(w io.Writer, v reflect.Value) {
	if v.Len() == 0 {
		fmt.Fprintln(w, "(no results)")
		return
	}

	rows := make([][]field, v.Len())
	var columns []string
	records := true
	for i := range v.Len() {
		elem := indirect(v.Index(i))
		if !elem.IsValid() || (elem.Kind() != reflect.Map && elem.Kind() != reflect.Struct) {
			records = false
			break
		}
		rows[i] = fieldsOf(elem)
		for _, f := range rows[i] {
			if !slices.Contains(columns, f.name) {
				columns = append(columns, f.name)
			}
		}
	}

	if !records {
		fmt.Fprintln(w, "#\tvalue")
		for i := range v.Len() {
			fmt.Fprintf(w, "%d\t%s\n", i, cell(v.Index(i)))
		}
		return
	}

	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for _, f := range row {
			cells[slices.Index(columns, f.name)] = cell(f.value)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
}

type field struct {
	name  string
	value reflect.Value
}

// fieldsOf lists the exported fields of a struct in declaration order, or
// the entries of a map sorted by key.
func fieldsOf(v reflect.Value) []field {
	var out []field
	if v.Kind() == reflect.Struct {
		t := v.Type()
		for i := range t.NumField() {
			if sf := t.Field(i); sf.IsExported() {
				out = append(out, field{name: fieldName(sf), value: v.Field(i)})
			}
		}
		return out
	}
	for _, key := range v.MapKeys() {
		out = append(out, field{name: fmt.Sprint(key.Interface()), value: v.MapIndex(key)})
	}
	slices.SortFunc(out, func(a, b field) int { return strings.Compare(a.name, b.name) })
	return out
}

// fieldName prefers the json tag name.
func fieldName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return strings.ToLower(f.Name)
}

// cell formats one value for a table cell. Nested collections are
// summarized.
func cell(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return ""
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	if isBytes(v) {
		return fmt.Sprintf("<%d bytes>", v.Len())
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "[]"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "{}"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits())
	default:
		return fmt.Sprint(v.Interface())
	}
}

// indirect unwraps pointers and interfaces. Nil yields the zero Value.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isBytes(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

// isTTY reports whether f is a terminal.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
