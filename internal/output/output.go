// Package output renders scan results as JSON, plain text or YAML and
// writes them next to each other in an output directory.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/mrz"
)

// Format is a result file format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "txt"
	FormatYAML Format = "yaml"
)

// ParseFormats validates a list of format names, dropping duplicates
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool)
	var formats []Format
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FormatJSON, FormatText, FormatYAML:
		case "text":
			f = FormatText
		case "yml":
			f = FormatYAML
		default:
			return nil, fmt.Errorf("unknown output format %q", n)
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	return formats, nil
}

// Render encodes v in the given format. v is an *extract.Record, an
// mrz.Result or anything JSON/YAML can encode.
func Render(f Format, v interface{}) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(v)
	case FormatYAML:
		return yaml.Marshal(v)
	case FormatText:
		return Text(v)
	}
	return nil, fmt.Errorf("unknown output format %q", f)
}

// JSON encodes v with four-space indentation
func JSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Text renders a human-readable report
func Text(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	switch doc := v.(type) {
	case mrz.Result:
		writeMRZ(&buf, doc)
	case *mrz.Result:
		writeMRZ(&buf, *doc)
	case *mrz.Scan:
		writeMRZ(&buf, doc.Result)
	case *extract.Record:
		writeRecord(&buf, doc)
	case extract.Record:
		writeRecord(&buf, &doc)
	default:
		return nil, fmt.Errorf("no text rendering for %T", v)
	}
	return buf.Bytes(), nil
}

func writeMRZ(buf *bytes.Buffer, res mrz.Result) {
	buf.WriteString("Raw MRZ Text:\n")
	fmt.Fprintf(buf, "%q\n\n", res.RawText)
	buf.WriteString("Parsed Data:\n")
	if res.Parsed == nil {
		buf.WriteString("Could not parse MRZ data\n")
		return
	}
	for _, f := range res.Parsed.Fields() {
		fmt.Fprintf(buf, "%s: %s\n", Label(f.Key), f.Value)
	}
}

// RecordFields lists a record's fields in display order. Signature only
// applies to social security cards.
func RecordFields(r *extract.Record) []mrz.Field {
	fields := []mrz.Field{
		{Key: "doc_number", Value: r.DocNumber.String()},
		{Key: "expiry_date", Value: r.ExpiryDate.String()},
		{Key: "sex", Value: r.Sex.String()},
		{Key: "name", Value: r.Name.String()},
		{Key: "region", Value: r.Region.String()},
	}
	if r.Kind == extract.KindSSN {
		fields = append(fields, mrz.Field{Key: "signature", Value: r.Signature.String()})
	}
	return fields
}

func writeRecord(buf *bytes.Buffer, r *extract.Record) {
	fmt.Fprintf(buf, "Document: %s\n\n", Label(string(r.Kind)))
	for _, f := range RecordFields(r) {
		fmt.Fprintf(buf, "%s: %s\n", Label(f.Key), f.Value)
	}
}

// Label turns a snake_case key into Title Case words
func Label(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

// BaseName derives an output file base from a source path
func BaseName(source string, kind extract.Kind) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return string(kind) + "_data"
	}
	return base
}

// Writer writes every configured format for a result
type Writer struct {
	dir     string
	formats []Format
}

// NewWriter creates a writer for dir
func NewWriter(dir string, formats []string) (*Writer, error) {
	parsed, err := ParseFormats(formats)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		parsed = []Format{FormatJSON}
	}
	return &Writer{dir: dir, formats: parsed}, nil
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// Write renders v in every format to <dir>/<base>.<ext> and returns the paths
func (w *Writer) Write(base string, v interface{}) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	paths := make([]string, 0, len(w.formats))
	for _, f := range w.formats {
		data, err := Render(f, v)
		if err != nil {
			return paths, fmt.Errorf("render %s: %w", f, err)
		}
		path := filepath.Join(w.dir, base+"."+string(f))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
