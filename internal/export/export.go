// Package export renders result tables for download. Writers are looked up
// by format name in a registry so transport code stays a thin dispatch.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"biorempp/internal/tabular"
	dErrors "biorempp/pkg/domain-errors"
)

// Format names accepted by Write.
const (
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatJSON = "json"
)

// WriterFunc renders a table to w in one concrete format.
type WriterFunc func(w io.Writer, t *tabular.Table) error

var registry = map[string]WriterFunc{
	FormatCSV:  writeCSV,
	FormatTSV:  writeTSV,
	FormatJSON: writeJSON,
}

var contentTypes = map[string]string{
	FormatCSV:  "text/csv; charset=utf-8",
	FormatTSV:  "text/tab-separated-values; charset=utf-8",
	FormatJSON: "application/json; charset=utf-8",
}

// Formats returns the registered format names sorted for stable error
// messages and listings.
func Formats() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ContentType returns the MIME type served for a format, or an empty string
// for unregistered formats.
func ContentType(format string) string {
	return contentTypes[strings.ToLower(strings.TrimSpace(format))]
}

// Write renders t to w in the named format. Unknown formats are an invalid
// input error; write failures surface the underlying error.
func Write(w io.Writer, format string, t *tabular.Table) error {
	if t == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "nil table")
	}
	fn, ok := registry[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidInput,
			"unknown export format %q, supported: %s", format, strings.Join(Formats(), ", "))
	}
	return fn(w, t)
}

func writeCSV(w io.Writer, t *tabular.Table) error { return writeDelimited(w, t, ',') }

func writeTSV(w io.Writer, t *tabular.Table) error { return writeDelimited(w, t, '\t') }

func writeDelimited(w io.Writer, t *tabular.Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(t.Columns()); err != nil {
		return err
	}
	for i := 0; i < t.NumRows(); i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON streams rows as an array of column-keyed objects, preserving
// column order instead of the alphabetical order map marshalling would give.
func writeJSON(w io.Writer, t *tabular.Table) error {
	cols := t.Columns()
	keys := make([][]byte, len(cols))
	for j, c := range cols {
		k, err := json.Marshal(c)
		if err != nil {
			return err
		}
		keys[j] = k
	}

	bw := bufio.NewWriter(w)
	bw.WriteByte('[')
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('{')
		row := t.Row(i)
		for j := range cols {
			if j > 0 {
				bw.WriteByte(',')
			}
			bw.Write(keys[j])
			bw.WriteByte(':')
			v, err := json.Marshal(row[j])
			if err != nil {
				return err
			}
			bw.Write(v)
		}
		bw.WriteByte('}')
	}
	bw.WriteByte(']')
	return bw.Flush()
}
