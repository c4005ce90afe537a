package reftable

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"biorempp/internal/tabular"
	"biorempp/pkg/platform/sentinel"
)

// DefaultDelimiter matches the semicolon-separated reference files the
// project ships.
const DefaultDelimiter = ';'

// FileSource reads a delimited file from disk. Files ending in .gz are
// transparently decompressed.
type FileSource struct {
	path  string
	delim rune
}

func NewFileSource(path string, delim rune) *FileSource {
	if delim == 0 {
		delim = DefaultDelimiter
	}
	return &FileSource{path: path, delim: delim}
}

func (s *FileSource) String() string { return "file:" + s.path }

func (s *FileSource) Fetch(ctx context.Context) (*tabular.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("reference file %s: %w", s.path, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("open reference file %s: %w", s.path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(s.path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader for %s: %w", s.path, err)
		}
		defer gr.Close()
		r = gr
	}

	t, err := tabular.ReadDelimited(r, s.delim)
	if err != nil {
		return nil, fmt.Errorf("read reference file %s: %w", s.path, err)
	}
	return t, nil
}
