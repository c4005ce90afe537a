package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadDelimited reads a delimited file with a header row into a Table.
// A UTF-8 byte order mark is stripped, header names are normalized, and
// cell values are trimmed. Every record must match the header arity.
func ReadDelimited(r io.Reader, delim rune) (*Table, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t, err := New(header)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", t.NumRows()+2, err)
		}
		cells := make([]string, len(record))
		for i, v := range record {
			cells[i] = strings.TrimSpace(v)
		}
		if err := t.AppendRow(cells); err != nil {
			return nil, fmt.Errorf("row %d: %w", t.NumRows()+2, err)
		}
	}
	return t, nil
}
