// Package textenc decodes raw upload bytes into text. Submissions come from
// lab tooling that exports either UTF-8 or Latin-1; the decoder tries UTF-8
// first and falls back, reporting which encoding was used so the parser
// metrics can surface it.
package textenc

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names reported by Decode.
const (
	EncodingUTF8    = "utf-8"
	EncodingLatin1  = "latin-1"
	EncodingUnknown = "unknown"
)

// Decode converts raw bytes to a string. Valid UTF-8 passes through
// unchanged; anything else is decoded as Latin-1, which maps every byte to
// a code point and therefore cannot fail.
func Decode(raw []byte) (text string, encoding string, err error) {
	if len(raw) == 0 {
		return "", EncodingUnknown, nil
	}

	// Strip a UTF-8 BOM; some Windows exports prepend one.
	if len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF {
		raw = raw[3:]
	}

	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8, nil
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", EncodingUnknown, fmt.Errorf("decode latin-1: %w", err)
	}
	return string(decoded), EncodingLatin1, nil
}
