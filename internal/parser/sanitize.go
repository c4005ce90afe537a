package parser

import (
	"fmt"
	"strings"

	id "biorempp/pkg/domain"
)

// Sample names end up in file names, report headers and rendered pages, so
// the accepted alphabet is restricted to [A-Za-z0-9_.-]. Anything else,
// including HTML-significant characters and whitespace, is replaced.
const nameReplacement = '_'

func isAllowedNameChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-':
		return true
	}
	return false
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// sanitizeSampleName normalizes a raw header name for safe downstream use.
// It trims surrounding whitespace and replaces every disallowed byte with
// an underscore, reporting whether anything was altered. A returned error
// means the name is unusable and the whole sample block must be dropped.
func sanitizeSampleName(raw string) (name string, altered bool, err error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false, fmt.Errorf("sample name is empty")
	}
	if len(trimmed) > id.MaxSampleIDLength {
		return "", false, fmt.Errorf("sample name exceeds %d bytes", id.MaxSampleIDLength)
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	hasAlnum := false
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if !isAllowedNameChar(c) {
			altered = true
			c = nameReplacement
		}
		if isAlphanumeric(c) {
			hasAlnum = true
		}
		b.WriteByte(c)
	}
	if !hasAlnum {
		return "", false, fmt.Errorf("sample name contains no letters or digits")
	}
	return b.String(), altered, nil
}
