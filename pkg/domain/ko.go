// Package domain holds the identifier value types shared across the service.
//
// Both types are immutable once constructed: build them via their Parse/New
// constructors at trust boundaries; direct casting bypasses validation.
package domain

import (
	dErrors "biorempp/pkg/domain-errors"
)

// KO is a KEGG Orthology gene identifier: the letter 'K' followed by exactly
// five digits (K00001 .. K99999). Equality and map-key behavior follow the
// literal string.
type KO string

// ParseKO constructs a KO from external input.
//
// Validation rules are checked in order and the first failure wins, so error
// messages are deterministic for a given input:
//  1. non-empty
//  2. starts with 'K'
//  3. length exactly 6
//  4. remaining five characters all digits
func ParseKO(s string) (KO, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidIdentifier, "KO identifier cannot be empty")
	}
	if s[0] != 'K' {
		return "", dErrors.Newf(dErrors.CodeInvalidIdentifier, "KO identifier %q must start with 'K'", s)
	}
	if len(s) != 6 {
		return "", dErrors.Newf(dErrors.CodeInvalidIdentifier, "KO identifier %q must be exactly 6 characters", s)
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return "", dErrors.Newf(dErrors.CodeInvalidIdentifier, "KO identifier %q must be 'K' followed by 5 digits", s)
		}
	}
	return KO(s), nil
}

// MustKO constructs a KO, panicking if invalid. Use only in tests or when the
// value is known to be valid.
func MustKO(s string) KO {
	ko, err := ParseKO(s)
	if err != nil {
		panic(err)
	}
	return ko
}

// String returns the literal identifier.
func (k KO) String() string { return string(k) }

// IsZero reports whether k is the zero value.
func (k KO) IsZero() bool { return k == "" }
