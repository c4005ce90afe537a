package domain

import (
	"regexp"
	"strings"

	dErrors "biorempp/pkg/domain-errors"
)

// MaxSampleIDLength bounds sample identifiers; the parser rejects longer
// names before construction is attempted.
const MaxSampleIDLength = 120

var sampleIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// SampleID names a biological sample within a submission.
//
// Invariants:
//   - non-empty after trimming
//   - characters restricted to letters, digits, underscore, hyphen, dot
//   - at most MaxSampleIDLength bytes
//
// Sanitization of raw header text happens in the parser *before* construction;
// this constructor only enforces the invariants.
type SampleID string

// NewSampleID constructs a validated SampleID.
func NewSampleID(s string) (SampleID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "sample identifier cannot be empty")
	}
	if len(trimmed) > MaxSampleIDLength {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "sample identifier exceeds %d characters", MaxSampleIDLength)
	}
	if !sampleIDPattern.MatchString(trimmed) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "sample identifier %q contains characters outside [A-Za-z0-9_.-]", trimmed)
	}
	return SampleID(trimmed), nil
}

// MustSampleID constructs a SampleID, panicking if invalid. Use only in tests.
func MustSampleID(s string) SampleID {
	id, err := NewSampleID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the literal identifier.
func (id SampleID) String() string { return string(id) }

// IsZero reports whether id is the zero value.
func (id SampleID) IsZero() bool { return id == "" }
