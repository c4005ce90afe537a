package parser

import (
	"bufio"
	"strings"

	dErrors "biorempp/pkg/domain-errors"
)

// DefaultMaxContentBytes bounds a single upload before any parsing work.
const DefaultMaxContentBytes = 5 << 20

// PrecheckReport is the outcome of a cheap structural scan.
type PrecheckReport struct {
	SizeBytes   int
	HeaderLines int
	DataLines   int
}

// Precheck runs the fast structural checks a handler performs before
// handing content to Parse: size ceiling, header presence, and the sample
// count ceiling. It counts lines without allocating per-sample state, so a
// rejected upload costs a single scan. maxBytes <= 0 falls back to
// DefaultMaxContentBytes.
func Precheck(content string, limits Limits, maxBytes int) (*PrecheckReport, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxContentBytes
	}
	limits = limits.withDefaults()

	report := &PrecheckReport{SizeBytes: len(content)}
	if len(content) > maxBytes {
		return report, dErrors.Newf(dErrors.CodeInvalidInput,
			"input too large: %d bytes exceeds the %d byte limit", len(content), maxBytes)
	}
	if strings.TrimSpace(content) == "" {
		return report, dErrors.New(dErrors.CodeEmptyContent, "input content is empty")
	}

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case line[0] == headerMarker:
			report.HeaderLines++
		default:
			report.DataLines++
		}
	}
	if err := sc.Err(); err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to scan input content")
	}

	if report.HeaderLines == 0 {
		return report, dErrors.New(dErrors.CodeInvalidFormat,
			"invalid format: no sample header line (expected lines starting with '>')")
	}
	if report.DataLines == 0 {
		return report, dErrors.New(dErrors.CodeInvalidFormat,
			"invalid format: no gene identifier lines found")
	}
	if limits.MaxSamples > 0 && report.HeaderLines > limits.MaxSamples {
		return report, dErrors.Newf(dErrors.CodeSampleLimitExceeded,
			"sample limit exceeded: input contains %d sample headers, limit is %d", report.HeaderLines, limits.MaxSamples)
	}
	return report, nil
}
