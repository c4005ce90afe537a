// Package parser turns raw sample submissions into a validated Dataset.
//
// The input is line oriented: a line starting with '>' opens a sample block
// and every following non-header line carries KO identifiers for that block.
// The parser recovers locally from per-line problems (bad identifiers,
// unusable sample names, duplicates) by skipping and recording a warning,
// and fails hard only on structural problems: empty content, missing
// headers, or a breached input ceiling.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"biorempp/internal/dataset"
	id "biorempp/pkg/domain"
	dErrors "biorempp/pkg/domain-errors"
)

const headerMarker = '>'

// Warnings are capped so a pathological upload cannot balloon the response;
// the numeric counters keep the full totals regardless.
const maxWarnings = 100

// Default input ceilings, used when a limit is left at zero.
const (
	DefaultMaxSamples      = 1000
	DefaultMaxKOsPerSample = 20000
	DefaultMaxTotalKOs     = 200000
)

// Limits bounds a single parse call. A zero field falls back to the
// package default; a negative field disables that limit.
type Limits struct {
	MaxSamples      int
	MaxKOsPerSample int
	MaxTotalKOs     int
}

func (l Limits) withDefaults() Limits {
	if l.MaxSamples == 0 {
		l.MaxSamples = DefaultMaxSamples
	}
	if l.MaxKOsPerSample == 0 {
		l.MaxKOsPerSample = DefaultMaxKOsPerSample
	}
	if l.MaxTotalKOs == 0 {
		l.MaxTotalKOs = DefaultMaxTotalKOs
	}
	return l
}

// Metrics reports everything a parse call altered, ignored or duplicated.
// It is returned alongside a successful parse so callers can surface
// "N invalid entries ignored" style feedback.
type Metrics struct {
	SamplesParsed    int
	KOsParsed        int
	IgnoredKOs       int
	DuplicateSamples int
	SanitizedNames   int
	Warnings         []string

	suppressed int
}

func (m *Metrics) addWarning(format string, args ...any) {
	if len(m.Warnings) >= maxWarnings {
		m.suppressed++
		return
	}
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

func (m *Metrics) finalize() {
	if m.suppressed > 0 {
		m.Warnings = append(m.Warnings, fmt.Sprintf("%d further warnings suppressed", m.suppressed))
	}
}

// Clean reports whether the parse completed without skipping or altering
// anything.
func (m *Metrics) Clean() bool {
	return m.IgnoredKOs == 0 && m.DuplicateSamples == 0 && m.SanitizedNames == 0 && len(m.Warnings) == 0
}

type Parser struct {
	limits Limits
	logger *slog.Logger
}

type Option func(*Parser)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

func New(limits Limits, opts ...Option) *Parser {
	p := &Parser{limits: limits.withDefaults()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse scans content and returns the resulting Dataset together with the
// parse metrics. The returned Dataset contains only samples whose header
// survived sanitization and that carry at least one valid KO; everything
// skipped along the way is reflected in the metrics. Parsing the same
// content twice yields an identical Dataset and identical Metrics.
func (p *Parser) Parse(content string) (*dataset.Dataset, *Metrics, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, dErrors.New(dErrors.CodeEmptyContent, "input content is empty")
	}

	var (
		m        = &Metrics{}
		ds       = dataset.New()
		seen     = make(map[string]struct{})
		current  *dataset.Sample
		currName string
		dropped  bool
		full     bool

		sawHeader    bool
		sawData      bool
		orphanWarned bool
		accepted     int
		totalKOs     int
	)

	flush := func() {
		if current == nil {
			return
		}
		if current.Len() == 0 {
			m.addWarning("sample %q has no valid gene identifiers and was dropped", currName)
		} else if err := ds.AddSample(current); err != nil {
			m.addWarning("sample %q dropped: %v", currName, err)
		} else {
			m.SamplesParsed++
		}
		current = nil
	}

	r := bufio.NewReader(strings.NewReader(content))
	for {
		line, err := r.ReadString('\n')
		eof := errors.Is(err, io.EOF)
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			// blank line, skip

		case line[0] == headerMarker:
			sawHeader = true
			flush()
			dropped = false
			full = false

			raw := strings.TrimSpace(line[1:])
			name, altered, sanErr := sanitizeSampleName(raw)
			if sanErr != nil {
				dropped = true
				m.addWarning("sample header %q dropped: %v", raw, sanErr)
				break
			}
			if p.limits.MaxSamples > 0 && accepted >= p.limits.MaxSamples {
				return nil, nil, dErrors.Newf(dErrors.CodeSampleLimitExceeded,
					"sample limit exceeded: input contains more than %d samples", p.limits.MaxSamples)
			}
			if altered {
				m.SanitizedNames++
				m.addWarning("sample name %q sanitized to %q", raw, name)
			}
			sid, idErr := id.NewSampleID(name)
			if idErr != nil {
				dropped = true
				m.addWarning("sample header %q dropped: %v", raw, idErr)
				break
			}
			if _, dup := seen[name]; dup {
				m.DuplicateSamples++
				m.addWarning("duplicate sample name %q", name)
			}
			seen[name] = struct{}{}
			accepted++
			current = dataset.NewSample(sid)
			currName = name

		default:
			sawData = true
			if dropped {
				break
			}
			if current == nil {
				m.IgnoredKOs += len(strings.Fields(line))
				if !orphanWarned {
					orphanWarned = true
					m.addWarning("gene identifiers before the first sample header were ignored")
				}
				break
			}
			for _, tok := range strings.Fields(line) {
				ko, koErr := id.ParseKO(tok)
				if koErr != nil {
					m.IgnoredKOs++
					continue
				}
				if p.limits.MaxKOsPerSample > 0 && current.Len() >= p.limits.MaxKOsPerSample {
					if !full {
						full = true
						m.addWarning("sample %q: per-sample limit of %d identifiers reached, extra identifiers skipped",
							currName, p.limits.MaxKOsPerSample)
					}
					continue
				}
				if current.AddKO(ko) {
					totalKOs++
					m.KOsParsed++
					if p.limits.MaxTotalKOs > 0 && totalKOs > p.limits.MaxTotalKOs {
						return nil, nil, dErrors.Newf(dErrors.CodeKOLimitExceeded,
							"total gene identifier limit exceeded: input contains more than %d identifiers", p.limits.MaxTotalKOs)
					}
				}
			}
		}

		if eof {
			break
		}
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "failed to read input content")
		}
	}
	flush()

	if !sawHeader {
		return nil, nil, dErrors.New(dErrors.CodeInvalidFormat,
			"invalid format: no sample header line (expected lines starting with '>')")
	}
	if !sawData {
		return nil, nil, dErrors.New(dErrors.CodeInvalidFormat,
			"invalid format: no gene identifier lines found")
	}

	m.finalize()
	if p.logger != nil {
		p.logger.Debug("content parsed",
			"samples", m.SamplesParsed,
			"kos", m.KOsParsed,
			"ignored_kos", m.IgnoredKOs,
			"duplicate_samples", m.DuplicateSamples,
			"sanitized_names", m.SanitizedNames,
		)
	}
	return ds, m, nil
}
