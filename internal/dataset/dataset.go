package dataset

import (
	"sort"
	"strings"

	id "biorempp/pkg/domain"
	dErrors "biorempp/pkg/domain-errors"
)

// Dataset is the aggregate for one submission: an ordered list of samples.
// Samples with duplicate identifiers are allowed (the parser records a
// warning but keeps both).
type Dataset struct {
	samples []*Sample
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{}
}

// AddSample validates the sample and appends it. Invalid samples never enter
// the aggregate.
func (d *Dataset) AddSample(s *Sample) error {
	if s == nil {
		return dErrors.New(dErrors.CodeValidation, "sample cannot be nil")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	d.samples = append(d.samples, s)
	return nil
}

// Samples returns the ordered sample list. The slice is a copy; the samples
// themselves are shared.
func (d *Dataset) Samples() []*Sample {
	out := make([]*Sample, len(d.samples))
	copy(out, d.samples)
	return out
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.samples) }

// TotalKOs returns the number of KO entries summed over all samples.
func (d *Dataset) TotalKOs() int {
	n := 0
	for _, s := range d.samples {
		n += s.Len()
	}
	return n
}

// UniqueKOCount returns the number of distinct KOs across all samples.
func (d *Dataset) UniqueKOCount() int {
	seen := make(map[id.KO]struct{})
	for _, s := range d.samples {
		for _, ko := range s.kos {
			seen[ko] = struct{}{}
		}
	}
	return len(seen)
}

// KOSampleCounts maps each KO to the number of samples containing it.
func (d *Dataset) KOSampleCounts() map[id.KO]int {
	counts := make(map[id.KO]int)
	for _, s := range d.samples {
		for ko := range s.seen {
			counts[ko]++
		}
	}
	return counts
}

// Validate enforces the aggregate invariant: non-empty, and every sample
// individually valid.
func (d *Dataset) Validate() error {
	if len(d.samples) == 0 {
		return dErrors.New(dErrors.CodeValidation, "dataset contains no samples")
	}
	for _, s := range d.samples {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CanonicalContent renders the dataset as a deterministic string: samples
// sorted by identifier, KOs sorted within each sample. Two datasets holding
// the same samples and KOs produce the same string regardless of insertion
// order, which makes the derived cache key order-invariant.
func (d *Dataset) CanonicalContent() string {
	type entry struct {
		id  string
		kos []string
	}
	entries := make([]entry, 0, len(d.samples))
	for _, s := range d.samples {
		kos := make([]string, 0, len(s.kos))
		for _, ko := range s.kos {
			kos = append(kos, ko.String())
		}
		sort.Strings(kos)
		entries = append(entries, entry{id: s.id.String(), kos: kos})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(e.id)
		b.WriteByte(':')
		b.WriteString(strings.Join(e.kos, ","))
	}
	return b.String()
}
