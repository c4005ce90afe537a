// Package dataset holds the submission aggregate: samples owning ordered,
// de-duplicated KO lists, and the dataset that owns the samples.
package dataset

import (
	id "biorempp/pkg/domain"
	dErrors "biorempp/pkg/domain-errors"
)

// Sample is a named specimen owning an ordered list of unique KO identifiers.
// Insertion order is preserved; duplicate inserts are silently ignored.
type Sample struct {
	id   id.SampleID
	kos  []id.KO
	seen map[id.KO]struct{}
}

// NewSample creates an empty sample for the given identifier.
func NewSample(sampleID id.SampleID) *Sample {
	return &Sample{
		id:   sampleID,
		seen: make(map[id.KO]struct{}),
	}
}

// ID returns the sample identifier.
func (s *Sample) ID() id.SampleID { return s.id }

// AddKO appends a KO unless it is already present. Returns whether the KO
// was added.
func (s *Sample) AddKO(ko id.KO) bool {
	if _, dup := s.seen[ko]; dup {
		return false
	}
	s.seen[ko] = struct{}{}
	s.kos = append(s.kos, ko)
	return true
}

// RemoveKO deletes a KO if present. Returns whether anything was removed.
func (s *Sample) RemoveKO(ko id.KO) bool {
	if _, ok := s.seen[ko]; !ok {
		return false
	}
	delete(s.seen, ko)
	for i, k := range s.kos {
		if k == ko {
			s.kos = append(s.kos[:i], s.kos[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether the sample holds the KO.
func (s *Sample) Contains(ko id.KO) bool {
	_, ok := s.seen[ko]
	return ok
}

// KOs returns a copy of the ordered KO list.
func (s *Sample) KOs() []id.KO {
	out := make([]id.KO, len(s.kos))
	copy(out, s.kos)
	return out
}

// Len returns the number of KOs in the sample.
func (s *Sample) Len() int { return len(s.kos) }

// Validate enforces the entity invariant: a validated sample holds at least
// one KO.
func (s *Sample) Validate() error {
	if len(s.kos) == 0 {
		return dErrors.Newf(dErrors.CodeValidation, "sample %q contains no KO identifiers", s.id)
	}
	return nil
}
