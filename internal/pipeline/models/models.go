package models

import (
	"time"

	"biorempp/internal/tabular"
)

// MergeResult is the outcome of one full pipeline run. Primary always
// holds the mandatory enrichment table; Pathways and Hadeg are nil when
// their optional stages are disabled or produced no rows to carry.
type MergeResult struct {
	Primary  *tabular.Table `json:"primary"`
	Pathways *tabular.Table `json:"pathways,omitempty"`
	Hadeg    *tabular.Table `json:"hadeg,omitempty"`

	// Matches and TotalRecords both equal the primary table's row count;
	// the toxicity columns extend the primary 1:1, so the two stay equal.
	Matches      int `json:"matches"`
	TotalRecords int `json:"total_records"`

	CacheKey  string        `json:"cache_key"`
	Duration  time.Duration `json:"duration"`
	FromCache bool          `json:"from_cache"`
	CreatedAt time.Time     `json:"created_at"`
}

// Summary is the lightweight view returned by list endpoints.
type Summary struct {
	Matches      int           `json:"matches"`
	TotalRecords int           `json:"total_records"`
	HasPathways  bool          `json:"has_pathways"`
	HasHadeg     bool          `json:"has_hadeg"`
	CacheKey     string        `json:"cache_key"`
	Duration     time.Duration `json:"duration"`
	FromCache    bool          `json:"from_cache"`
}

// Summarize derives the list view of a result.
func (r *MergeResult) Summarize() Summary {
	return Summary{
		Matches:      r.Matches,
		TotalRecords: r.TotalRecords,
		HasPathways:  r.Pathways != nil,
		HasHadeg:     r.Hadeg != nil,
		CacheKey:     r.CacheKey,
		Duration:     r.Duration,
		FromCache:    r.FromCache,
	}
}
