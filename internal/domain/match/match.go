// Package match holds the outcome types of similarity matching.
package match

import "github.com/kailas-cloud/vecmatch/internal/domain/query"

// DefaultTopK is the number of ranked candidates kept per query.
const DefaultTopK = 5

// Candidate is a matched corpus group. The zero value means no entry cleared the threshold.
type Candidate struct {
	GroupID    int64   `json:"group_id"`
	Similarity float64 `json:"similarity"`
}

// IsZero reports whether c is the no-match sentinel.
func (c Candidate) IsZero() bool { return c.GroupID == 0 && c.Similarity == 0 }

// Info is the bulk-lookup metadata of a group.
type Info struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Header is the single descriptive row of a group.
type Header struct {
	Code string `json:"code,omitempty"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// Detail is one child row of a group.
type Detail struct {
	Rank         int      `json:"rank"`
	DetailID     int64    `json:"detail_id"`
	Name         *string  `json:"name,omitempty"`
	Brand        *string  `json:"brand,omitempty"`
	Manufacturer *string  `json:"manufacturer,omitempty"`
	Qty          *float64 `json:"qty,omitempty"`
	Unit         *string  `json:"unit,omitempty"`
	UnitDetail   *string  `json:"unit_detail,omitempty"`
	Price        *float64 `json:"price,omitempty"`
}

// RankedCandidate is a top-K candidate with its 1-based rank and enrichment.
type RankedCandidate struct {
	Rank int `json:"rank"`
	Candidate
	Header  Header   `json:"header"`
	Details []Detail `json:"details"`
}

// Result is the outcome for one query: either Best (best-of mode) or Ranked (top-K mode).
// Info is nil when no candidate cleared the threshold or the lookup had no row for it.
type Result struct {
	Query  query.Query       `json:"-"`
	Best   *Candidate        `json:"best,omitempty"`
	Ranked []RankedCandidate `json:"ranked,omitempty"`
	Info   *Info             `json:"info,omitempty"`
}

// QueryID returns the originating query id.
func (r Result) QueryID() int64 { return r.Query.ID }

// Matched reports whether the result carries a non-sentinel match.
func (r Result) Matched() bool {
	if r.Best != nil {
		return !r.Best.IsZero()
	}
	return len(r.Ranked) > 0
}
