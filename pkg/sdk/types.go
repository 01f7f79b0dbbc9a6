package vecmatch

import dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"

// Match is the outcome for one query or keyword.
// Candidates is empty when nothing cleared the threshold.
type Match struct {
	QueryID    int64
	Text       string
	Candidates []Candidate
}

// Candidate is a matched corpus group, best first.
// Reconcile yields at most one candidate with Code and Name only;
// Search fills Type and Details as well.
type Candidate struct {
	Rank       int
	GroupID    int64
	Similarity float64
	Code       string
	Name       string
	Type       string
	Details    []Detail
}

// Detail is one child row of a matched group. Empty fields were NULL.
type Detail struct {
	ID           int64
	Name         string
	Brand        string
	Manufacturer string
	Qty          float64
	Unit         string
	UnitDetail   string
	Price        float64
}

// ReconcileSummary describes a completed reconciliation run.
type ReconcileSummary struct {
	CorpusEntries int
	Batches       int
	Queries       int
	Matched       int
}

// PopulateSummary describes a completed population run.
type PopulateSummary struct {
	Batches int
	Items   int
}

func toMatches(results []dommatch.Result) []Match {
	out := make([]Match, len(results))
	for i, r := range results {
		m := Match{QueryID: r.QueryID(), Text: r.Query.Text}
		switch {
		case r.Best != nil && !r.Best.IsZero():
			c := Candidate{Rank: 1, GroupID: r.Best.GroupID, Similarity: r.Best.Similarity}
			if r.Info != nil {
				c.Code, c.Name = r.Info.Code, r.Info.Name
			}
			m.Candidates = []Candidate{c}
		case len(r.Ranked) > 0:
			m.Candidates = make([]Candidate, len(r.Ranked))
			for j, rc := range r.Ranked {
				m.Candidates[j] = toCandidate(rc)
			}
		}
		out[i] = m
	}
	return out
}

func toCandidate(rc dommatch.RankedCandidate) Candidate {
	c := Candidate{
		Rank:       rc.Rank,
		GroupID:    rc.GroupID,
		Similarity: rc.Similarity,
		Code:       rc.Header.Code,
		Name:       rc.Header.Name,
		Type:       rc.Header.Type,
		Details:    make([]Detail, len(rc.Details)),
	}
	for i, d := range rc.Details {
		c.Details[i] = Detail{
			ID:           d.DetailID,
			Name:         deref(d.Name),
			Brand:        deref(d.Brand),
			Manufacturer: deref(d.Manufacturer),
			Qty:          deref(d.Qty),
			Unit:         deref(d.Unit),
			UnitDetail:   deref(d.UnitDetail),
			Price:        deref(d.Price),
		}
	}
	return c
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
