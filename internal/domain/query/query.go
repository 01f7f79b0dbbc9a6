package query

import "github.com/kailas-cloud/vecmatch/internal/domain/vector"

// DefaultPageSize is the number of queries fetched and embedded per batch.
const DefaultPageSize = 100

// Query is one text to match. ID is a row id, or a 1-based synthetic index for ad-hoc inputs.
// Vector is filled in by the embedding provider.
type Query struct {
	ID     int64
	Text   string
	Vector vector.Vector
}

// FromTexts builds queries with synthetic 1-based ids.
func FromTexts(texts []string) []Query {
	qs := make([]Query, len(texts))
	for i, t := range texts {
		qs[i] = Query{ID: int64(i + 1), Text: t}
	}
	return qs
}

// Texts returns the texts of qs in order.
func Texts(qs []Query) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Text
	}
	return out
}
