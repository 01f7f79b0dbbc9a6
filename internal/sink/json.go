package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// Record is the JSON form of one result.
type Record struct {
	QueryID int64                      `json:"query_id"`
	Text    string                     `json:"text"`
	Best    *dommatch.Candidate        `json:"best,omitempty"`
	Ranked  []dommatch.RankedCandidate `json:"ranked,omitempty"`
	Info    *dommatch.Info             `json:"info,omitempty"`
}

// NewRecord converts a result into its JSON form.
func NewRecord(r dommatch.Result) Record {
	return Record{
		QueryID: r.QueryID(),
		Text:    r.Query.Text,
		Best:    r.Best,
		Ranked:  r.Ranked,
		Info:    r.Info,
	}
}

// jsonSink buffers records and writes one indented array on Close.
type jsonSink struct {
	w       io.Writer
	closer  io.Closer
	records []Record
}

func newJSON(w io.Writer, closer io.Closer) *jsonSink {
	return &jsonSink{w: w, closer: closer, records: []Record{}}
}

func (j *jsonSink) Write(_ context.Context, results []dommatch.Result) error {
	for _, r := range results {
		j.records = append(j.records, NewRecord(r))
	}
	return nil
}

func (j *jsonSink) Close() error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j.records); err != nil {
		_ = j.closer.Close()
		return fmt.Errorf("encode json output: %w", err)
	}
	return j.closer.Close()
}
