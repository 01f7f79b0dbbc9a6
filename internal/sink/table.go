package sink

import (
	"context"
	"fmt"
	"io"
	"strconv"

	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// tableSink prints pipe-separated lines as batches arrive.
type tableSink struct {
	w      io.Writer
	closer io.Closer
	header bool
}

func newTable(w io.Writer, closer io.Closer) *tableSink {
	return &tableSink{w: w, closer: closer}
}

func (t *tableSink) Write(_ context.Context, results []dommatch.Result) error {
	if !t.header {
		if _, err := fmt.Fprintln(t.w, "ID | Text | Rank | Similarity | GroupID | Code | Name | Type"); err != nil {
			return fmt.Errorf("write table header: %w", err)
		}
		t.header = true
	}
	for _, r := range Flatten(results) {
		_, err := fmt.Fprintf(t.w, "%d | %s | %d | %s | %d | %s | %s | %s\n",
			r.QueryID, r.Text, r.Rank, strconv.FormatFloat(r.Similarity, 'f', 4, 64),
			r.GroupID, r.Code, r.Name, r.Type)
		if err != nil {
			return fmt.Errorf("write table row: %w", err)
		}
	}
	return nil
}

func (t *tableSink) Close() error {
	return t.closer.Close()
}
