package sink

import dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"

// Row is the flat form of one selected candidate. A query without any candidate
// still yields one row with a zero GroupID.
type Row struct {
	QueryID    int64   `parquet:"query_id" json:"query_id"`
	Text       string  `parquet:"text" json:"text"`
	Rank       int32   `parquet:"rank" json:"rank"`
	GroupID    int64   `parquet:"group_id" json:"group_id"`
	Similarity float64 `parquet:"similarity" json:"similarity"`
	Code       string  `parquet:"code" json:"code"`
	Name       string  `parquet:"name" json:"name"`
	Type       string  `parquet:"type" json:"type"`
	Details    int32   `parquet:"details" json:"details"`
}

// Flatten converts results into rows, in result order.
func Flatten(results []dommatch.Result) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		base := Row{QueryID: r.QueryID(), Text: r.Query.Text}

		if len(r.Ranked) == 0 {
			if r.Best != nil {
				base.GroupID = r.Best.GroupID
				base.Similarity = r.Best.Similarity
			}
			if r.Info != nil {
				base.Code = r.Info.Code
				base.Name = r.Info.Name
			}
			rows = append(rows, base)
			continue
		}

		for _, c := range r.Ranked {
			row := base
			row.Rank = int32(c.Rank)
			row.GroupID = c.GroupID
			row.Similarity = c.Similarity
			row.Code = c.Header.Code
			row.Name = c.Header.Name
			row.Type = c.Header.Type
			row.Details = int32(len(c.Details))
			rows = append(rows, row)
		}
	}
	return rows
}
