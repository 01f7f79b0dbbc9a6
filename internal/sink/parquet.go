package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// parquetSink streams flat rows into a Parquet file; the footer is written on Close.
type parquetSink struct {
	writer *parquet.GenericWriter[Row]
	closer io.Closer
}

func newParquet(w io.Writer, closer io.Closer) *parquetSink {
	return &parquetSink{writer: parquet.NewGenericWriter[Row](w), closer: closer}
}

func (p *parquetSink) Write(_ context.Context, results []dommatch.Result) error {
	if _, err := p.writer.Write(Flatten(results)); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return nil
}

func (p *parquetSink) Close() error {
	if err := p.writer.Close(); err != nil {
		_ = p.closer.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return p.closer.Close()
}
