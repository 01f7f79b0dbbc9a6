// Package sink emits match results as a console table, a JSON document or a Parquet file.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"

	dommatch "github.com/kailas-cloud/vecmatch/internal/domain/match"
)

// Supported output formats.
const (
	FormatTable   = "table"
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

// Sink receives results batch by batch. Close flushes buffered output.
type Sink interface {
	Write(ctx context.Context, results []dommatch.Result) error
	Close() error
}

// Open creates a sink for format. An empty path writes to stdout;
// parquet output requires a path.
func Open(format, path string) (Sink, error) {
	if format == FormatParquet && path == "" {
		return nil, fmt.Errorf("parquet output requires a path")
	}

	w, closer, err := output(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatTable, "":
		return newTable(w, closer), nil
	case FormatJSON:
		return newJSON(w, closer), nil
	case FormatParquet:
		return newParquet(w, closer), nil
	default:
		_ = closer.Close()
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func output(path string) (io.Writer, io.Closer, error) {
	if path == "" {
		return os.Stdout, nopCloser{}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output %s: %w", path, err)
	}
	return f, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
