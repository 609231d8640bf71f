package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 = none
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads r and sends each row on the returned channel. Errors go to
// the error channel. Both channels close when reading stops.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.Comment = opts.Comment
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // county exports are ragged

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			if opts.TrimSpace {
				for i := range record {
					record[i] = strings.TrimSpace(record[i])
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSVRecords reads a CSV with a header row and returns one map per data
// row keyed by header name. Short rows leave missing columns out; blank rows
// are skipped.
func ReadCSVRecords(ctx context.Context, r io.Reader, opts CSVOptions) ([]map[string]any, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)

	var header []string
	var records []map[string]any
	for row := range rowCh {
		if header == nil {
			header = cleanHeader(row)
			continue
		}
		if rec := zipRow(header, row); rec != nil {
			records = append(records, rec)
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return records, nil
}

// cleanHeader trims header cells and strips a UTF-8 BOM from the first one.
func cleanHeader(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

// zipRow pairs header names with row cells. It returns nil for a row whose
// cells are all blank.
func zipRow(header, row []string) map[string]any {
	rec := make(map[string]any, len(header))
	blank := true
	for i, name := range header {
		if name == "" || i >= len(row) {
			continue
		}
		if strings.TrimSpace(row[i]) != "" {
			blank = false
		}
		rec[name] = row[i]
	}
	if blank {
		return nil
	}
	return rec
}
