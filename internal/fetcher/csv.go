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
	LazyQuotes bool
}

// StreamCSV reads CSV rows and sends them to a channel. Fields are trimmed
// and rows may have varying widths. Both channels are closed when
// processing completes.
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
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

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
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
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

// CSVText renders a delimited document as tab-separated lines for
// extraction. A zero delim means comma.
func CSVText(ctx context.Context, r io.Reader, delim rune) (string, error) {
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{Delimiter: delim, LazyQuotes: true})

	var b strings.Builder
	for row := range rowCh {
		line := strings.TrimRight(strings.Join(row, "\t"), "\t")
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	for err := range errCh {
		if err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
