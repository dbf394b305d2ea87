package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-compare/internal/model"
)

// WriteCSV writes the comparison table: one row per (plan, vendor) bid,
// with excluded plans marked and their reason given.
func WriteCSV(w io.Writer, a *model.Analysis) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, r := range comparisonRows(a) {
		if err := cw.Write(csvRecord(r)); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

func csvRecord(r row) []string {
	out := make([]string, len(r))
	for i, v := range r {
		switch x := v.(type) {
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', 2, 64)
		}
	}
	return out
}
