package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bid-compare/internal/compare"
	"github.com/sells-group/bid-compare/internal/model"
	"github.com/sells-group/bid-compare/internal/normalize"
)

func exampleAnalysis(t *testing.T) *model.Analysis {
	t.Helper()
	a, err := compare.Analyze([]model.RawRecord{
		{Source: "a.pdf", Index: 0, PlanID: "4101", PlanName: "Roof", Price: "$1,000", Vendor: "A"},
		{Source: "a.pdf", Index: 1, PlanID: "4102", Price: "500", Vendor: "A"},
		{Source: "a.pdf", Index: 2, PlanID: "4104", Price: "N/A", Vendor: "A"},
		{Source: "b.pdf", Index: 0, PlanID: "4101", Price: "950", Vendor: "B"},
		{Source: "b.pdf", Index: 1, PlanID: "4103", Price: "800", Vendor: "B"},
		{Source: "c.pdf", Index: 0, PlanID: "4103", Price: "800", Vendor: "C"},
	}, normalize.DefaultOptions())
	require.NoError(t, err)
	return a
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exampleAnalysis(t)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{"4101", "Roof", "B", "950.00", "won", "yes", "no", "950.00", "1000.00", "1000.00", "50.00", "5.00", "5.26", "50.00", "5.00", ""}, records[1])
	assert.Equal(t, []string{"4101", "Roof", "A", "1000.00", "lost", "no", "no", "950.00", "1000.00", "1000.00", "50.00", "5.00", "5.26", "50.00", "5.00", ""}, records[2])
	assert.Equal(t, []string{"4103", "", "B", "800.00", "co-won", "yes", "yes", "800.00", "", "800.00", "0.00", "0.00", "0.00", "0.00", "0.00", ""}, records[3])
	assert.Equal(t, "C", records[4][2])
	assert.Equal(t, []string{"4102", "", "A", "500.00", "excluded", "", "", "", "", "", "", "", "", "", "", model.ExcludedReasonSingleVendor}, records[5])
	for _, r := range records {
		assert.Len(t, r, len(Columns))
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, exampleAnalysis(t)))
	out := buf.String()

	assert.Contains(t, out, "# Bid Comparison Report")
	assert.Contains(t, out, "accepted 5, rejected 1")
	assert.Contains(t, out, "Total potential savings: $50.00")
	// B won 4101 and co-won 4103: two wins, the most of any vendor.
	assert.Contains(t, out, "**B** won 2 of 2 plans")
	assert.Contains(t, out, "| 4101 | Roof | B $950.00; A $1,000.00 | B | $950.00 | $1,000.00 | $1,000.00 | $50.00 | 5.00% | 5.26% | $50.00 | 5.00% |")
	assert.Contains(t, out, "| 4103 |  | B $800.00; C $800.00 | B & C (tie) | $800.00 | - | $800.00 | $0.00 | 0.00% | 0.00% | $0.00 | 0.00% |")

	assert.Contains(t, out, "## Files Analyzed\n| File | Plans | Records Accepted | Records Received |")
	assert.Contains(t, out, "| a.pdf | 2 | 2 | 3 |")
	assert.Contains(t, out, "| b.pdf | 2 | 2 | 2 |")
	assert.Contains(t, out, "| c.pdf | 1 | 1 | 1 |")

	assert.Contains(t, out, "## Savings vs Other Bids")
	assert.Contains(t, out, "| C | 1 | $800.00 | $800.00 | $0.00 |")
	assert.Contains(t, out, "| A | 1 | $1,000.00 | $950.00 | $50.00 |")
	assert.Less(t, strings.Index(out, "| C | 1 |"), strings.Index(out, "| A | 1 |"))
	assert.Contains(t, out, "B & C (tie)")
	assert.Contains(t, out, "- 4102: A at $500.00 (only one vendor bid this plan)")
	assert.Contains(t, out, "a.pdf #2: invalid_price")
	assert.NotContains(t, out, "## Price Conflicts")
}

func TestRender_EscapesTableCells(t *testing.T) {
	a, err := compare.Analyze([]model.RawRecord{
		{Source: "a|b.pdf", PlanID: "4101", PlanName: "Roof | Gutters", Price: "100", Vendor: "Smith | Sons"},
		{Source: "c.pdf", PlanID: "4101", Price: "120", Vendor: "Bolt"},
	}, normalize.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, a))
	out := buf.String()

	assert.Contains(t, out, `| a\|b.pdf | 1 | 1 | 1 |`)
	assert.Contains(t, out, `| 4101 | Roof \| Gutters | Smith \| Sons $100.00; Bolt $120.00 | Smith \| Sons |`)
	assert.Contains(t, out, `| 1 | Smith \| Sons | 1 | 1 |`)
	assert.Contains(t, out, `| Bolt | 1 | $120.00 | $100.00 | $20.00 |`)
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "| 4101 |") {
			continue
		}
		cells := strings.Count(line, "|") - strings.Count(line, `\|`)
		assert.Equal(t, 13, cells, line)
	}
}

func TestRender_TieAndEmpty(t *testing.T) {
	a, err := compare.Analyze([]model.RawRecord{
		{Source: "a", PlanID: "1", Price: "10", Vendor: "A"},
		{Source: "b", PlanID: "1", Price: "10", Vendor: "B"},
	}, normalize.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, a))
	assert.Contains(t, buf.String(), "Tie between A, B: each won 1 of 1 plans")

	empty, err := compare.Analyze(nil, normalize.DefaultOptions())
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, Render(&buf, empty))
	assert.Contains(t, buf.String(), "no winner can be declared")
	assert.Contains(t, buf.String(), "## Excluded Plans\nNone.")
}

func TestJSONRoundTrip(t *testing.T) {
	a := exampleAnalysis(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, a))
	got, err := ReadJSON(&buf)
	require.NoError(t, err)

	assert.Equal(t, a.Overall, got.Overall)
	assert.Equal(t, a.Excluded, got.Excluded)
	p, ok := got.Plan("4101")
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, p.Winners)
	assert.InDelta(t, 50.0, p.Savings, 0.001)
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	files, err := WriteAll(dir, exampleAnalysis(t), true)
	require.NoError(t, err)

	for _, p := range []string{files.CSV, files.Report, files.JSON, files.XLSX} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.Positive(t, info.Size(), p)
	}

	wb, err := xlsx.OpenFile(files.XLSX)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 6)
	assert.Equal(t, "Comparison", wb.Sheets[0].Name)
	assert.Equal(t, "Vendors", wb.Sheets[1].Name)
	assert.Equal(t, "B", wb.Sheets[1].Rows[1].Cells[1].String())
	assert.Equal(t, "Excluded", wb.Sheets[2].Name)
	assert.Equal(t, "4102", wb.Sheets[2].Rows[1].Cells[0].String())
	assert.Equal(t, "Rejections", wb.Sheets[3].Name)

	savings := wb.Sheets[4]
	assert.Equal(t, "Savings", savings.Name)
	require.Len(t, savings.Rows, 3)
	assert.Equal(t, "B", savings.Rows[1].Cells[0].String())
	assert.Equal(t, "C", savings.Rows[1].Cells[1].String())
	assert.Equal(t, "A", savings.Rows[2].Cells[1].String())
	saved, err := savings.Rows[2].Cells[5].Float()
	require.NoError(t, err)
	assert.InDelta(t, 50.0, saved, 0.001)

	sources := wb.Sheets[5]
	assert.Equal(t, "Sources", sources.Name)
	require.Len(t, sources.Rows, 4)
	assert.Equal(t, "a.pdf", sources.Rows[1].Cells[0].String())
	plans, err := sources.Rows[1].Cells[1].Float()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, plans, 0.001)
}

func TestWriteAll_WithoutXLSX(t *testing.T) {
	files, err := WriteAll(t.TempDir(), exampleAnalysis(t), false)
	require.NoError(t, err)
	assert.Empty(t, files.XLSX)
}
