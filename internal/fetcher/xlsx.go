package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXText renders every sheet of a workbook as tab-separated text, one
// "## <sheet>" section per sheet. Blank rows are dropped.
func XLSXText(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", eris.Wrap(err, "xlsx: open file")
	}

	var b strings.Builder
	for _, sheet := range f.Sheets {
		b.WriteString("## ")
		b.WriteString(sheet.Name)
		b.WriteString("\n")
		for _, row := range sheet.Rows {
			cells := rowToStrings(row)
			line := strings.TrimRight(strings.Join(cells, "\t"), "\t ")
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}
