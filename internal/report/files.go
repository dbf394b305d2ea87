package report

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-compare/internal/model"
)

// Artifact file names written by WriteAll.
const (
	CSVFile    = "bid_comparison.csv"
	ReportFile = "bid_report.md"
	JSONFile   = "bid_result.json"
	XLSXFile   = "bid_comparison.xlsx"
)

// Files lists the paths WriteAll produced. XLSX is empty unless requested.
type Files struct {
	CSV    string `json:"csv"`
	Report string `json:"report"`
	JSON   string `json:"json"`
	XLSX   string `json:"xlsx,omitempty"`
}

// WriteAll writes the CSV, Markdown and JSON artifacts (and optionally the
// XLSX workbook) into dir.
func WriteAll(dir string, a *model.Analysis, withXLSX bool) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create %s", dir)
	}

	files := &Files{
		CSV:    filepath.Join(dir, CSVFile),
		Report: filepath.Join(dir, ReportFile),
		JSON:   filepath.Join(dir, JSONFile),
	}

	writers := []struct {
		path  string
		write func(f *os.File) error
	}{
		{files.CSV, func(f *os.File) error { return WriteCSV(f, a) }},
		{files.Report, func(f *os.File) error { return Render(f, a) }},
		{files.JSON, func(f *os.File) error { return WriteJSON(f, a) }},
	}
	for _, w := range writers {
		if err := writeFile(w.path, w.write); err != nil {
			return nil, err
		}
	}

	if withXLSX {
		files.XLSX = filepath.Join(dir, XLSXFile)
		if err := WriteXLSX(files.XLSX, a); err != nil {
			return nil, err
		}
	}

	zap.L().Info("report: artifacts written",
		zap.String("csv", files.CSV),
		zap.String("report", files.Report),
		zap.String("json", files.JSON),
		zap.String("xlsx", files.XLSX),
	)
	return files, nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrapf(err, "report: write %s", path)
	}
	return eris.Wrapf(f.Close(), "report: close %s", path)
}
