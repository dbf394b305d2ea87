package extract

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-compare/internal/fetcher"
	"github.com/sells-group/bid-compare/internal/ocr"
)

// Discover lists the bid documents directly under dir whose extension is in
// exts, sorted by name. Hidden files and subdirectories are skipped.
func Discover(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read dir %s", dir)
	}

	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !allowed[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Loader turns a bid document into plain text. PDFs go through the OCR
// extractor; spreadsheets, CSVs and TSVs are flattened to tab-separated rows.
type Loader struct {
	pdf ocr.Extractor
}

// NewLoader creates a Loader that reads PDFs with pdf.
func NewLoader(pdf ocr.Extractor) *Loader {
	return &Loader{pdf: pdf}
}

// Load returns the text content of the document at path.
func (l *Loader) Load(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		if l.pdf == nil {
			return "", eris.Errorf("extract: no pdf extractor for %s", path)
		}
		return l.pdf.ExtractText(ctx, path)
	case ".xlsx":
		return fetcher.XLSXText(path)
	case ".csv", ".tsv":
		f, err := os.Open(path)
		if err != nil {
			return "", eris.Wrapf(err, "extract: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		return fetcher.CSVText(ctx, f, delimiter(path))
	case ".txt", ".md":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "extract: read %s", path)
		}
		return string(b), nil
	default:
		return "", eris.Errorf("extract: unsupported document type %q", filepath.Ext(path))
	}
}

func delimiter(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

// Chunk splits text into pieces of at most limit characters, breaking on
// page and line boundaries. A single line longer than limit is cut.
func Chunk(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, page := range ocr.Pages(text) {
		for _, line := range strings.Split(page, "\n") {
			for len(line) > limit {
				flush()
				cut := limit
				for cut > 1 && !utf8.RuneStart(line[cut]) {
					cut--
				}
				chunks = append(chunks, line[:cut])
				line = line[cut:]
			}
			if cur.Len()+len(line) > limit {
				flush()
			}
			cur.WriteString(line)
			cur.WriteByte('\n')
		}
		if cur.Len() > 0 && cur.Len()+1 <= limit {
			cur.WriteByte('\n')
		}
	}
	flush()
	return chunks
}
