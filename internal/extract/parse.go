package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-compare/internal/model"
)

// cleanJSON pulls a JSON array out of a model reply that may be wrapped in
// markdown code fences or commentary.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// parseRecords decodes the model's JSON array into raw records. Elements
// that are not objects are skipped; the normalizer validates the rest.
func parseRecords(text string) ([]model.RawRecord, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("extract: empty reply")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()

	var elems []json.RawMessage
	if err := dec.Decode(&elems); err != nil {
		return nil, eris.Wrap(err, "extract: reply is not a JSON array")
	}

	records := make([]model.RawRecord, 0, len(elems))
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			continue
		}
		var r model.RawRecord
		if err := json.Unmarshal(e, &r); err != nil {
			return nil, eris.Wrap(err, "extract: decode record")
		}
		records = append(records, r)
	}
	return records, nil
}
