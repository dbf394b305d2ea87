package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-compare/internal/model"
)

// WriteJSON writes the full analysis as indented JSON. Consumers read this
// artifact instead of recomputing results.
func WriteJSON(w io.Writer, a *model.Analysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(a), "report: encode json")
}

// ReadJSON decodes an analysis written by WriteJSON.
func ReadJSON(r io.Reader) (*model.Analysis, error) {
	var a model.Analysis
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, eris.Wrap(err, "report: decode json")
	}
	return &a, nil
}
