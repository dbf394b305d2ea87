// Package fetcher reads the extracted-bids artifact and the spreadsheet and
// CSV bid documents that feed extraction.
package fetcher

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-compare/internal/model"
)

// Artifact maps a source document name to the records extracted from it.
type Artifact map[string][]model.RawRecord

// Sources returns the artifact's source names in sorted order.
func (a Artifact) Sources() []string {
	out := make([]string, 0, len(a))
	for k := range a {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Records flattens the artifact into raw records in observation order, with
// Source and Index set on each.
func (a Artifact) Records() []model.RawRecord {
	var out []model.RawRecord
	for _, src := range a.Sources() {
		for i, r := range a[src] {
			r.Source = src
			r.Index = i
			out = append(out, r)
		}
	}
	return out
}

// DecodeArtifact reads an artifact of the form
// {"<source>": [{"plan_id": ..., "price": ...}, ...], ...}.
// Anything other than an object of arrays of objects is rejected with the
// offending source and record index.
func DecodeArtifact(r io.Reader) (Artifact, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var top map[string]json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, eris.Wrap(err, "artifact: top level must be an object of source files")
	}

	out := make(Artifact, len(top))
	for src, msg := range top {
		if isNull(msg) {
			out[src] = nil
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(msg, &items); err != nil {
			return nil, eris.Wrapf(err, "artifact: %s is not a list of records", src)
		}
		records := make([]model.RawRecord, 0, len(items))
		for i, item := range items {
			if !isObject(item) {
				return nil, eris.Errorf("artifact: %s record %d is not an object", src, i)
			}
			var rec model.RawRecord
			if err := json.Unmarshal(item, &rec); err != nil {
				return nil, eris.Wrapf(err, "artifact: %s record %d", src, i)
			}
			records = append(records, rec)
		}
		out[src] = records
	}
	return out, nil
}

// ReadArtifact decodes the artifact stored at path.
func ReadArtifact(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return DecodeArtifact(f)
}

// EncodeArtifact writes the artifact as indented JSON with sources in
// sorted order.
func EncodeArtifact(w io.Writer, a Artifact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if a == nil {
		a = Artifact{}
	}
	return eris.Wrap(enc.Encode(a), "artifact: encode")
}

// WriteArtifact writes the artifact to path.
func WriteArtifact(path string, a Artifact) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "artifact: create %s", path)
	}
	if err := EncodeArtifact(f, a); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(f.Close(), "artifact: close")
}

func isObject(msg json.RawMessage) bool {
	t := bytes.TrimSpace(msg)
	return len(t) > 0 && t[0] == '{'
}

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}
