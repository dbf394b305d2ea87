package model

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
)

// RawRecord is a single plan observation as produced by extraction. Field
// values keep their decoded JSON form until the normalizer coerces them.
type RawRecord struct {
	PlanID     any `json:"plan_id,omitempty"`
	PlanName   any `json:"plan_name,omitempty"`
	Price      any `json:"price,omitempty"`
	Vendor     any `json:"vendor,omitempty"`
	SourceFile any `json:"source_file,omitempty"`

	// Attributes holds the optional plan details listed in AttributeKeys.
	Attributes map[string]any `json:"-"`

	// Source is the artifact key the record was listed under.
	Source string `json:"-"`
	// Index is the record's position within Source.
	Index int `json:"-"`
}

// rawKeyAliases maps alternative extraction keys onto RawRecord fields.
var rawKeyAliases = map[string][]string{
	"plan_id":     {"plan_id", "plan_number", "plan_no", "plan"},
	"plan_name":   {"plan_name", "name", "description"},
	"price":       {"price", "total_price", "amount", "total"},
	"vendor":      {"vendor", "bidder", "vendor_name"},
	"source_file": {"source_file", "file", "source"},
}

// AttributeKeys are the optional plan details carried through normalization
// and comparison untouched.
var AttributeKeys = []string{
	"system_type",
	"tonnage",
	"rough_po",
	"trim_po",
	"city",
	"state",
	"zip",
	"metro_area",
}

// UnmarshalJSON accepts any JSON object and picks the known keys, including
// the aliases emitted by older extraction prompts.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return eris.Wrap(err, "raw record: decode")
	}
	if obj == nil {
		return eris.New("raw record: null record")
	}

	pick := func(field string) any {
		for _, k := range rawKeyAliases[field] {
			if v, ok := obj[k]; ok && v != nil {
				return v
			}
		}
		return nil
	}

	r.PlanID = pick("plan_id")
	r.PlanName = pick("plan_name")
	r.Price = pick("price")
	r.Vendor = pick("vendor")
	r.SourceFile = pick("source_file")

	r.Attributes = nil
	for _, k := range AttributeKeys {
		if v, ok := obj[k]; ok && v != nil {
			if r.Attributes == nil {
				r.Attributes = make(map[string]any)
			}
			r.Attributes[k] = v
		}
	}
	return nil
}

// MarshalJSON writes the record as a flat object with attributes alongside
// the core fields. Keys are emitted in sorted order.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, 5+len(r.Attributes))
	for k, v := range r.Attributes {
		if v != nil {
			obj[k] = v
		}
	}
	for k, v := range map[string]any{
		"plan_id":     r.PlanID,
		"plan_name":   r.PlanName,
		"price":       r.Price,
		"vendor":      r.Vendor,
		"source_file": r.SourceFile,
	} {
		if v != nil {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}

// PlanRecord is one normalized observation of a plan's price from one vendor.
// PlanRecords are immutable once the normalizer emits them.
type PlanRecord struct {
	PlanID     string            `json:"plan_id"`
	PlanName   string            `json:"plan_name,omitempty"`
	Price      float64           `json:"price"`
	Vendor     string            `json:"vendor"`
	Sources    []string          `json:"sources"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// RecordKey identifies a PlanRecord within a RecordSet.
type RecordKey struct {
	PlanID string
	Vendor string
}

// Key returns the record's (plan, vendor) key.
func (p PlanRecord) Key() RecordKey {
	return RecordKey{PlanID: p.PlanID, Vendor: p.Vendor}
}

// RecordSet holds at most one PlanRecord per (plan, vendor), sorted by plan
// then vendor.
type RecordSet struct {
	Records []PlanRecord `json:"records"`
}

// Len returns the number of records in the set.
func (s *RecordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Get returns the record for key, if present.
func (s *RecordSet) Get(key RecordKey) (PlanRecord, bool) {
	if s == nil {
		return PlanRecord{}, false
	}
	for _, r := range s.Records {
		if r.Key() == key {
			return r, true
		}
	}
	return PlanRecord{}, false
}

// Vendors returns the distinct vendors in the set in sorted order.
func (s *RecordSet) Vendors() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.Records {
		if !seen[r.Vendor] {
			seen[r.Vendor] = true
			out = append(out, r.Vendor)
		}
	}
	sort.Strings(out)
	return out
}

// RejectReason classifies why a raw record was dropped.
type RejectReason string

const (
	RejectInvalidPrice  RejectReason = "invalid_price"
	RejectMissingPlanID RejectReason = "missing_plan_id"
	RejectMissingVendor RejectReason = "missing_vendor"
)

// Rejection describes a raw record dropped by the normalizer.
type Rejection struct {
	Source string       `json:"source"`
	Index  int          `json:"index"`
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

// Conflict records two observations of the same (plan, vendor) whose prices
// disagree beyond the configured tolerance. Kept is the later observation.
type Conflict struct {
	PlanID         string   `json:"plan_id"`
	Vendor         string   `json:"vendor"`
	KeptPrice      float64  `json:"kept_price"`
	DiscardedPrice float64  `json:"discarded_price"`
	Sources        []string `json:"sources"`
}

// SourceSummary counts what one source document contributed.
type SourceSummary struct {
	Source   string `json:"source"`
	Received int    `json:"received"`
	Accepted int    `json:"accepted"`
	Plans    int    `json:"plans"`
}

// NormalizeReport summarizes a normalization pass.
type NormalizeReport struct {
	Received   int             `json:"received"`
	Accepted   int             `json:"accepted"`
	Merged     int             `json:"merged"`
	Rejected   int             `json:"rejected"`
	Sources    []SourceSummary `json:"sources"`
	Rejections []Rejection     `json:"rejections,omitempty"`
	Conflicts  []Conflict      `json:"conflicts,omitempty"`
}
