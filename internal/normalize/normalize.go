// Package normalize validates extracted plan records and folds repeated
// mentions into one PlanRecord per (plan, vendor).
package normalize

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-compare/internal/model"
)

// DefaultPriceTolerance is the absolute difference under which two prices for
// the same (plan, vendor) are considered to agree.
const DefaultPriceTolerance = 0.01

// Options configures a normalization pass.
type Options struct {
	// PriceTolerance is the absolute agreement window for merged prices.
	// Negative values are treated as zero.
	PriceTolerance float64
	// Aliases maps lower-cased alternative vendor names to canonical names.
	Aliases map[string]string
}

// DefaultOptions returns Options with the default tolerance and no aliases.
func DefaultOptions() Options {
	return Options{PriceTolerance: DefaultPriceTolerance}
}

// Normalize coerces raw records into a RecordSet.
//
// Records are processed in observation order: by Source, then Index. This
// makes the result independent of the order of raw, and gives "later
// observed" a fixed meaning for merge conflicts. Malformed records are
// rejected and reported; only identifiers of a type that cannot be coerced
// to text produce an error.
func Normalize(raw []model.RawRecord, opts Options) (*model.RecordSet, *model.NormalizeReport, error) {
	ordered := make([]model.RawRecord, len(raw))
	copy(ordered, raw)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Source != ordered[j].Source {
			return ordered[i].Source < ordered[j].Source
		}
		return ordered[i].Index < ordered[j].Index
	})

	tol := math.Max(opts.PriceTolerance, 0)
	report := &model.NormalizeReport{
		Received: len(ordered),
		Sources:  make([]model.SourceSummary, 0),
	}
	merged := make(map[model.RecordKey]*model.PlanRecord)

	var (
		src        *model.SourceSummary
		plansInSrc map[string]bool
	)
	for _, r := range ordered {
		if src == nil || src.Source != r.Source {
			report.Sources = append(report.Sources, model.SourceSummary{Source: r.Source})
			src = &report.Sources[len(report.Sources)-1]
			plansInSrc = make(map[string]bool)
		}
		src.Received++

		rec, rej, err := coerce(r, opts.Aliases)
		if err != nil {
			return nil, nil, err
		}
		if rej != nil {
			report.Rejected++
			report.Rejections = append(report.Rejections, *rej)
			zap.L().Debug("normalize: rejected record",
				zap.String("source", rej.Source),
				zap.Int("index", rej.Index),
				zap.String("reason", string(rej.Reason)),
				zap.String("detail", rej.Detail),
			)
			continue
		}
		report.Accepted++
		src.Accepted++
		if !plansInSrc[rec.PlanID] {
			plansInSrc[rec.PlanID] = true
			src.Plans++
		}

		existing, ok := merged[rec.Key()]
		if !ok {
			merged[rec.Key()] = &rec
			continue
		}
		report.Merged++
		if c := mergeInto(existing, rec, tol); c != nil {
			report.Conflicts = append(report.Conflicts, *c)
			zap.L().Warn("normalize: price conflict, keeping later observation",
				zap.String("plan_id", c.PlanID),
				zap.String("vendor", c.Vendor),
				zap.Float64("kept", c.KeptPrice),
				zap.Float64("discarded", c.DiscardedPrice),
				zap.Strings("sources", c.Sources),
			)
		}
	}

	set := &model.RecordSet{Records: make([]model.PlanRecord, 0, len(merged))}
	for _, rec := range merged {
		set.Records = append(set.Records, *rec)
	}
	sort.Slice(set.Records, func(i, j int) bool {
		a, b := set.Records[i], set.Records[j]
		if a.PlanID != b.PlanID {
			return a.PlanID < b.PlanID
		}
		return a.Vendor < b.Vendor
	})

	zap.L().Info("normalize: complete",
		zap.Int("received", report.Received),
		zap.Int("accepted", report.Accepted),
		zap.Int("rejected", report.Rejected),
		zap.Int("merged", report.Merged),
		zap.Int("conflicts", len(report.Conflicts)),
		zap.Int("records", len(set.Records)),
	)
	return set, report, nil
}

// coerce validates a single raw record. A non-nil Rejection means the record
// is dropped; a non-nil error means the input is structurally invalid.
func coerce(r model.RawRecord, aliases map[string]string) (model.PlanRecord, *model.Rejection, error) {
	reject := func(reason model.RejectReason, detail string) (model.PlanRecord, *model.Rejection, error) {
		return model.PlanRecord{}, &model.Rejection{Source: r.Source, Index: r.Index, Reason: reason, Detail: detail}, nil
	}

	rawID, err := identString(r.PlanID)
	if err != nil {
		return model.PlanRecord{}, nil, eris.Wrapf(err, "normalize: %s record %d field plan_id", r.Source, r.Index)
	}
	planID := CanonicalPlanID(rawID)
	if planID == "" {
		return reject(model.RejectMissingPlanID, rawID)
	}

	vendor, err := vendorName(r, aliases)
	if err != nil {
		return model.PlanRecord{}, nil, err
	}
	if vendor == "" {
		return reject(model.RejectMissingVendor, "")
	}

	price, err := ParsePrice(r.Price)
	if err != nil {
		return reject(model.RejectInvalidPrice, err.Error())
	}

	name, _ := identString(r.PlanName)
	rec := model.PlanRecord{
		PlanID:     planID,
		PlanName:   collapseSpace(name),
		Price:      price,
		Vendor:     vendor,
		Attributes: attributes(r),
	}
	if r.Source != "" {
		rec.Sources = []string{r.Source}
	}
	return rec, nil, nil
}

// attributes renders a record's optional details as text. Values that are
// not scalars are dropped.
func attributes(r model.RawRecord) map[string]string {
	var out map[string]string
	for _, k := range model.AttributeKeys {
		v, ok := r.Attributes[k]
		if !ok {
			continue
		}
		s, err := scalarString(v)
		if err != nil {
			zap.L().Debug("normalize: dropping attribute",
				zap.String("source", r.Source),
				zap.Int("index", r.Index),
				zap.String("key", k),
			)
			continue
		}
		if s = collapseSpace(s); s == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[k] = s
	}
	return out
}

func vendorName(r model.RawRecord, aliases map[string]string) (string, error) {
	for _, f := range []struct {
		name string
		v    any
	}{{"vendor", r.Vendor}, {"source_file", r.SourceFile}} {
		s, err := identString(f.v)
		if err != nil {
			return "", eris.Wrapf(err, "normalize: %s record %d field %s", r.Source, r.Index, f.name)
		}
		if s = collapseSpace(s); s != "" {
			return resolveAlias(s, aliases), nil
		}
	}
	return resolveAlias(collapseSpace(r.Source), aliases), nil
}

func resolveAlias(vendor string, aliases map[string]string) string {
	if vendor == "" {
		return ""
	}
	if canonical, ok := aliases[strings.ToLower(vendor)]; ok {
		return canonical
	}
	return vendor
}

// mergeInto folds a later observation into existing and returns a Conflict
// when the prices disagree beyond tol.
func mergeInto(existing *model.PlanRecord, later model.PlanRecord, tol float64) *model.Conflict {
	if moreComplete(later.PlanName, existing.PlanName) {
		existing.PlanName = later.PlanName
	}
	for _, src := range later.Sources {
		if !containsString(existing.Sources, src) {
			existing.Sources = append(existing.Sources, src)
		}
	}
	sort.Strings(existing.Sources)
	for k, v := range later.Attributes {
		if _, ok := existing.Attributes[k]; ok {
			continue
		}
		if existing.Attributes == nil {
			existing.Attributes = make(map[string]string)
		}
		existing.Attributes[k] = v
	}

	// Small epsilon absorbs float noise in cent-rounded values.
	if math.Abs(later.Price-existing.Price) <= tol+1e-9 {
		return nil
	}
	c := &model.Conflict{
		PlanID:         existing.PlanID,
		Vendor:         existing.Vendor,
		KeptPrice:      later.Price,
		DiscardedPrice: existing.Price,
		Sources:        append([]string(nil), existing.Sources...),
	}
	existing.Price = later.Price
	return c
}

func moreComplete(candidate, current string) bool {
	return len(candidate) > len(current)
}

func containsString(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
