// Package compare applies the fair-comparison rule to normalized plan records
// and rolls per-plan winners up into an overall result.
package compare

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/bid-compare/internal/model"
)

// MinVendors is the number of distinct vendors a plan needs before a winner
// is declared.
const MinVendors = 2

// Compare groups records by plan and computes a ComparisonResult for every
// plan bid by at least MinVendors distinct vendors. Plans with a single
// vendor are returned as excluded. Both slices are sorted by plan id and are
// never nil.
//
// Records are expected to be normalized (one per plan and vendor). If a
// vendor appears twice for a plan, its lowest price is used.
func Compare(records []model.PlanRecord) ([]model.ComparisonResult, []model.ExcludedPlan) {
	groups := make(map[string][]model.PlanRecord)
	for _, r := range records {
		groups[r.PlanID] = append(groups[r.PlanID], r)
	}

	planIDs := make([]string, 0, len(groups))
	for id := range groups {
		planIDs = append(planIDs, id)
	}
	sort.Slice(planIDs, func(i, j int) bool { return PlanIDLess(planIDs[i], planIDs[j]) })

	results := make([]model.ComparisonResult, 0, len(planIDs))
	excluded := make([]model.ExcludedPlan, 0)

	for _, id := range planIDs {
		group := groups[id]
		bids := vendorBids(id, group)
		name := planName(group)

		if len(bids) < MinVendors {
			excluded = append(excluded, model.ExcludedPlan{
				PlanID:     id,
				PlanName:   name,
				Vendor:     bids[0].Vendor,
				Price:      bids[0].Price,
				Attributes: bids[0].Attributes,
				Reason:     model.ExcludedReasonSingleVendor,
			})
			continue
		}
		results = append(results, comparePlan(id, name, bids))
	}

	zap.L().Info("compare: plans grouped",
		zap.Int("plans", len(planIDs)),
		zap.Int("eligible", len(results)),
		zap.Int("excluded", len(excluded)),
	)
	return results, excluded
}

// vendorBids returns one bid per vendor sorted by price, then vendor.
func vendorBids(planID string, group []model.PlanRecord) []model.Bid {
	best := make(map[string]model.PlanRecord)
	for _, r := range group {
		if prev, ok := best[r.Vendor]; ok {
			zap.L().Warn("compare: duplicate vendor record for plan",
				zap.String("plan_id", planID),
				zap.String("vendor", r.Vendor),
			)
			if amount(prev.Price).LessThanOrEqual(amount(r.Price)) {
				continue
			}
		}
		best[r.Vendor] = r
	}

	bids := make([]model.Bid, 0, len(best))
	for vendor, r := range best {
		bids = append(bids, model.Bid{
			Vendor:     vendor,
			Price:      toFloat(amount(r.Price)),
			Attributes: r.Attributes,
		})
	}
	sort.Slice(bids, func(i, j int) bool {
		if c := amount(bids[i].Price).Cmp(amount(bids[j].Price)); c != 0 {
			return c < 0
		}
		return bids[i].Vendor < bids[j].Vendor
	})
	return bids
}

// planName picks the most complete name seen for a plan: longest, then
// lexically smallest.
func planName(group []model.PlanRecord) string {
	var name string
	for _, r := range group {
		if len(r.PlanName) > len(name) || (len(r.PlanName) == len(name) && r.PlanName < name) {
			name = r.PlanName
		}
	}
	return name
}

// comparePlan computes winners and savings for an eligible plan. bids must
// be sorted by price.
func comparePlan(planID, name string, bids []model.Bid) model.ComparisonResult {
	minP := amount(bids[0].Price)
	maxP := amount(bids[len(bids)-1].Price)
	spread := maxP.Sub(minP)

	res := model.ComparisonResult{
		PlanID:       planID,
		PlanName:     name,
		Bids:         bids,
		WinningPrice: toFloat(minP),
		MaxPrice:     toFloat(maxP),
		Spread:       toFloat(spread),
		SpreadPct:    percent(spread, maxP),
	}

	var next *decimal.Decimal
	for _, b := range bids {
		p := amount(b.Price)
		if p.Equal(minP) {
			res.Winners = append(res.Winners, b.Vendor)
			continue
		}
		next = &p
		break
	}
	res.CoWinner = len(res.Winners) > 1

	if next != nil {
		nextPrice := toFloat(*next)
		savings := next.Sub(minP)
		res.NextBestPrice = &nextPrice
		res.Savings = toFloat(savings)
		res.SavingsPct = percent(savings, *next)
		res.MarkupPct = percent(savings, minP)
	}
	return res
}
