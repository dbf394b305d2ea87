package compare

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/bid-compare/internal/model"
)

type vendorTally struct {
	summary model.VendorSummary
	won     decimal.Decimal
	bid     decimal.Decimal
}

// Aggregate rolls eligible comparison results into per-vendor summaries and
// an overall winner.
//
// A co-won plan counts as a full win for every co-winner (PlansWon and
// CoWins) and its price is added to each co-winner's WonTotal; the plan
// itself is counted once in PlansCompared and PlansCoWon. The overall winner
// has the most PlansWon, then the lowest WonTotal. Vendors still level after
// both keys are all returned in Winners with Tie set.
//
// TotalSavings sums per-plan savings regardless of the overall winner. With
// a single overall winner, WinnerComparisons sets it against every other
// vendor on the plans both bid.
func Aggregate(results []model.ComparisonResult) model.OverallResult {
	out := model.OverallResult{
		Vendors:           make([]model.VendorSummary, 0),
		Winners:           make([]string, 0),
		WinnerComparisons: make([]model.WinnerComparison, 0),
		PlansCompared:     len(results),
	}
	if len(results) == 0 {
		return out
	}

	tallies := make(map[string]*vendorTally)
	tally := func(vendor string) *vendorTally {
		t, ok := tallies[vendor]
		if !ok {
			t = &vendorTally{summary: model.VendorSummary{Vendor: vendor, WonPlans: make([]string, 0)}}
			tallies[vendor] = t
		}
		return t
	}

	savings := decimal.Zero
	for _, r := range results {
		savings = savings.Add(amount(r.Savings))
		if r.CoWinner {
			out.PlansCoWon++
		}
		for _, b := range r.Bids {
			t := tally(b.Vendor)
			t.summary.PlansBid++
			t.bid = t.bid.Add(amount(b.Price))
		}
		for _, w := range r.Winners {
			t := tally(w)
			t.summary.PlansWon++
			t.summary.WonPlans = append(t.summary.WonPlans, r.PlanID)
			t.won = t.won.Add(amount(r.WinningPrice))
			if r.CoWinner {
				t.summary.CoWins++
			} else {
				t.summary.SoleWins++
			}
		}
	}
	out.TotalSavings = toFloat(savings)

	ranked := make([]*vendorTally, 0, len(tallies))
	for _, t := range tallies {
		t.summary.WonTotal = toFloat(t.won)
		t.summary.BidTotal = toFloat(t.bid)
		t.summary.WinRatePct = percent(decimal.NewFromInt(int64(t.summary.PlansWon)), decimal.NewFromInt(int64(len(results))))
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.summary.PlansWon != b.summary.PlansWon {
			return a.summary.PlansWon > b.summary.PlansWon
		}
		if c := a.won.Cmp(b.won); c != 0 {
			return c < 0
		}
		return a.summary.Vendor < b.summary.Vendor
	})

	for i, t := range ranked {
		t.summary.Rank = i + 1
		if i > 0 && level(ranked[i-1], t) {
			t.summary.Rank = out.Vendors[i-1].Rank
		}
		out.Vendors = append(out.Vendors, t.summary)
	}

	top := ranked[0]
	if top.summary.PlansWon > 0 {
		for _, t := range ranked {
			if !level(top, t) {
				break
			}
			out.Winners = append(out.Winners, t.summary.Vendor)
		}
	}
	out.Tie = len(out.Winners) > 1
	if len(out.Winners) == 1 {
		out.WinnerComparisons = winnerComparisons(results, out.Winners[0], ranked)
	}

	if out.Tie {
		zap.L().Info("aggregate: overall result is a tie",
			zap.Strings("vendors", out.Winners),
			zap.Int("plans_won", top.summary.PlansWon),
			zap.Float64("won_total", top.summary.WonTotal),
		)
	}
	return out
}

// level reports whether two vendors are indistinguishable by the ranking keys.
func level(a, b *vendorTally) bool {
	return a.summary.PlansWon == b.summary.PlansWon && a.won.Equal(b.won)
}

// winnerComparisons totals winner and each other vendor over the eligible
// plans both bid, in ranking order. Vendors sharing no plan with the winner
// are skipped.
func winnerComparisons(results []model.ComparisonResult, winner string, ranked []*vendorTally) []model.WinnerComparison {
	type pair struct {
		plans         int
		vendor, owner decimal.Decimal
	}
	shared := make(map[string]*pair)
	for _, r := range results {
		var winnerPrice *decimal.Decimal
		for _, b := range r.Bids {
			if b.Vendor == winner {
				p := amount(b.Price)
				winnerPrice = &p
				break
			}
		}
		if winnerPrice == nil {
			continue
		}
		for _, b := range r.Bids {
			if b.Vendor == winner {
				continue
			}
			p, ok := shared[b.Vendor]
			if !ok {
				p = &pair{}
				shared[b.Vendor] = p
			}
			p.plans++
			p.vendor = p.vendor.Add(amount(b.Price))
			p.owner = p.owner.Add(*winnerPrice)
		}
	}

	out := make([]model.WinnerComparison, 0, len(shared))
	for _, t := range ranked {
		p, ok := shared[t.summary.Vendor]
		if !ok {
			continue
		}
		out = append(out, model.WinnerComparison{
			Vendor:      t.summary.Vendor,
			SharedPlans: p.plans,
			VendorTotal: toFloat(p.vendor),
			WinnerTotal: toFloat(p.owner),
			Savings:     toFloat(p.vendor.Sub(p.owner)),
		})
	}
	return out
}
