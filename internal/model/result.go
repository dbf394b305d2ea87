package model

// ExcludedReasonSingleVendor is the reason attached to plans that only one
// vendor bid.
const ExcludedReasonSingleVendor = "only one vendor bid this plan"

// Bid is one vendor's price for a plan.
type Bid struct {
	Vendor     string            `json:"vendor"`
	Price      float64           `json:"price"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ComparisonResult is the per-plan outcome for a plan bid by two or more
// vendors. Bids are sorted by price then vendor.
type ComparisonResult struct {
	PlanID        string   `json:"plan_id"`
	PlanName      string   `json:"plan_name,omitempty"`
	Bids          []Bid    `json:"bids"`
	Winners       []string `json:"winners"`
	CoWinner      bool     `json:"co_winner"`
	WinningPrice  float64  `json:"winning_price"`
	NextBestPrice *float64 `json:"next_best_price,omitempty"`
	MaxPrice      float64  `json:"max_price"`
	Savings       float64  `json:"savings"`
	SavingsPct    float64  `json:"savings_pct"`
	MarkupPct     float64  `json:"markup_pct"`
	Spread        float64  `json:"spread"`
	// SpreadPct is Spread relative to the most expensive eligible bid.
	SpreadPct float64 `json:"spread_pct"`
}

// IsWinner reports whether vendor won (solely or jointly) this plan.
func (c ComparisonResult) IsWinner(vendor string) bool {
	for _, w := range c.Winners {
		if w == vendor {
			return true
		}
	}
	return false
}

// ExcludedPlan is a plan that failed the fair-comparison rule.
type ExcludedPlan struct {
	PlanID     string            `json:"plan_id"`
	PlanName   string            `json:"plan_name,omitempty"`
	Vendor     string            `json:"vendor"`
	Price      float64           `json:"price"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Reason     string            `json:"reason"`
}

// VendorSummary rolls up one vendor's performance across eligible plans.
// Co-won plans count as a full win in PlansWon and are also tallied in
// CoWins.
type VendorSummary struct {
	Vendor     string   `json:"vendor"`
	Rank       int      `json:"rank"`
	PlansBid   int      `json:"plans_bid"`
	PlansWon   int      `json:"plans_won"`
	SoleWins   int      `json:"sole_wins"`
	CoWins     int      `json:"co_wins"`
	WonPlans   []string `json:"won_plans"`
	WonTotal   float64  `json:"won_total"`
	BidTotal   float64  `json:"bid_total"`
	WinRatePct float64  `json:"win_rate_pct"`
}

// WinnerComparison sets the overall winner against one other vendor on the
// eligible plans both bid. Savings is VendorTotal minus WinnerTotal and is
// negative when the winner is dearer on those plans.
type WinnerComparison struct {
	Vendor      string  `json:"vendor"`
	SharedPlans int     `json:"shared_plans"`
	VendorTotal float64 `json:"vendor_total"`
	WinnerTotal float64 `json:"winner_total"`
	Savings     float64 `json:"savings"`
}

// OverallResult aggregates all eligible comparison results.
type OverallResult struct {
	Vendors           []VendorSummary    `json:"vendors"`
	Winners           []string           `json:"winners"`
	Tie               bool               `json:"tie"`
	WinnerComparisons []WinnerComparison `json:"winner_comparisons"`
	TotalSavings      float64            `json:"total_savings"`
	PlansCompared     int                `json:"plans_compared"`
	PlansCoWon        int                `json:"plans_co_won"`
}

// Winner returns the single overall winner, or "" when there is none or the
// result is a tie.
func (o OverallResult) Winner() string {
	if o.Tie || len(o.Winners) != 1 {
		return ""
	}
	return o.Winners[0]
}

// Vendor returns the summary for name, if present.
func (o OverallResult) Vendor(name string) (VendorSummary, bool) {
	for _, v := range o.Vendors {
		if v.Vendor == name {
			return v, true
		}
	}
	return VendorSummary{}, false
}

// Analysis is the complete output of one comparison pass. It carries no
// timestamps or generated identifiers so that identical input encodes to
// identical bytes.
type Analysis struct {
	Normalize NormalizeReport    `json:"normalize"`
	Plans     []ComparisonResult `json:"plans"`
	Excluded  []ExcludedPlan     `json:"excluded"`
	Overall   OverallResult      `json:"overall"`
}

// Plan returns the comparison result for planID, if the plan was eligible.
func (a *Analysis) Plan(planID string) (ComparisonResult, bool) {
	for _, p := range a.Plans {
		if p.PlanID == planID {
			return p, true
		}
	}
	return ComparisonResult{}, false
}
