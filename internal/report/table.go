package report

import (
	"github.com/sells-group/bid-compare/internal/model"
)

// Columns is the header of the tabular comparison artifact.
var Columns = []string{
	"plan_id",
	"plan_name",
	"vendor",
	"price",
	"status",
	"winner",
	"co_winner",
	"winning_price",
	"next_best_price",
	"max_price",
	"savings",
	"savings_pct",
	"markup_pct",
	"spread",
	"spread_pct",
	"reason",
}

// Bid statuses in the tabular artifact.
const (
	StatusWon      = "won"
	StatusCoWon    = "co-won"
	StatusLost     = "lost"
	StatusExcluded = "excluded"
)

// cell values are string, float64, or nil for an empty cell.
type row []any

// comparisonRows lays out one row per bid: eligible plans first, then
// excluded plans, each in plan order.
func comparisonRows(a *model.Analysis) []row {
	var rows []row
	for _, p := range a.Plans {
		var next any
		if p.NextBestPrice != nil {
			next = *p.NextBestPrice
		}
		for _, b := range p.Bids {
			status, winner := StatusLost, "no"
			if p.IsWinner(b.Vendor) {
				winner = "yes"
				status = StatusWon
				if p.CoWinner {
					status = StatusCoWon
				}
			}
			rows = append(rows, row{
				p.PlanID,
				p.PlanName,
				b.Vendor,
				b.Price,
				status,
				winner,
				yesNo(p.CoWinner),
				p.WinningPrice,
				next,
				p.MaxPrice,
				p.Savings,
				p.SavingsPct,
				p.MarkupPct,
				p.Spread,
				p.SpreadPct,
				"",
			})
		}
	}
	for _, e := range a.Excluded {
		rows = append(rows, row{
			e.PlanID,
			e.PlanName,
			e.Vendor,
			e.Price,
			StatusExcluded,
			"",
			"",
			nil,
			nil,
			nil,
			nil,
			nil,
			nil,
			nil,
			nil,
			e.Reason,
		})
	}
	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
