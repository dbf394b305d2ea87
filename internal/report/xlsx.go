package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bid-compare/internal/model"
)

// WriteXLSX saves the analysis as a workbook with Comparison, Vendors,
// Excluded, Rejections, Savings and Sources sheets.
func WriteXLSX(path string, a *model.Analysis) error {
	f := xlsx.NewFile()

	if err := addSheet(f, "Comparison", Columns, comparisonRows(a)); err != nil {
		return err
	}

	vendorRows := make([]row, 0, len(a.Overall.Vendors))
	for _, v := range a.Overall.Vendors {
		vendorRows = append(vendorRows, row{
			float64(v.Rank), v.Vendor, float64(v.PlansBid), float64(v.PlansWon),
			float64(v.SoleWins), float64(v.CoWins), v.WinRatePct, v.WonTotal, v.BidTotal,
		})
	}
	if err := addSheet(f, "Vendors", []string{
		"rank", "vendor", "plans_bid", "plans_won", "sole_wins", "co_wins", "win_rate_pct", "won_total", "bid_total",
	}, vendorRows); err != nil {
		return err
	}

	excludedRows := make([]row, 0, len(a.Excluded))
	for _, e := range a.Excluded {
		excludedRows = append(excludedRows, row{e.PlanID, e.PlanName, e.Vendor, e.Price, e.Reason})
	}
	if err := addSheet(f, "Excluded", []string{"plan_id", "plan_name", "vendor", "price", "reason"}, excludedRows); err != nil {
		return err
	}

	rejectRows := make([]row, 0, len(a.Normalize.Rejections))
	for _, r := range a.Normalize.Rejections {
		rejectRows = append(rejectRows, row{r.Source, float64(r.Index), string(r.Reason), r.Detail})
	}
	if err := addSheet(f, "Rejections", []string{"source", "index", "reason", "detail"}, rejectRows); err != nil {
		return err
	}

	savingsRows := make([]row, 0, len(a.Overall.WinnerComparisons))
	for _, c := range a.Overall.WinnerComparisons {
		savingsRows = append(savingsRows, row{
			a.Overall.Winner(), c.Vendor, float64(c.SharedPlans), c.VendorTotal, c.WinnerTotal, c.Savings,
		})
	}
	if err := addSheet(f, "Savings", []string{
		"winner", "vendor", "shared_plans", "vendor_total", "winner_total", "savings",
	}, savingsRows); err != nil {
		return err
	}

	sourceRows := make([]row, 0, len(a.Normalize.Sources))
	for _, s := range a.Normalize.Sources {
		sourceRows = append(sourceRows, row{s.Source, float64(s.Plans), float64(s.Accepted), float64(s.Received)})
	}
	if err := addSheet(f, "Sources", []string{"source", "plans", "accepted", "received"}, sourceRows); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "report: save xlsx %s", path)
}

func addSheet(f *xlsx.File, name string, header []string, rows []row) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", name)
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}
	for _, r := range rows {
		xr := sheet.AddRow()
		for _, v := range r {
			cell := xr.AddCell()
			switch x := v.(type) {
			case string:
				cell.SetString(x)
			case float64:
				cell.SetFloat(x)
			}
		}
	}
	return nil
}
