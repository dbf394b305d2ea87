// Package report renders a comparison analysis as CSV, XLSX, JSON and a
// Markdown narrative. It formats figures only; every number comes from the
// analysis unchanged.
package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/bid-compare/internal/model"
)

var printer = message.NewPrinter(language.English)

func money(f float64) string {
	return printer.Sprintf("$%.2f", f)
}

func pct(f float64) string {
	return fmt.Sprintf("%.2f%%", f)
}

// cell makes s safe inside a Markdown table cell.
var cell = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ").Replace

// Render writes the human-readable report.
func Render(w io.Writer, a *model.Analysis) error {
	var b strings.Builder

	b.WriteString("# Bid Comparison Report\n\n")

	b.WriteString("## Summary\n")
	n := a.Normalize
	fmt.Fprintf(&b, "- Records received: %d (accepted %d, rejected %d, merged %d, price conflicts %d)\n",
		n.Received, n.Accepted, n.Rejected, n.Merged, len(n.Conflicts))
	fmt.Fprintf(&b, "- Plans compared: %d\n", len(a.Plans))
	fmt.Fprintf(&b, "- Plans excluded: %d\n", len(a.Excluded))
	fmt.Fprintf(&b, "- Total potential savings: %s\n", money(a.Overall.TotalSavings))
	b.WriteString("- Savings assume the lowest bid is taken on every compared plan.\n\n")

	writeSources(&b, a)
	writeWinner(&b, a)
	writeSavings(&b, a)
	writeVendors(&b, a)
	writePlans(&b, a)
	writeExcluded(&b, a)
	writeRejections(&b, a)
	writeConflicts(&b, a)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSources(b *strings.Builder, a *model.Analysis) {
	if len(a.Normalize.Sources) == 0 {
		return
	}
	b.WriteString("## Files Analyzed\n")
	b.WriteString("| File | Plans | Records Accepted | Records Received |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, s := range a.Normalize.Sources {
		fmt.Fprintf(b, "| %s | %d | %d | %d |\n", cell(s.Source), s.Plans, s.Accepted, s.Received)
	}
	b.WriteString("\n")
}

func writeWinner(b *strings.Builder, a *model.Analysis) {
	o := a.Overall
	b.WriteString("## Overall Winner\n")
	switch {
	case len(o.Winners) == 0:
		b.WriteString("No plan was bid by two or more vendors; no winner can be declared.\n\n")
		return
	case o.Tie:
		top, _ := o.Vendor(o.Winners[0])
		fmt.Fprintf(b, "Tie between %s: each won %d of %d plans with a won total of %s.\n\n",
			strings.Join(o.Winners, ", "), top.PlansWon, o.PlansCompared, money(top.WonTotal))
	default:
		top, _ := o.Vendor(o.Winners[0])
		fmt.Fprintf(b, "**%s** won %d of %d plans (%s) with a won total of %s.\n",
			top.Vendor, top.PlansWon, o.PlansCompared, pct(top.WinRatePct), money(top.WonTotal))
		if len(top.WonPlans) > 0 {
			fmt.Fprintf(b, "Plans won: %s\n", strings.Join(top.WonPlans, ", "))
		}
		b.WriteString("\n")
	}
	if o.PlansCoWon > 0 {
		fmt.Fprintf(b, "%d plan(s) were tied at the lowest price; each co-winner is credited with a full win.\n\n", o.PlansCoWon)
	}
}

func writeSavings(b *strings.Builder, a *model.Analysis) {
	o := a.Overall
	if len(o.WinnerComparisons) == 0 {
		return
	}
	winner := o.Winner()
	b.WriteString("## Savings vs Other Bids\n")
	fmt.Fprintf(b, "Totals over the compared plans %s and each vendor both bid. Negative savings mean the vendor was cheaper on those plans.\n\n", winner)
	fmt.Fprintf(b, "| Vendor | Shared Plans | Vendor Total | %s Total | Savings with %s |\n", cell(winner), cell(winner))
	b.WriteString("|---|---|---|---|---|\n")
	for _, c := range o.WinnerComparisons {
		fmt.Fprintf(b, "| %s | %d | %s | %s | %s |\n",
			cell(c.Vendor), c.SharedPlans, money(c.VendorTotal), money(c.WinnerTotal), money(c.Savings))
	}
	b.WriteString("\n")
}

func writeVendors(b *strings.Builder, a *model.Analysis) {
	if len(a.Overall.Vendors) == 0 {
		return
	}
	b.WriteString("## Vendor Ranking\n")
	b.WriteString("| Rank | Vendor | Plans Bid | Plans Won | Sole | Co-won | Win Rate | Won Total | Bid Total |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, v := range a.Overall.Vendors {
		fmt.Fprintf(b, "| %d | %s | %d | %d | %d | %d | %s | %s | %s |\n",
			v.Rank, cell(v.Vendor), v.PlansBid, v.PlansWon, v.SoleWins, v.CoWins,
			pct(v.WinRatePct), money(v.WonTotal), money(v.BidTotal))
	}
	b.WriteString("\n")
}

func writePlans(b *strings.Builder, a *model.Analysis) {
	if len(a.Plans) == 0 {
		return
	}
	b.WriteString("## Plan Comparison\n")
	b.WriteString("| Plan | Name | Bids | Winner | Best Price | Next Best | Max Price | Savings | Savings % | Markup % | Spread | Spread % |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|---|---|\n")
	for _, p := range a.Plans {
		bids := make([]string, len(p.Bids))
		for i, bid := range p.Bids {
			bids[i] = fmt.Sprintf("%s %s", bid.Vendor, money(bid.Price))
		}
		winner := strings.Join(p.Winners, " & ")
		if p.CoWinner {
			winner += " (tie)"
		}
		next := "-"
		if p.NextBestPrice != nil {
			next = money(*p.NextBestPrice)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			cell(p.PlanID), cell(p.PlanName), cell(strings.Join(bids, "; ")), cell(winner), money(p.WinningPrice),
			next, money(p.MaxPrice), money(p.Savings), pct(p.SavingsPct), pct(p.MarkupPct),
			money(p.Spread), pct(p.SpreadPct))
	}
	b.WriteString("\n")
}

func writeExcluded(b *strings.Builder, a *model.Analysis) {
	b.WriteString("## Excluded Plans\n")
	if len(a.Excluded) == 0 {
		b.WriteString("None.\n\n")
		return
	}
	for _, e := range a.Excluded {
		fmt.Fprintf(b, "- %s: %s at %s (%s)\n", e.PlanID, e.Vendor, money(e.Price), e.Reason)
	}
	b.WriteString("\n")
}

func writeRejections(b *strings.Builder, a *model.Analysis) {
	if len(a.Normalize.Rejections) == 0 {
		return
	}
	b.WriteString("## Rejected Records\n")
	for _, r := range a.Normalize.Rejections {
		fmt.Fprintf(b, "- %s #%d: %s", r.Source, r.Index, r.Reason)
		if r.Detail != "" {
			fmt.Fprintf(b, " (%s)", r.Detail)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeConflicts(b *strings.Builder, a *model.Analysis) {
	if len(a.Normalize.Conflicts) == 0 {
		return
	}
	b.WriteString("## Price Conflicts\n")
	for _, c := range a.Normalize.Conflicts {
		fmt.Fprintf(b, "- %s / %s: kept %s, discarded %s (sources: %s)\n",
			c.PlanID, c.Vendor, money(c.KeptPrice), money(c.DiscardedPrice), strings.Join(c.Sources, ", "))
	}
	b.WriteString("\n")
}
