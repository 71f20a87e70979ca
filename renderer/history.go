package renderer

import (
	"fmt"
	"strings"

	"github.com/fincore/folio"
)

// HistoryMarkdown renders a NAV series to a markdown string, one line per
// snapshot.
func HistoryMarkdown(accountID string, series folio.NavSeries) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# NAV History %s\n\n", accountID)

	if len(series) == 0 {
		fmt.Fprintln(&b, "No snapshots in the period.")
		return b.String()
	}

	fmt.Fprintln(&b, "| Date | Market Value | Cash | Total |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|")
	for _, snap := range series {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			snap.AsOf, snap.MarketValue, snap.CashBalance, snap.TotalValue())
	}
	return b.String()
}

// PerformanceMarkdown renders a performance report to a markdown string.
func PerformanceMarkdown(report *folio.PerformanceReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Performance %s from %s to %s\n\n",
		report.AccountID, report.Range.From, report.Range.To)

	fmt.Fprintln(&b, "| Metric | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Time-weighted return | %s |\n", report.TimeWeight.SignedString())
	fmt.Fprintf(&b, "| Money-weighted return | %s |\n", report.MoneyWeight.SignedString())
	fmt.Fprintf(&b, "| Max drawdown | %s |\n", report.MaxDrawdown)
	if report.SharpeDefined {
		fmt.Fprintf(&b, "| Sharpe ratio | %.2f |\n", report.Sharpe)
	} else {
		fmt.Fprintf(&b, "| Sharpe ratio | n/a |\n")
	}
	return b.String()
}
