package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/fincore/folio"
)

// HoldingMarkdown renders the open positions and the valuation of an account
// to a markdown string.
func HoldingMarkdown(positions []folio.Position, nav folio.NavSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Holdings %s on %s\n\n", nav.AccountID, nav.AsOf)

	fmt.Fprint(&b, "## Positions\n\n")
	fmt.Fprintln(&b, "| Instrument | Quantity | Avg Cost | |")
	fmt.Fprintln(&b, "|:---|---:|---:|:---|")
	for _, pos := range positions {
		flag := ""
		if pos.Inconsistent {
			flag = "inconsistent"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			pos.InstrumentID,
			pos.Quantity,
			pos.AverageCost,
			flag,
		)
	}
	fmt.Fprintln(&b)

	fmt.Fprint(&b, "## Valuation\n\n")
	fmt.Fprintln(&b, "| | |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Market Value | %s |\n", nav.MarketValue)
	fmt.Fprintf(&b, "| Cash | %s |\n", nav.CashBalance)
	fmt.Fprintf(&b, "| **Total** | **%s** |\n", nav.TotalValue())
	fmt.Fprintf(&b, "| Unrealized P/L | %s |\n", nav.UnrealizedPL.SignedString())
	fmt.Fprintf(&b, "| Realized P/L to date | %s |\n", nav.RealizedPLToDate.SignedString())

	ConditionalBlock(&b, func(w io.Writer) bool {
		if len(nav.StaleInstruments) == 0 {
			return false
		}
		fmt.Fprintf(w, "\nStale quotes: %s.\n", strings.Join(nav.StaleInstruments, ", "))
		return true
	})

	return b.String()
}
