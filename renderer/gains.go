package renderer

import (
	"fmt"
	"strings"

	"github.com/fincore/folio"
)

// GainsMarkdown renders realized gains to a markdown string, one line per lot
// consumption, with a per-instrument subtotal.
func GainsMarkdown(accountID string, taxYear int, gains []folio.RealizedGain) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Realized Gains %s, %d\n\n", accountID, taxYear)
	fmt.Fprintln(&b, "Matching: first in, first out.")
	fmt.Fprintln(&b)

	if len(gains) == 0 {
		fmt.Fprintln(&b, "No realized gains in the period.")
		return b.String()
	}

	fmt.Fprintln(&b, "| Date | Instrument | Quantity | Proceeds | Cost Basis | Gain |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|---:|")

	var total folio.Money
	byInstrument := make(map[string]folio.Money)
	for _, g := range gains {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			g.Date, g.InstrumentID, g.Quantity, g.Proceeds, g.CostBasis, g.Gain.SignedString())
		total = total.Add(g.Gain)
		byInstrument[g.InstrumentID] = byInstrument[g.InstrumentID].Add(g.Gain)
	}
	fmt.Fprintf(&b, "| **Total** | | | | | **%s** |\n", total.SignedString())
	fmt.Fprintln(&b)

	fmt.Fprint(&b, "## Per Instrument\n\n")
	fmt.Fprintln(&b, "| Instrument | Gain |")
	fmt.Fprintln(&b, "|:---|---:|")
	for _, id := range sortedKeys(byInstrument) {
		fmt.Fprintf(&b, "| %s | %s |\n", id, byInstrument[id].SignedString())
	}

	return b.String()
}
