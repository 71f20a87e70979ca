package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/fincore/folio"
)

// ImportMarkdown renders an import report to a markdown string.
func ImportMarkdown(report *folio.ImportReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Import %s into %s\n\n", report.BatchID, report.AccountID)

	fmt.Fprintln(&b, "| | Count |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Accepted | %d |\n", report.Accepted)
	fmt.Fprintf(&b, "| Deduplicated | %d |\n", report.Deduplicated)
	fmt.Fprintf(&b, "| Rejected | %d |\n", len(report.Rejected))

	ConditionalBlock(&b, func(w io.Writer) bool {
		if len(report.Rejected) == 0 {
			return false
		}
		fmt.Fprint(w, "\n## Rejected\n\n")
		fmt.Fprintln(w, "| ID | Instrument | Reason |")
		fmt.Fprintln(w, "|:---|:---|:---|")
		for _, rej := range report.Rejected {
			fmt.Fprintf(w, "| %s | %s | %s |\n",
				rej.Record.ID, rej.Record.InstrumentID, rej.Reason)
		}
		return true
	})

	return b.String()
}
