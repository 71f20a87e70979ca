package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/fincore/folio"
)

// logCmd holds the flags for the 'log' subcommand.
type logCmd struct {
	account string
	start   string
	end     string
}

func (*logCmd) Name() string     { return "log" }
func (*logCmd) Synopsis() string { return "list the recorded transactions of an account" }
func (*logCmd) Usage() string {
	return `fol log -a <account> [-s <date>] [-d <date>]

  Lists the transactions of an account in replay order.
`
}

func (c *logCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account to list")
	f.StringVar(&c.start, "s", "", "Start date (YYYY-MM-DD), open when omitted")
	f.StringVar(&c.end, "d", "", "End date (YYYY-MM-DD), open when omitted")
}

func (c *logCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		fmt.Fprintln(os.Stderr, "the -a flag is required")
		return subcommands.ExitUsageError
	}
	rng, err := parseRange(c.start, c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	system, store, err := LoadSystem()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "# Transactions %s\n\n", c.account)
	fmt.Fprintln(&b, "| Date | Type | Instrument | Quantity | Price | Fees | ID |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|---:|---:|:---|")
	for rec := range system.Ledger.Snapshot().List(c.account, rng) {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			rec.TradeDate, rec.Type, rec.InstrumentID,
			rec.Quantity, rec.Price, rec.Fees, rec.ID)
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}

// reportingPeriod resolves the reporting range: an explicit start date makes a
// custom range, otherwise the predefined period containing the end date is
// used.
func reportingPeriod(period, start, end string) (folio.Range, error) {
	endDate, err := folio.ParseDate(end)
	if err != nil {
		return folio.Range{}, fmt.Errorf("parsing end date: %w", err)
	}
	if start != "" {
		startDate, err := folio.ParseDate(start)
		if err != nil {
			return folio.Range{}, fmt.Errorf("parsing start date: %w", err)
		}
		return folio.Range{From: startDate, To: endDate}, nil
	}
	p, err := folio.ParsePeriod(period)
	if err != nil {
		return folio.Range{}, err
	}
	return p.Range(endDate), nil
}

// parseRange builds a Range from optional date flags. A fully omitted range
// stays zero (no filter); a single bound is completed with a distant past or
// today.
func parseRange(start, end string) (folio.Range, error) {
	if start == "" && end == "" {
		return folio.Range{}, nil
	}
	var rng folio.Range
	var err error
	if start == "" {
		rng.From = folio.NewDate(1900, 1, 1)
	} else if rng.From, err = folio.ParseDate(start); err != nil {
		return rng, fmt.Errorf("parsing start date: %w", err)
	}
	if end == "" {
		rng.To = folio.Today()
	} else if rng.To, err = folio.ParseDate(end); err != nil {
		return rng, fmt.Errorf("parsing end date: %w", err)
	}
	return rng, nil
}
