package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/fincore/folio"
	"github.com/fincore/folio/renderer"
)

// historyCmd holds the flags for the 'history' subcommand.
type historyCmd struct {
	account string
	period  string
	start   string
	end     string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "daily NAV history of an account" }
func (*historyCmd) Usage() string {
	return `fol history -a <account> [-period <period>] [-s <date>] [-d <date>]

  Computes one NAV snapshot per day of the period and displays the series.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account to report on")
	f.StringVar(&c.period, "period", folio.Monthly.String(), "Predefined period (day, week, month, quarter, year)")
	f.StringVar(&c.start, "s", "", "Start date of the period, overrides -period (YYYY-MM-DD)")
	f.StringVar(&c.end, "d", folio.Today().String(), "End date of the period (YYYY-MM-DD)")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		fmt.Fprintln(os.Stderr, "the -a flag is required")
		return subcommands.ExitUsageError
	}
	rng, err := reportingPeriod(c.period, c.start, c.end)
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

	series, err := system.NavHistory(ctx, c.account, rng)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing NAV history: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.HistoryMarkdown(c.account, series))
	return subcommands.ExitSuccess
}
