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

// holdingCmd holds the flags for the 'holding' subcommand.
type holdingCmd struct {
	account string
	date    string
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "open positions and valuation of an account" }
func (*holdingCmd) Usage() string {
	return `fol holding -a <account> [-d <date>]

  Displays the open positions of an account and its net asset value as of
  the given date.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account to report on")
	f.StringVar(&c.date, "d", folio.Today().String(), "Valuation date (YYYY-MM-DD)")
}

func (c *holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		fmt.Fprintln(os.Stderr, "the -a flag is required")
		return subcommands.ExitUsageError
	}
	asOf, err := folio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	system, store, err := LoadSystem()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	positions, err := system.Positions(ctx, c.account)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing positions: %v\n", err)
		return subcommands.ExitFailure
	}
	nav, err := system.NavAt(ctx, c.account, asOf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing NAV: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.HoldingMarkdown(positions, nav))
	return subcommands.ExitSuccess
}
