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

// gainsCmd holds the flags for the 'gains' subcommand.
type gainsCmd struct {
	account string
	year    int
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "realized gains of an account for a tax year" }
func (*gainsCmd) Usage() string {
	return `fol gains -a <account> [-y <year>]

  Lists the realized gains of a tax year, one line per consumed lot,
  matched first in, first out.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account to report on")
	f.IntVar(&c.year, "y", folio.Today().Year(), "Tax year")
}

func (c *gainsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		fmt.Fprintln(os.Stderr, "the -a flag is required")
		return subcommands.ExitUsageError
	}

	system, store, err := LoadSystem()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	gains, err := system.RealizedGains(ctx, c.account, c.year)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing gains: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.GainsMarkdown(c.account, c.year, gains))
	return subcommands.ExitSuccess
}
