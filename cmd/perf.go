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

// perfCmd holds the flags for the 'perf' subcommand.
type perfCmd struct {
	account  string
	period   string
	start    string
	end      string
	riskFree float64
}

func (*perfCmd) Name() string     { return "perf" }
func (*perfCmd) Synopsis() string { return "performance metrics of an account over a period" }
func (*perfCmd) Usage() string {
	return `fol perf -a <account> [-period <period>] [-s <date>] [-d <date>] [-r <rate>]

  Computes time-weighted and money-weighted returns, maximum drawdown and
  Sharpe ratio over the period.
`
}

func (c *perfCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account to report on")
	f.StringVar(&c.period, "period", folio.Yearly.String(), "Predefined period (day, week, month, quarter, year)")
	f.StringVar(&c.start, "s", "", "Start date of the period, overrides -period (YYYY-MM-DD)")
	f.StringVar(&c.end, "d", folio.Today().String(), "End date of the period (YYYY-MM-DD)")
	f.Float64Var(&c.riskFree, "r", 0, "Periodic risk-free rate for the Sharpe ratio")
}

func (c *perfCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	report, err := system.Performance(ctx, c.account, rng, c.riskFree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing performance: %v\n", err)
		return subcommands.ExitFailure
	}

	printMarkdown(renderer.PerformanceMarkdown(report))
	return subcommands.ExitSuccess
}
