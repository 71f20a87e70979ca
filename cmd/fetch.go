package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/fincore/folio"
)

// fetchCmd holds the flags for the 'fetch' subcommand.
type fetchCmd struct {
	instrument string
	date       string
	url        string
	pricePath  string
	datePath   string
	currency   string
	timeout    time.Duration
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch a quote from a JSON endpoint into the quotes file" }
func (*fetchCmd) Usage() string {
	return `fol fetch -i <instrument> -url <template> -price-path <jsonpath> [-d <date>]

  Fetches a quote from a JSON endpoint and appends it to the quotes file.
  The URL template may contain {instrument} and {date} placeholders; the
  price and quote date are extracted with jsonpath expressions.

Usage Examples:
$ fol fetch -i AAPL -url 'https://quotes.example.com/{instrument}' -price-path '$.last' -date-path '$.date'
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.instrument, "i", "", "Instrument to fetch")
	f.StringVar(&c.date, "d", folio.Today().String(), "Quote date requested from the endpoint (YYYY-MM-DD)")
	f.StringVar(&c.url, "url", "", "Quote endpoint URL template")
	f.StringVar(&c.pricePath, "price-path", "$.price", "jsonpath expression for the price value")
	f.StringVar(&c.datePath, "date-path", "", "jsonpath expression for the quote date, optional")
	f.StringVar(&c.currency, "c", "EUR", "Currency of the quoted prices")
	f.DurationVar(&c.timeout, "timeout", 10*time.Second, "HTTP timeout")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.instrument == "" || c.url == "" {
		fmt.Fprintln(os.Stderr, "the -i and -url flags are required")
		return subcommands.ExitUsageError
	}
	asOf, err := folio.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	source := &folio.JSONPriceSource{
		Client:    &http.Client{Timeout: c.timeout},
		URL:       c.url,
		PricePath: c.pricePath,
		DatePath:  c.datePath,
		Currency:  c.currency,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	quote, err := source.Price(ctx, c.instrument, asOf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching quote: %v\n", err)
		return subcommands.ExitFailure
	}

	out, err := os.OpenFile(*pricesFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening quotes file %q: %v\n", *pricesFile, err)
		return subcommands.ExitFailure
	}
	defer out.Close()

	if err := folio.EncodePrice(out, c.instrument, quote.AsOf, quote.Price); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to quotes file %q: %v\n", *pricesFile, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Successfully appended %s %s quote to %s\n", c.instrument, quote.AsOf, *pricesFile)
	return subcommands.ExitSuccess
}
