// Package cmd implements the CLI application to manage a portfolio ledger.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/fincore/folio"
)

// Register the subcommands.
// A main package calls Register() and then Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "ledger")
	c.Register(&logCmd{}, "ledger")

	c.Register(&holdingCmd{}, "reports")
	c.Register(&historyCmd{}, "reports")
	c.Register(&gainsCmd{}, "reports")
	c.Register(&perfCmd{}, "reports")

	c.Register(&fetchCmd{}, "prices")
}

// CommandNames lists the registered subcommand names, for completion and
// extension dispatch.
func CommandNames() []string {
	return []string{"import", "log", "holding", "history", "gains", "perf", "fetch"}
}

// As a CLI application it has a very short lived lifecycle, so it is ok to use
// global variables.

var ledgerFile = flag.String("ledger-file", "ledger.jsonl", "Path to the transaction ledger (JSONL, or SQLite when the name ends in .db)")
var actionsFile = flag.String("actions-file", "actions.jsonl", "Path to the corporate actions file (JSONL format)")
var pricesFile = flag.String("prices-file", "prices.jsonl", "Path to the quotes file (JSONL format)")
var staleDays = flag.Int("stale-days", 5, "Age in days beyond which a carried-forward quote is flagged stale")
var Verbose = flag.Bool("v", false, "Verbose logging")

// Logger builds the application logger according to the -v flag.
func Logger() *zap.Logger {
	if !*Verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// OpenStore opens the ledger store named by the -ledger-file flag. Files
// ending in .db are SQLite databases, anything else is an append-only JSONL
// log.
func OpenStore() (folio.Store, error) {
	if strings.HasSuffix(*ledgerFile, ".db") {
		return folio.OpenSQLiteStore(*ledgerFile, Logger())
	}
	return folio.NewFileStore(*ledgerFile, Logger()), nil
}

// LoadSystem loads the ledger, the corporate actions and the quotes into a
// ready-to-query accounting system. The caller must Close the returned store.
func LoadSystem() (*folio.System, folio.Store, error) {
	store, err := OpenStore()
	if err != nil {
		return nil, nil, err
	}
	ledger, err := store.Load()
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("loading ledger %q: %w", *ledgerFile, err)
	}

	table, err := loadPrices()
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	system := folio.NewSystem(ledger, table, Logger())

	actions, err := loadActions()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	system.AddActions(actions...)

	return system, store, nil
}

func loadActions() ([]folio.CorporateAction, error) {
	f, err := os.Open(*actionsFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading actions %q: %w", *actionsFile, err)
	}
	defer f.Close()
	return folio.DecodeActions(f)
}

func loadPrices() (*folio.PriceTable, error) {
	f, err := os.Open(*pricesFile)
	if errors.Is(err, fs.ErrNotExist) {
		return folio.NewPriceTable(*staleDays), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading prices %q: %w", *pricesFile, err)
	}
	defer f.Close()
	return folio.DecodePrices(f, *staleDays)
}

// printMarkdown renders a markdown report for the terminal. When rendering
// fails (no TTY, unknown style) the raw markdown is printed instead.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
