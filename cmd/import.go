package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/fincore/folio"
	"github.com/fincore/folio/renderer"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	account string
	file    string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import a batch of transactions into the ledger" }
func (*importCmd) Usage() string {
	return `fol import -a <account> [-f <file>]

  Imports a batch of normalized transaction records (JSONL) into the ledger.
  Importing the same file twice is safe: records already present are
  deduplicated, not duplicated. Reads stdin when no file is given.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account to import into")
	f.StringVar(&c.file, "f", "", "Batch file to import. Reads stdin by default.")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		fmt.Fprintln(os.Stderr, "the -a flag is required")
		return subcommands.ExitUsageError
	}

	in := os.Stdin
	if c.file != "" {
		var err error
		if in, err = os.Open(c.file); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening batch file %q: %v\n", c.file, err)
			return subcommands.ExitFailure
		}
		defer in.Close()
	}

	records, err := decodeBatch(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading batch: %v\n", err)
		return subcommands.ExitFailure
	}

	system, store, err := LoadSystem()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	before := system.Ledger.Len()
	report, err := system.ImportBatch(ctx, c.account, records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing batch: %v\n", err)
		return subcommands.ExitFailure
	}

	// Persist only the records this batch actually committed; deduplicated
	// ones are already in the store. Counting past the pre-import length is
	// valid because this process is the sole writer: the in-memory ledger was
	// loaded from the store and nothing else appends between Len and here.
	view := system.Ledger.Snapshot()
	i := 0
	for rec := range view.All() {
		if i++; i <= before {
			continue
		}
		if err := store.AppendRecord(rec); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to ledger %q: %v\n", *ledgerFile, err)
			return subcommands.ExitFailure
		}
	}

	printMarkdown(renderer.ImportMarkdown(report))
	if len(report.Rejected) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// decodeBatch reads one transaction record per line.
func decodeBatch(r *os.File) ([]folio.TransactionRecord, error) {
	var records []folio.TransactionRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec folio.TransactionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("batch line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
