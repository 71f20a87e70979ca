// Command fol manages an investment portfolio ledger.
package main

import (
	"context"
	"flag"
	"os"
	"path"
	"slices"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/fincore/folio/cmd"
)

func main() {
	// Shell completion handles the request and exits when invoked through a
	// completion hook, and is a no-op otherwise.
	completion().Complete("fol")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")
	cmd.Register(commander)

	flag.Parse()

	// Unknown subcommands may be provided as external fol-<name> binaries.
	if sub := flag.Arg(0); sub != "" && !builtin(sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}

	os.Exit(int(commander.Execute(context.Background())))
}

func builtin(sub string) bool {
	if slices.Contains([]string{"help", "flags", "commands"}, sub) {
		return true
	}
	return slices.Contains(cmd.CommandNames(), sub)
}

func completion() *complete.Command {
	sub := make(map[string]*complete.Command, len(cmd.CommandNames()))
	for _, name := range cmd.CommandNames() {
		sub[name] = &complete.Command{}
	}
	return &complete.Command{
		Sub: sub,
		Flags: map[string]complete.Predictor{
			"ledger-file":  predict.Files("*"),
			"actions-file": predict.Files("*.jsonl"),
			"prices-file":  predict.Files("*.jsonl"),
			"stale-days":   predict.Something,
			"v":            predict.Nothing,
		},
	}
}
