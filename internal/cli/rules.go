package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/kb/internal/config"
	"github.com/calvinalkan/kb/internal/fs"
	"github.com/calvinalkan/kb/internal/sorter"
)

// RulesCmd returns the rules command.
func RulesCmd(cfg *config.Config, fsys fs.FS) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rules", flag.ContinueOnError),
		Usage: "rules",
		Short: "Show the compiled gather rules of every column",
		Long: `Show how every column header compiles, in the order columns are tried.
Dropped clauses are reported as warnings.`,
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execRules(io, cfg, fsys)
		},
	}
}

func execRules(o *IO, cfg *config.Config, fsys fs.FS) error {
	b, mode, err := loadBoard(fsys, cfg)
	if err != nil {
		return err
	}

	rules, fallback, diags := sorter.Compile(b.Snapshot(mode))
	warnDiagnostics(o, b, diags)

	for i, r := range rules {
		o.Printf("%s  %s\n", r.ColumnID, b.Columns[i].Header)

		if !r.Empty() {
			o.Println("    gather:", r.RuleSet.String())
		}

		if r.ColumnID == fallback {
			o.Println("    fallback")
		}
	}

	return nil
}
