package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/kb/internal/calendar"
	"github.com/calvinalkan/kb/internal/card"
	"github.com/calvinalkan/kb/internal/config"
	"github.com/calvinalkan/kb/internal/fs"
)

// FactsCmd returns the facts command.
func FactsCmd(cfg *config.Config, fsys fs.FS) *Command {
	flags := flag.NewFlagSet("facts", flag.ContinueOnError)
	addTodayFlag(flags)

	return &Command{
		Flags: flags,
		Usage: "facts [flags]",
		Short: "Show the tags extracted from every card",
		Long: `Show what the sorter sees on every card: due date with its day offset,
weekday and month, other typed dates, persons and the sticky flag.
Cards without a due date or person are marked unclassifiable.`,
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execFacts(io, cfg, fsys, flags)
		},
	}
}

func execFacts(o *IO, cfg *config.Config, fsys fs.FS, flags *flag.FlagSet) error {
	day, err := today(flags)
	if err != nil {
		return err
	}

	b, mode, err := loadBoard(fsys, cfg)
	if err != nil {
		return err
	}

	for _, col := range b.Columns {
		for _, c := range col.Cards {
			o.Printf("%s  %s  %s\n", c.ID, formatFacts(card.Extract(c.Text(mode)), day), c.Title)
		}
	}

	return nil
}

// formatFacts renders facts as space separated key=value pairs, e.g.
// "due=2025-03-11 dayoffset=1 weekday=tue month=mar persons=karl".
func formatFacts(f card.Facts, today calendar.Date) string {
	var parts []string

	if f.Due != nil {
		parts = append(parts,
			"due="+f.Due.String(),
			fmt.Sprintf("dayoffset=%d", f.Due.Offset(today)),
			"weekday="+f.Due.WeekdayAbbrev(),
			"month="+f.Due.MonthAbbrev(),
		)
	}

	for _, typ := range slices.Sorted(maps.Keys(f.Dates)) {
		parts = append(parts, typ+"="+f.Dates[typ].String())
	}

	if len(f.Persons) > 0 {
		parts = append(parts, "persons="+strings.Join(f.Persons, ","))
	}

	if f.Sticky {
		parts = append(parts, "sticky")
	}

	if !f.Classifiable() {
		parts = append(parts, "unclassifiable")
	}

	return strings.Join(parts, " ")
}
