package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/kb/internal/board"
	"github.com/calvinalkan/kb/internal/calendar"
	"github.com/calvinalkan/kb/internal/config"
	"github.com/calvinalkan/kb/internal/fs"
	"github.com/calvinalkan/kb/internal/sorter"
)

var (
	errBoardNotFound = errors.New("board not found")
	errInvalidToday  = errors.New("invalid --today (want YYYY-MM-DD)")
)

const (
	todayFlag   = "today"
	lockSuffix  = ".lock"
	lockTimeout = 5 * time.Second
)

// addTodayFlag registers --today on a command's flag set.
func addTodayFlag(flags *flag.FlagSet) {
	flags.String(todayFlag, "", "Evaluate day offsets as of `date` (YYYY-MM-DD, default: local date)")
}

// today returns --today if given, else the local calendar date. Read it
// once per sort pass.
func today(flags *flag.FlagSet) (calendar.Date, error) {
	if !flags.Changed(todayFlag) {
		return calendar.FromTime(time.Now()), nil
	}

	s, _ := flags.GetString(todayFlag)

	d, ok := calendar.Parse(s)
	if !ok {
		return calendar.Date{}, fmt.Errorf("%w: %q", errInvalidToday, s)
	}

	return d, nil
}

// loadBoard reads and parses the configured board. The frontmatter
// card-text key wins over the configured text mode.
func loadBoard(fsys fs.FS, cfg *config.Config) (*board.Board, board.TextMode, error) {
	data, err := fsys.ReadFile(cfg.BoardAbs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", errBoardNotFound, cfg.BoardAbs)
		}

		return nil, "", fmt.Errorf("reading board: %w", err)
	}

	b, err := board.Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", cfg.BoardAbs, err)
	}

	mode, ok, err := b.TextMode()
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", cfg.BoardAbs, err)
	}

	if !ok {
		mode = cfg.TextMode
	}

	return b, mode, nil
}

// warnDiagnostics turns header problems into warnings. The sort still runs
// without the offending clauses.
func warnDiagnostics(o *IO, b *board.Board, diags []sorter.ColumnDiagnostic) {
	for _, d := range diags {
		o.Warn(diagnosticLine(b, d), "fix or remove the tag")
	}
}

func diagnosticLine(b *board.Board, d sorter.ColumnDiagnostic) string {
	name := d.ColumnID
	if col, ok := b.Column(d.ColumnID); ok {
		name = fmt.Sprintf("%s (%s)", d.ColumnID, col.Header)
	}

	return "column " + name + ": " + d.Diagnostic.String()
}
