package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/kb/internal/board"
	"github.com/calvinalkan/kb/internal/calendar"
	"github.com/calvinalkan/kb/internal/config"
	"github.com/calvinalkan/kb/internal/fs"
	"github.com/calvinalkan/kb/internal/sorter"
)

var errConfirmNeedsWrite = errors.New("--confirm requires --write")

// SortCmd returns the sort command.
func SortCmd(cfg *config.Config, fsys fs.FS) *Command {
	flags := flag.NewFlagSet("sort", flag.ContinueOnError)
	addTodayFlag(flags)
	flags.BoolP("write", "w", false, "Apply the moves and rewrite the board")
	flags.Bool("confirm", false, "Ask before writing (with --write)")
	flags.Bool("json", false, "Print the full plan as JSON")

	return &Command{
		Flags: flags,
		Usage: "sort [flags]",
		Short: "Gather cards into the columns whose rules match",
		Long: `Run one gather pass over the board.

Every card goes to the first column (top to bottom) whose #gather_ rules
match its @-tags; unmatched cards go to the #ungathered/#unsorted column.
Sticky and untagged cards stay put. Without --write the board is not
touched and the moves are only printed.`,
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execSort(io, cfg, fsys, flags)
		},
	}
}

func execSort(o *IO, cfg *config.Config, fsys fs.FS, flags *flag.FlagSet) error {
	write, _ := flags.GetBool("write")
	confirm, _ := flags.GetBool("confirm")
	asJSON, _ := flags.GetBool("json")

	if confirm && !write {
		return errConfirmNeedsWrite
	}

	day, err := today(flags)
	if err != nil {
		return err
	}

	if write {
		lock, lockErr := fs.NewLocker(fsys).LockWithTimeout(cfg.BoardAbs+lockSuffix, lockTimeout)
		if lockErr != nil {
			return fmt.Errorf("locking board: %w", lockErr)
		}

		defer func() { _ = lock.Close() }()
	}

	b, mode, err := loadBoard(fsys, cfg)
	if err != nil {
		return err
	}

	plan := sorter.Sort(b.Snapshot(mode), day)
	warnDiagnostics(o, b, plan.Diagnostics)

	if asJSON {
		if err := printPlanJSON(o, b, plan, day); err != nil {
			return err
		}
	} else {
		printMoves(o, b, plan)
	}

	if !write || len(plan.Moves()) == 0 {
		return nil
	}

	if confirm {
		ok, err := ask(o, fmt.Sprintf("Move %d card(s) in %s? [y/N] ", len(plan.Moves()), cfg.BoardAbs))
		if err != nil {
			return err
		}

		if !ok {
			o.Println("aborted, board unchanged")

			return nil
		}
	}

	sorted, moved, err := b.Apply(plan)
	if err != nil {
		return err
	}

	if err := fsys.WriteFileAtomic(cfg.BoardAbs, sorted.Render()); err != nil {
		return fmt.Errorf("writing board: %w", err)
	}

	if !asJSON {
		o.Printf("wrote %s (%d moved)\n", cfg.BoardAbs, moved)
	}

	return nil
}

func printMoves(o *IO, b *board.Board, plan sorter.Plan) {
	moves := plan.Moves()
	if len(moves) == 0 {
		o.Println("no moves")

		return
	}

	cards := b.CardsByID()

	for _, pl := range moves {
		c := cards[pl.CardID]
		o.Printf("%s %s -> %s  %s\n", pl.CardID, pl.From, pl.Target, c.Title)
	}
}

type placementJSON struct {
	Card   string `json:"card"`
	Title  string `json:"title"`
	From   string `json:"from"`
	Target string `json:"target,omitempty"`
	Reason string `json:"reason"`
	Moved  bool   `json:"moved"`
}

type planJSON struct {
	Today       string          `json:"today"`
	Fallback    string          `json:"fallback,omitempty"`
	Placements  []placementJSON `json:"placements"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
}

func printPlanJSON(o *IO, b *board.Board, plan sorter.Plan, day calendar.Date) error {
	out := planJSON{
		Today:      day.String(),
		Fallback:   plan.Fallback,
		Placements: make([]placementJSON, 0, len(plan.Placements)),
	}

	cards := b.CardsByID()

	for _, pl := range plan.Placements {
		c := cards[pl.CardID]
		out.Placements = append(out.Placements, placementJSON{
			Card:   pl.CardID,
			Title:  c.Title,
			From:   pl.From,
			Target: pl.Target,
			Reason: string(pl.Reason),
			Moved:  pl.Moved(),
		})
	}

	for _, d := range plan.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, diagnosticLine(b, d))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}

	o.Println(string(data))

	return nil
}

// ask reads a yes/no answer. On the process's own stdin it uses a line
// editor; any other reader (tests, pipes set up by callers) is read
// line-wise. No input means no.
func ask(o *IO, question string) (bool, error) {
	var answer string

	switch in := o.in.(type) {
	case nil:
		return false, nil
	case *os.File:
		if in != os.Stdin {
			return readAnswer(o, in, question)
		}

		line := liner.NewLiner()
		defer line.Close()

		line.SetCtrlCAborts(true)

		a, err := line.Prompt(question)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return false, nil
		}

		if err != nil {
			return false, fmt.Errorf("reading answer: %w", err)
		}

		answer = a
	default:
		return readAnswer(o, in, question)
	}

	return isYes(answer), nil
}

func readAnswer(o *IO, in io.Reader, question string) (bool, error) {
	o.Printf("%s", question)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}

	o.Println()

	return isYes(answer), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
