package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/kb/internal/config"
	"github.com/calvinalkan/kb/internal/fs"
	"github.com/calvinalkan/kb/internal/sorter"
)

const defaultDebounce = 200 * time.Millisecond

// WatchCmd returns the watch command.
func WatchCmd(cfg *config.Config, fsys fs.FS) *Command {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	addTodayFlag(flags)
	flags.Duration("debounce", defaultDebounce, "Wait this long after the last change before sorting")

	return &Command{
		Flags: flags,
		Usage: "watch [flags]",
		Short: "Print the moves a sort would make whenever the board changes",
		Long: `Watch the board file and run a dry sort pass after every change.
The board is never written. Stop with Ctrl-C.`,
		Exec: func(ctx context.Context, io *IO, _ []string) error {
			return execWatch(ctx, io, cfg, fsys, flags)
		},
	}
}

func execWatch(ctx context.Context, o *IO, cfg *config.Config, fsys fs.FS, flags *flag.FlagSet) error {
	if _, err := today(flags); err != nil {
		return err
	}

	debounce, _ := flags.GetDuration("debounce")
	if debounce <= 0 {
		return fmt.Errorf("--debounce must be positive, got %s", debounce)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	// Watch the directory: atomic saves replace the file, which would
	// drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(cfg.BoardAbs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(cfg.BoardAbs), err)
	}

	pass := func() {
		watchPass(o, cfg, fsys, flags)
	}

	pass()

	return watchLoop(ctx, watcher.Events, watcher.Errors, cfg.BoardAbs, debounce, pass)
}

// watchPass runs one dry sort and prints its result. Problems are printed
// right away instead of being collected, since the command never finishes
// on its own.
//
// A missing board is waited for. A pass is skipped while "sort --write"
// holds the board lock; its save triggers the next pass.
func watchPass(o *IO, cfg *config.Config, fsys fs.FS, flags *flag.FlagSet) {
	day, _ := today(flags)

	o.Printf("# %s sort as of %s\n", time.Now().Format(time.TimeOnly), day)

	exists, err := fsys.Exists(cfg.BoardAbs)
	if err != nil {
		o.ErrPrintln("error:", err)

		return
	}

	if !exists {
		o.Printf("waiting for %s\n", cfg.BoardAbs)

		return
	}

	lock, err := fs.NewLocker(fsys).TryLock(cfg.BoardAbs + lockSuffix)
	if errors.Is(err, fs.ErrWouldBlock) {
		o.Println("board is being written, skipped")

		return
	}

	if err != nil {
		o.ErrPrintln("error:", err)

		return
	}

	defer func() { _ = lock.Close() }()

	b, mode, err := loadBoard(fsys, cfg)
	if err != nil {
		o.ErrPrintln("error:", err)

		return
	}

	plan := sorter.Sort(b.Snapshot(mode), day)

	for _, d := range plan.Diagnostics {
		o.ErrPrintln("warning:", diagnosticLine(b, d))
	}

	printMoves(o, b, plan)
}

// watchLoop calls run once the board at path has been quiet for debounce
// after a change. It returns nil when ctx is cancelled.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, path string, debounce time.Duration, run func()) error {
	timer := time.NewTimer(debounce)
	timer.Stop()

	defer timer.Stop()

	path = filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != path {
				continue
			}

			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}

			timer.Reset(debounce)

		case err, ok := <-errs:
			if !ok {
				return nil
			}

			return fmt.Errorf("watching board: %w", err)

		case <-timer.C:
			run()
		}
	}
}
