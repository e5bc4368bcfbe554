// Package cli implements the kb command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/kb/internal/config"
	"github.com/calvinalkan/kb/internal/fs"
)

var errNoCommand = errors.New("no command provided")

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. When it delivers, the command's context is cancelled;
// long-running commands (watch) return cleanly.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("kb", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	boardPath := globals.StringP("board", "b", "", "Board `file` (overrides config)")
	help := globals.BoolP("help", "h", false, "Show help")

	cfg := &config.Config{}
	fsys := fs.NewReal()
	commands := []*Command{
		SortCmd(cfg, fsys),
		FactsCmd(cfg, fsys),
		RulesCmd(cfg, fsys),
		WatchCmd(cfg, fsys),
		PrintConfigCmd(cfg),
	}

	if len(args) > 0 {
		args = args[1:]
	}

	if err := globals.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		printGlobalFlags(errOut, globals)

		return 1
	}

	rest := globals.Args()

	if *help || len(args) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	if len(rest) == 0 {
		fprintln(errOut, "error:", errNoCommand)
		printUsage(errOut, globals, commands)

		return 1
	}

	if globals.Changed("board") && *boardPath == "" {
		fprintln(errOut, "error:", config.ErrBoardEmpty)
		printGlobalFlags(errOut, globals)

		return 1
	}

	var cmd *Command

	for _, c := range commands {
		if c.Name() == rest[0] {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		printUsage(errOut, globals, commands)

		return 1
	}

	loaded, err := config.Load(config.LoadInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		BoardOverride:   *boardPath,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	*cfg = loaded

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return cmd.Run(ctx, NewIO(stdin, out, errOut), rest[1:])
}

func printGlobalFlags(w io.Writer, globals *flag.FlagSet) {
	fprintln(w)
	fprintln(w, "Global flags:")
	fprintln(w, globals.FlagUsages())
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, "kb - markdown kanban board with tag-driven card gathering")
	fprintln(w)
	fprintln(w, "Usage: kb [global flags] <command> [args]")
	printGlobalFlags(w, globals)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}

	fprintln(w)
	fprintln(w, `Run "kb <command> --help" for command flags.`)
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}
