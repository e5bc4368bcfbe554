package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/kb/internal/board"
	"github.com/calvinalkan/kb/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func Test_Load_Defaults_When_No_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := config.Load(config.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := config.Config{
		Board:        "board.md",
		CardText:     "full",
		EffectiveCwd: dir,
		BoardAbs:     filepath.Join(dir, "board.md"),
		TextMode:     board.TextFull,
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func Test_Load_Precedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		global       string
		project      string
		explicit     string
		boardFlag    string
		wantBoard    string
		wantCardText board.TextMode
	}{
		{
			name:         "global only",
			global:       `{"board": "global.md", "card_text": "title"}`,
			wantBoard:    "global.md",
			wantCardText: board.TextTitle,
		},
		{
			name:         "project beats global",
			global:       `{"board": "global.md", "card_text": "title"}`,
			project:      `{"board": "project.md"}`,
			wantBoard:    "project.md",
			wantCardText: board.TextTitle,
		},
		{
			name:         "explicit file replaces project file",
			project:      `{"board": "project.md"}`,
			explicit:     `{"card_text": "title"}`,
			wantBoard:    "board.md",
			wantCardText: board.TextTitle,
		},
		{
			name:         "flag beats everything",
			global:       `{"board": "global.md"}`,
			project:      `{"board": "project.md"}`,
			boardFlag:    "flag.md",
			wantBoard:    "flag.md",
			wantCardText: board.TextFull,
		},
		{
			name: "comments and trailing commas",
			project: `{
				// the weekly board
				"board": "weekly.md",
			}`,
			wantBoard:    "weekly.md",
			wantCardText: board.TextFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			xdg := t.TempDir()
			input := config.LoadInput{
				WorkDirOverride: dir,
				BoardOverride:   tt.boardFlag,
				Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
			}

			if tt.global != "" {
				writeFile(t, filepath.Join(xdg, "kb", "config.json"), tt.global)
			}

			if tt.project != "" {
				writeFile(t, filepath.Join(dir, config.FileName), tt.project)
			}

			if tt.explicit != "" {
				writeFile(t, filepath.Join(dir, "custom.json"), tt.explicit)
				input.ConfigPath = "custom.json"
			}

			cfg, err := config.Load(input)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			if got, want := cfg.Board, tt.wantBoard; got != want {
				t.Errorf("Board=%q, want=%q", got, want)
			}

			if got, want := cfg.BoardAbs, filepath.Join(dir, tt.wantBoard); got != want {
				t.Errorf("BoardAbs=%q, want=%q", got, want)
			}

			if got, want := cfg.TextMode, tt.wantCardText; got != want {
				t.Errorf("TextMode=%q, want=%q", got, want)
			}
		})
	}
}

func Test_Load_Records_Sources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	home := t.TempDir()
	globalPath := filepath.Join(home, ".config", "kb", "config.json")

	writeFile(t, globalPath, `{}`)
	writeFile(t, filepath.Join(dir, config.FileName), `{}`)

	cfg, err := config.Load(config.LoadInput{WorkDirOverride: dir, Env: map[string]string{"HOME": home}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := config.Sources{Global: globalPath, Project: filepath.Join(dir, config.FileName)}
	if diff := cmp.Diff(want, cfg.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func Test_Load_Absolute_Board_Path_Is_Kept(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere.md")

	cfg, err := config.Load(config.LoadInput{WorkDirOverride: dir, BoardOverride: abs})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BoardAbs != abs {
		t.Errorf("BoardAbs=%q, want=%q", cfg.BoardAbs, abs)
	}
}

func Test_Load_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		project    string
		configPath string
		want       error
	}{
		{name: "explicit file missing", configPath: "nope.json", want: config.ErrConfigFileNotFound},
		{name: "invalid json", project: `{invalid json}`, want: config.ErrConfigInvalid},
		{name: "wrong type", project: `{"board": 3}`, want: config.ErrConfigInvalid},
		{name: "empty board", project: `{"board": ""}`, want: config.ErrBoardEmpty},
		{name: "empty card text", project: `{"card_text": ""}`, want: board.ErrInvalidTextMode},
		{name: "unknown card text", project: `{"card_text": "body"}`, want: board.ErrInvalidTextMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tt.project != "" {
				writeFile(t, filepath.Join(dir, config.FileName), tt.project)
			}

			_, err := config.Load(config.LoadInput{WorkDirOverride: dir, ConfigPath: tt.configPath})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v, want=%v", err, tt.want)
			}
		})
	}
}
