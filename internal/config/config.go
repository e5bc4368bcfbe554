// Package config loads kb's layered JSONC configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/kb/internal/board"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrBoardEmpty         = errors.New("board cannot be empty")
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Board    string `json:"board"`
	CardText string `json:"card_text,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd string         `json:"-"` // -C flag or os.Getwd
	BoardAbs     string         `json:"-"`
	TextMode     board.TextMode `json:"-"`
	Sources      Sources        `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // empty when no global config was loaded
	Project string // project or explicit (-c) config, empty when none
}

// FileName is the project config file looked up in the working directory.
const FileName = ".kb.json"

const (
	keyBoard    = "board"
	keyCardText = "card_text"
)

// Default returns the default configuration.
func Default() Config {
	return Config{
		Board:    "board.md",
		CardText: string(board.TextFull),
	}
}

// globalPath returns $XDG_CONFIG_HOME/kb/config.json, falling back to
// ~/.config/kb/config.json. Empty if neither variable is set.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "kb", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "kb", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd; os.Getwd() when empty
	ConfigPath      string            // -c/--config
	BoardOverride   string            // -b/--board; empty means no override
	Env             map[string]string // environment variables
}

// Load resolves the configuration. Later sources win:
//
//  1. Defaults
//  2. Global user config
//  3. Project config (.kb.json in the working directory), or the file
//     given with -c, which must exist
//  4. CLI overrides
//
// Paths in the result are absolute.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	} else if !filepath.IsAbs(workDir) {
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
		}

		workDir = abs
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		globalCfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = merge(cfg, globalCfg)
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false

	if input.ConfigPath != "" {
		projectPath, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}

		if _, err := os.Stat(projectPath); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, input.ConfigPath)
		}
	}

	projectCfg, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg.Sources.Project = projectPath
		cfg = merge(cfg, projectCfg)
	}

	if input.BoardOverride != "" {
		cfg.Board = input.BoardOverride
	}

	mode, err := board.ParseTextMode(cfg.CardText)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", keyCardText, err)
	}

	cfg.TextMode = mode
	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.Board) {
		cfg.BoardAbs = cfg.Board
	} else {
		cfg.BoardAbs = filepath.Join(workDir, cfg.Board)
	}

	return cfg, nil
}

// loadFile reads one config file. A missing optional file is not an error
// and reports loaded=false.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !mustExist && errors.Is(err, os.ErrNotExist) {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// An explicit "" is a mistake, not "use the default".
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	if v, ok := raw[keyBoard].(string); ok && v == "" {
		return Config{}, ErrBoardEmpty
	}

	if v, ok := raw[keyCardText].(string); ok && v == "" {
		return Config{}, fmt.Errorf("%s: %w: %q", keyCardText, board.ErrInvalidTextMode, v)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.Board != "" {
		base.Board = overlay.Board
	}

	if overlay.CardText != "" {
		base.CardText = overlay.CardText
	}

	return base
}
