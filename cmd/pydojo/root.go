package main

import (
	"github.com/spf13/cobra"

	"pydojo/internal/app"
)

var flags struct {
	dataDir  string
	logPath  string
	packsDir string
	indexURL string
	style    string
	ascii    bool
}

var rootCmd = &cobra.Command{
	Use:   "pydojo",
	Short: "Learn Python one lesson at a time, right in your terminal",
	Long: `PyDojo - Python lessons with a mentor in your terminal

Write small programs, run them against each lesson's checks, and earn XP.
Fail twice in a row and the solution unlocks.

Quick Start:
  1. Start learning:    pydojo play
  2. Check a file:      pydojo check --lesson l1-t1 main.py
  3. See your progress: pydojo progress`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.dataDir, "data-dir", "", "where progress is stored (default ~/.local/share/pydojo)")
	pf.StringVar(&flags.logPath, "log", "", "write JSON logs to this file")
	pf.StringVar(&flags.packsDir, "packs", "", "extra lesson packs directory")
	pf.StringVar(&flags.indexURL, "index-url", "", "load the interpreter prelude from this URL or directory")
	pf.StringVar(&flags.style, "style", "", "ui style: modern_arcade, cozy_clean or retro_terminal")
	pf.BoolVar(&flags.ascii, "ascii", false, "avoid unicode borders and marks")

	rootCmd.AddCommand(playCmd, checkCmd, lessonsCmd, progressCmd, quizCmd, goalCmd)
}

// loadConfig layers defaults, environment, then flags the user set.
func loadConfig(cmd *cobra.Command) (app.Config, error) {
	cfg, err := app.LoadEnv(app.DefaultConfig())
	if err != nil {
		return cfg, err
	}
	changed := cmd.Flags().Changed
	if changed("data-dir") {
		cfg.DataDir = flags.dataDir
	}
	if changed("log") {
		cfg.LogPath = flags.logPath
	}
	if changed("packs") {
		cfg.PacksDir = flags.packsDir
	}
	if changed("index-url") {
		cfg.IndexURL = flags.indexURL
	}
	if changed("style") {
		cfg.UI.StyleVariant = flags.style
	}
	if changed("ascii") {
		cfg.UI.ASCIIOnly = flags.ascii
	}
	return cfg, cfg.Validate()
}

func openApp(cmd *cobra.Command, mutate ...func(*app.Config)) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return app.New(cfg)
}

func mark(done, ascii bool) string {
	switch {
	case done && ascii:
		return "[x]"
	case done:
		return "✓"
	case ascii:
		return "[ ]"
	default:
		return "·"
	}
}
