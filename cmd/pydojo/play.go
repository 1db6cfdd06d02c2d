package main

import (
	"time"

	"github.com/spf13/cobra"

	"pydojo/internal/app"
	"pydojo/internal/ui"
)

var playCmd = &cobra.Command{
	Use:   "play [lesson-id]",
	Short: "Open the interactive lesson view",
	Long: `Open a lesson in the full-screen editor.

Without a lesson id, PyDojo resumes where you left off.

Keys:
  ctrl+r  run your code
  ctrl+s  show the solution (after two failed runs)
  ctrl+t  reset to the starter code
  esc     save and quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		a.Start(ctx)

		var view app.LessonView
		if len(args) == 1 {
			view, err = a.OpenLesson(ctx, args[0])
		} else {
			view, err = a.Resume(ctx)
		}
		if err != nil {
			return err
		}

		cfg := a.Config()
		return ui.New(ctx, a, view, ui.Options{
			StyleVariant: cfg.UI.StyleVariant,
			ASCIIOnly:    cfg.UI.ASCIIOnly,
			Debounce:     time.Duration(cfg.Gameplay.AutosaveDebounceMS) * time.Millisecond,
			Debug:        cfg.LogLevel == "debug",
		}).Run()
	},
}
