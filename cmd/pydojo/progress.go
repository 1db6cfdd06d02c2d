package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pydojo/internal/app"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show your level, XP, streak and daily goal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		p, err := a.Profile(ctx)
		if err != nil {
			return err
		}
		s, err := a.Summary(ctx)
		if err != nil {
			return err
		}
		last, err := a.LastRun(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		name := p.Name
		if name == "" {
			name = "Learner"
		}
		fmt.Fprintf(out, "%s, level %d with %s XP\n", name, p.Level, humanize.Comma(int64(p.XP)))
		fmt.Fprintf(out, "Streak: %d day(s)\n", p.Streak)
		fmt.Fprintf(out, "Today: %d/%d lessons. %s\n", p.TodayCount, p.DailyGoal, app.GoalMessage(p))
		fmt.Fprintf(out, "Lessons completed: %d   Quizzes passed: %d\n", s.LessonsCompleted, s.QuizzesPassed)
		fmt.Fprintf(out, "Runs: %d   Passing runs: %d   Solutions revealed: %d\n", s.Attempts, s.Passes, s.Reveals)
		if last != nil {
			fmt.Fprintf(out, "Last lesson: %s, opened %s (%s attempt)\n",
				last.LessonID, humanize.Time(last.StartTS), humanize.Ordinal(max(1, last.Attempts)))
		}
		return nil
	},
}
