package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pydojo/internal/app"
	"pydojo/internal/lessons"
)

var quizAnswers string

var quizCmd = &cobra.Command{
	Use:   "quiz <level> --answers 1,0,2,...",
	Short: "Take a level quiz",
	Long: `Score a level quiz. Without --answers the questions are printed.

<level> is the quiz number (1, 2, ...) or its full level id.
Answers are zero-based option indexes, one per question.

Example:
  pydojo quiz 1
  pydojo quiz 1 --answers 1,1,1,2,1,1,2,2,1,1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		quiz, err := pickQuiz(a, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if quizAnswers == "" {
			printQuiz(cmd, quiz)
			return nil
		}
		answers, err := parseAnswers(quizAnswers)
		if err != nil {
			return err
		}
		res, err := a.TakeQuiz(cmd.Context(), quiz.LevelID, answers)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d/%d\n%s\n", quiz.LevelName, res.Result.Score, res.Result.Total, res.Message)
		for _, m := range res.Result.Missed {
			fmt.Fprintf(out, "\n%s: you chose %d, answer %d\n  %s\n", m.QuestionID, m.Chosen, m.Correct, m.Explanation)
		}
		if res.Credit.XPAwarded > 0 {
			fmt.Fprintf(out, "\n+%d XP\n", res.Credit.XPAwarded)
		}
		return nil
	},
}

func init() {
	quizCmd.Flags().StringVar(&quizAnswers, "answers", "", "comma separated option indexes")
}

func pickQuiz(a *app.App, arg string) (lessons.Quiz, error) {
	quizzes := a.Quizzes()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(quizzes) {
			return lessons.Quiz{}, fmt.Errorf("%w: quiz %d (have %d)", lessons.ErrNoQuiz, n, len(quizzes))
		}
		return quizzes[n-1], nil
	}
	for _, q := range quizzes {
		if strings.EqualFold(q.LevelID, strings.TrimSpace(arg)) {
			return q, nil
		}
	}
	return lessons.Quiz{}, fmt.Errorf("%w: %s", lessons.ErrNoQuiz, arg)
}

func parseAnswers(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid answer %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func printQuiz(cmd *cobra.Command, q lessons.Quiz) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (pass with %d/%d, %d XP)\n", q.LevelName, q.PassScore, len(q.Questions), q.XP)
	for i, question := range q.Questions {
		fmt.Fprintf(out, "\n%d. %s\n", i+1, question.Question)
		for j, opt := range question.Options {
			fmt.Fprintf(out, "   %d) %s\n", j, opt)
		}
	}
}
