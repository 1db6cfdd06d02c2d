package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"pydojo/internal/app"
	"pydojo/internal/sandbox"
)

var errCheckFailed = errors.New("check failed")

var checkFlags struct {
	lesson string
	json   bool
}

var checkCmd = &cobra.Command{
	Use:   "check --lesson <lesson-id> <file>",
	Short: "Run a Python file against a lesson's checks",
	Long: `Run a file once against a lesson and print the verdict.

The exit code is 1 when the submission does not pass. Lines on stdin answer
input() calls in order. Use "-" as the file to read the program from stdin.
A program still waiting on input() when the run time limit passes is stopped
and reported as a timeout.

Example:
  pydojo check --lesson l1-t1 main.py`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkFlags.lesson == "" {
			return errors.New("--lesson is required")
		}
		source, err := readSource(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		var stdin sandbox.StdinFunc
		if args[0] != "-" {
			stdin = lineReader(cmd.InOrStdin())
		}

		a, err := openApp(cmd, func(c *app.Config) { c.Stdin = stdin })
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if _, err := a.OpenLesson(ctx, checkFlags.lesson); err != nil {
			return err
		}
		sub, err := a.Submit(ctx, source)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if checkFlags.json {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(sub.Result); err != nil {
				return err
			}
		} else {
			printSubmission(out, sub)
		}
		if !sub.Result.Passed() {
			return errCheckFailed
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFlags.lesson, "lesson", "", "lesson id to check against")
	checkCmd.Flags().BoolVar(&checkFlags.json, "json", false, "print the raw result as JSON")
}

func readSource(stdin io.Reader, name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// lineReader answers input() calls one line at a time. Reads are
// serialized: a read abandoned by a timed-out run still owns the reader
// until its line arrives.
func lineReader(r io.Reader) sandbox.StdinFunc {
	br := bufio.NewReader(r)
	var mu sync.Mutex
	return func(string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

func printSubmission(w io.Writer, sub app.Submission) {
	res := sub.Result
	fmt.Fprintf(w, "%s  %s\n", strings.ToUpper(string(res.Outcome)), sub.Message)
	if res.Output != "" {
		fmt.Fprintf(w, "\n--- output ---\n%s", res.Output)
		if !strings.HasSuffix(res.Output, "\n") {
			fmt.Fprintln(w)
		}
	}
	if res.Error != "" && res.Error != sub.Message {
		fmt.Fprintf(w, "\n--- error ---\n%s\n", res.Error)
	}
	for _, c := range res.Checks {
		status := "ok  "
		if !c.Passed {
			status = "miss"
		}
		fmt.Fprintf(w, "%s %q\n", status, c.Expected)
	}
	if sub.Credit != nil && sub.Credit.XPAwarded > 0 {
		fmt.Fprintf(w, "\n+%d XP\n", sub.Credit.XPAwarded)
	}
	if sub.Advice != "" {
		fmt.Fprintf(w, "\nKofi: %s\n", sub.Advice)
	}
}
