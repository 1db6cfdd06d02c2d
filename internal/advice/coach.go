package advice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

var undefinedName = regexp.MustCompile(`undefined: ([A-Za-z_][A-Za-z0-9_]*)`)

// Coach gives offline hints built from the error text and, for wrong output,
// from how far the output is from what was expected.
type Coach struct{}

func NewCoach() *Coach { return &Coach{} }

func (c *Coach) Advise(_ context.Context, req Request) string {
	lines := []string{greeting(req.LearnerName)}
	lines = append(lines, c.diagnose(req)...)
	return strings.Join(lines, " ")
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Chale,"
	}
	return "Chale " + name + ","
}

func (c *Coach) diagnose(req Request) []string {
	problem := req.Problem
	source := req.Source
	switch {
	case req.Outcome == "timeout":
		return []string{
			"your program kept running and had to be stopped.",
			"Check that every while loop changes something so its condition can become False.",
		}
	case strings.Contains(problem, "SyntaxError"):
		return syntaxHints(source)
	case strings.Contains(problem, "NameError") || undefinedName.MatchString(problem):
		if m := undefinedName.FindStringSubmatch(problem); m != nil {
			return []string{
				fmt.Sprintf("Python doesn't know the name %q yet.", m[1]),
				"If it is text, wrap it in quotes. If it is a variable, check the spelling where you created it.",
			}
		}
		return []string{"you used a name before giving it a value. Check your spelling."}
	case strings.Contains(problem, "division by zero"):
		return []string{"somewhere you divide by zero. Check the value on the right of / or //."}
	case strings.Contains(problem, "unknown binary op") || strings.Contains(problem, "want int") || strings.Contains(problem, "want string"):
		return []string{
			"you are mixing text and numbers.",
			"Use int() to turn text into a number, or str() to turn a number into text.",
		}
	case strings.Contains(problem, "not callable") || strings.Contains(problem, "has no ."):
		return []string{"check the names of the functions and methods you call, and the brackets after them."}
	case req.Outcome == "mismatch":
		return mismatchHints(req)
	case strings.TrimSpace(problem) != "":
		return []string{"read the last line of the error carefully. It tells you what went wrong, kraa."}
	default:
		return []string{"keep going, you are close!"}
	}
}

func syntaxHints(source string) []string {
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "print ") || strings.HasPrefix(trimmed, "print\"") || strings.HasPrefix(trimmed, "print'") {
			return []string{"print is a function, so what you print must go inside ( and )."}
		}
		if strings.Count(trimmed, "\"")%2 == 1 || strings.Count(trimmed, "'")%2 == 1 {
			return []string{"one of your quotes is not closed. Every opening quote needs a partner."}
		}
		if strings.Count(trimmed, "(") != strings.Count(trimmed, ")") {
			return []string{"your brackets don't balance. Count the ( and ) on each line."}
		}
		for _, kw := range []string{"if ", "elif ", "else", "for ", "while ", "def "} {
			if strings.HasPrefix(trimmed, kw) && !strings.HasSuffix(trimmed, ":") {
				return []string{"a line starting with " + strings.TrimSpace(kw) + " must end with a colon (:)."}
			}
		}
	}
	return []string{"Python is asking for better manners. Check brackets, quotes, colons and indentation."}
}

func mismatchHints(req Request) []string {
	out := strings.TrimSpace(req.Output)
	if out == "" {
		return []string{"your program didn't print anything. Use print() to show the answer."}
	}
	lowerOut := strings.ToLower(out)
	for i, expected := range req.Expected {
		want := strings.ToLower(strings.TrimSpace(expected))
		if want == "" || strings.Contains(lowerOut, want) {
			continue
		}
		if nearMiss(lowerOut, want) {
			return []string{"so close! Compare your output letter by letter, including spaces and punctuation."}
		}
		if i < len(req.Hints) && strings.TrimSpace(req.Hints[i]) != "" {
			return []string{"not quite. Hint: " + strings.TrimSpace(req.Hints[i])}
		}
	}
	return []string{"the output doesn't match what the challenge asked for. Read the challenge again."}
}

// nearMiss reports whether some line of out is within a small edit distance
// of want.
func nearMiss(out, want string) bool {
	limit := max(2, len(want)/5)
	for _, line := range strings.Split(out, "\n") {
		if levenshtein.ComputeDistance(strings.TrimSpace(line), want) <= limit {
			return true
		}
	}
	return levenshtein.ComputeDistance(out, want) <= limit
}
