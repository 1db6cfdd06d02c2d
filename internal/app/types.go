package app

import (
	"errors"

	"pydojo/internal/grading"
	"pydojo/internal/lessons"
	"pydojo/internal/state"
)

const (
	PassMessage   = "Akwaaba! Your code is perfect. Level up, Chale! 🇬🇭🎉"
	RevealMessage = "Don't worry kraa, we all get stuck! Here is the solution. Study it and let's move forward! 🇬🇭"
)

var (
	// ErrRevealLocked means the solution cannot be shown yet for the open lesson.
	ErrRevealLocked = errors.New("solution is locked until more attempts fail")
	ErrNoOpenLesson = errors.New("no lesson is open")
)

type LessonView struct {
	Lesson    lessons.Lesson
	Code      string
	FromDraft bool
	Completed bool
	Profile   state.Profile
}

type LessonSummary struct {
	LessonID  string
	Title     string
	Region    string
	XP        int
	Completed bool
}

type Submission struct {
	Result  grading.Result
	Message string
	Advice  string

	Streak    int
	CanReveal bool
	// Stale is set when another lesson was opened while this submission
	// was being graded. Streak and CanReveal are then left zero.
	Stale bool

	// Credit is set only for passing submissions.
	Credit  *state.Credit
	Profile state.Profile
}

type QuizOutcome struct {
	Quiz    lessons.Quiz
	Result  lessons.QuizResult
	Credit  state.Credit
	Message string
}

// Readiness reports the interpreter warm-up started by Start.
type Readiness struct {
	Started  bool
	Ready    bool
	Failed   bool
	Attempts int
	Err      error
}
