package state

import (
	"context"
	"time"
)

type Store interface {
	EnsureSchema(ctx context.Context) error

	Profile(ctx context.Context, now time.Time) (Profile, error)
	UpdateIdentity(ctx context.Context, name, avatar string) error
	SetDailyGoal(ctx context.Context, goal int) error
	SetLastLesson(ctx context.Context, lessonID string) error

	StartLessonRun(ctx context.Context, run LessonRun) (int64, error)
	RecordSubmission(ctx context.Context, runID int64, sub Submission) error
	MarkRevealed(ctx context.Context, runID int64) error

	CreditLesson(ctx context.Context, lessonID string, xp int, now time.Time) (Credit, error)
	CreditQuiz(ctx context.Context, attempt QuizAttempt, now time.Time) (Credit, error)
	GetLessonProgressMap(ctx context.Context) (map[string]LessonProgress, error)
	GetQuizCompletions(ctx context.Context) (map[string]QuizCompletion, error)

	SaveDraft(ctx context.Context, lessonID, code string, at time.Time) error
	LoadDraft(ctx context.Context, lessonID string) (string, bool, error)
	DeleteDraft(ctx context.Context, lessonID string) error

	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	GetSummary(ctx context.Context) (Summary, error)
	GetLastRun(ctx context.Context) (*LastRun, error)
	Close() error
}

type Profile struct {
	Name         string
	Avatar       string
	XP           int
	Level        int
	Streak       int
	DailyGoal    int
	TodayCount   int
	Day          string
	LastLessonID string
}

// GoalReached reports whether today's completions meet the daily goal.
func (p Profile) GoalReached() bool {
	return p.DailyGoal > 0 && p.TodayCount >= p.DailyGoal
}

type LessonRun struct {
	SessionID string
	LessonID  string
	StartTS   time.Time
}

type Submission struct {
	Outcome    string
	DurationMS int64
	At         time.Time
}

type Credit struct {
	FirstCompletion bool
	XPAwarded       int
	LevelUp         bool
	Profile         Profile
}

type QuizAttempt struct {
	LevelID string
	Score   int
	Total   int
	Passed  bool
	XP      int
}

type LessonProgress struct {
	LessonID      string
	Completed     bool
	Passes        int
	FirstPassedTS time.Time
	LastPassedTS  time.Time
}

type QuizCompletion struct {
	LevelID       string
	BestScore     int
	Attempts      int
	Passed        bool
	FirstPassedTS time.Time
}

type Summary struct {
	LessonRuns       int
	Attempts         int
	Passes           int
	Reveals          int
	LessonsCompleted int
	QuizzesPassed    int
}

type LastRun struct {
	LessonID    string
	StartTS     time.Time
	LastOutcome string
	Attempts    int
	Revealed    bool
}
