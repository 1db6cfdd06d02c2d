package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pydojo/internal/advice"
	"pydojo/internal/grading"
	"pydojo/internal/lessons"
	"pydojo/internal/progress"
	"pydojo/internal/sandbox"
	"pydojo/internal/state"
	"pydojo/internal/telemetry"
)

type App struct {
	cfg Config

	logger  *telemetry.Logger
	store   state.Store
	loader  *lessons.FSLoader
	runtime Runtime
	grader  grading.Grader
	tracker *progress.Tracker
	advisor advice.Advisor
	watch   *watcher
	now     func() time.Time

	sessionID string
	packs     []lessons.Pack

	mu        sync.Mutex
	lesson    lessons.Lesson
	hasLesson bool
	runID     int64
	visit     uint64
	attempt   int
}

func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}
	if name := strings.TrimSpace(cfg.LearnerName); name != "" {
		if err := store.UpdateIdentity(ctx, name, ""); err != nil {
			_ = store.Close()
			_ = logger.Close()
			return nil, err
		}
	}

	loader := lessons.NewLoader()
	packs, err := loadPacks(ctx, loader, cfg.PacksDir)
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	manager := sandbox.NewManager(sandbox.NewStarlarkEngine(), sandbox.Options{
		IndexURL:         cfg.IndexURL,
		Stdin:            cfg.Stdin,
		MaxSteps:         cfg.MaxSteps,
		BootstrapTimeout: cfg.BootstrapTimeout,
	}, logger)

	a := newApp(cfg, deps{
		logger:  logger,
		store:   store,
		loader:  loader,
		runtime: manager,
		grader:  grading.NewGrader(manager, grading.Options{ExecTimeout: cfg.ExecTimeout}, logger),
		advisor: newAdvisor(cfg, logger),
		packs:   packs,
	})
	a.logger.Info("app.start", map[string]any{
		"session":  a.sessionID,
		"engine":   manager.Info().Name,
		"lessons":  len(lessons.AllLessons(packs)),
		"advisor":  ifThen(cfg.GeminiAPIKey != "", "gemini", "coach"),
		"data_dir": cfg.DataDir,
	})
	return a, nil
}

type deps struct {
	logger  *telemetry.Logger
	store   state.Store
	loader  *lessons.FSLoader
	runtime Runtime
	grader  grading.Grader
	advisor advice.Advisor
	packs   []lessons.Pack
	now     func() time.Time
}

func newApp(cfg Config, d deps) *App {
	if d.logger == nil {
		d.logger = telemetry.Nop()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return &App{
		cfg:       cfg,
		logger:    d.logger,
		store:     d.store,
		loader:    d.loader,
		runtime:   d.runtime,
		grader:    d.grader,
		tracker:   progress.NewTracker(),
		advisor:   d.advisor,
		watch:     newWatcher(d.runtime, d.logger),
		now:       d.now,
		sessionID: uuid.NewString(),
		packs:     d.packs,
	}
}

func loadPacks(ctx context.Context, loader *lessons.FSLoader, dir string) ([]lessons.Pack, error) {
	packs, err := loader.LoadBuiltin(ctx)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		extra, err := loader.LoadPacks(ctx, dir)
		if err != nil {
			return nil, err
		}
		packs = append(packs, extra...)
	}
	if len(lessons.AllLessons(packs)) == 0 {
		return nil, errors.New("no lessons available")
	}
	return packs, nil
}

func newAdvisor(cfg Config, logger *telemetry.Logger) advice.Advisor {
	coach := advice.NewCoach()
	if cfg.GeminiAPIKey == "" {
		return coach
	}
	gemini := advice.NewGeminiAdvisor(advice.GeminiConfig{
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.GeminiModel,
		Endpoint: cfg.GeminiURL,
	}, logger)
	return advice.Chain(advice.WithTimeout(gemini, cfg.AdviceTimeout), coach)
}

// Start warms the interpreter in the background. It returns immediately.
func (a *App) Start(ctx context.Context) {
	a.watch.start(ctx)
}

func (a *App) Readiness() Readiness {
	return a.watch.snapshot()
}

// ReadyC is closed the first time the interpreter becomes ready.
func (a *App) ReadyC() <-chan struct{} {
	return a.watch.readyC
}

func (a *App) SessionID() string { return a.sessionID }

func (a *App) Engine() sandbox.EngineInfo { return a.runtime.Info() }

func (a *App) Config() Config { return a.cfg }

func (a *App) Close() {
	if err := a.runtime.Close(); err != nil {
		a.logger.Warn("runtime.close_failed", map[string]any{"error": err.Error()})
	}
	_ = a.store.Close()
	a.logger.Info("app.stop", map[string]any{"session": a.sessionID})
	_ = a.logger.Close()
}

func (a *App) OpenLesson(ctx context.Context, lessonID string) (LessonView, error) {
	_, lesson, err := a.loader.FindLesson(a.packs, lessonID)
	if err != nil {
		return LessonView{}, err
	}
	now := a.now()
	runID, err := a.store.StartLessonRun(ctx, state.LessonRun{
		SessionID: a.sessionID,
		LessonID:  lesson.LessonID,
		StartTS:   now,
	})
	if err != nil {
		return LessonView{}, err
	}
	if err := a.store.SetLastLesson(ctx, lesson.LessonID); err != nil {
		return LessonView{}, err
	}

	a.mu.Lock()
	a.lesson = lesson
	a.hasLesson = true
	a.runID = runID
	a.visit = a.tracker.OnLessonOpened(lesson.LessonID)
	a.attempt = 0
	a.mu.Unlock()

	view := LessonView{Lesson: lesson, Code: lesson.InitialCode}
	if draft, ok, err := a.store.LoadDraft(ctx, lesson.LessonID); err != nil {
		a.logger.Warn("draft.load_failed", map[string]any{"lesson_id": lesson.LessonID, "error": err.Error()})
	} else if ok {
		view.Code = draft
		view.FromDraft = true
	}
	done, err := a.store.GetLessonProgressMap(ctx)
	if err != nil {
		return LessonView{}, err
	}
	view.Completed = done[lesson.LessonID].Completed
	if view.Profile, err = a.store.Profile(ctx, now); err != nil {
		return LessonView{}, err
	}

	a.logger.Info("lesson.open", map[string]any{
		"session":    a.sessionID,
		"lesson_id":  lesson.LessonID,
		"run_id":     runID,
		"from_draft": view.FromDraft,
	})
	return view, nil
}

// Resume opens the last lesson the learner worked on, or the first lesson
// they have not completed.
func (a *App) Resume(ctx context.Context) (LessonView, error) {
	profile, err := a.store.Profile(ctx, a.now())
	if err != nil {
		return LessonView{}, err
	}
	if profile.LastLessonID != "" {
		if _, _, err := a.loader.FindLesson(a.packs, profile.LastLessonID); err == nil {
			return a.OpenLesson(ctx, profile.LastLessonID)
		}
	}
	completed, err := a.completedSet(ctx)
	if err != nil {
		return LessonView{}, err
	}
	next, err := lessons.NextLesson(a.packs, completed)
	if err != nil {
		return LessonView{}, err
	}
	return a.OpenLesson(ctx, next.LessonID)
}

func (a *App) current() (lessons.Lesson, int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lesson, a.runID, a.hasLesson
}

// Submit grades source against the open lesson's tests. Failed outcomes are
// reported in the Submission; the error is reserved for a missing lesson, a
// runtime that is not ready, a submission already running, or cancellation.
func (a *App) Submit(ctx context.Context, source string) (Submission, error) {
	lesson, runID, ok := a.current()
	if !ok {
		return Submission{}, ErrNoOpenLesson
	}
	if err := a.watch.blocked(); err != nil {
		return Submission{}, err
	}

	a.mu.Lock()
	attempt := a.attempt + 1
	visit := a.visit
	a.mu.Unlock()

	result, err := a.grader.Grade(ctx, grading.Request{
		LessonID: lesson.LessonID,
		Source:   source,
		Tests:    testCases(lesson),
		RunID:    a.sessionID,
		Attempt:  attempt,
	})
	if err != nil {
		if !errors.Is(err, grading.ErrBusy) {
			a.logger.Warn("submit.failed", map[string]any{"lesson_id": lesson.LessonID, "error": err.Error()})
		}
		return Submission{}, err
	}

	a.mu.Lock()
	if a.runID == runID {
		a.attempt = attempt
	}
	a.mu.Unlock()

	now := a.now()
	if err := a.store.RecordSubmission(ctx, runID, state.Submission{
		Outcome:    string(result.Outcome),
		DurationMS: result.Run.DurationMS,
		At:         now,
	}); err != nil {
		a.logger.Warn("submit.record_failed", map[string]any{"run_id": runID, "error": err.Error()})
	}

	sub := Submission{Result: result, Message: result.Message}
	streak, current := a.tracker.OnOutcome(visit, result.Outcome)
	if current {
		sub.Streak = streak
		sub.CanReveal = a.tracker.CanRevealSolution()
	} else {
		sub.Stale = true
		a.logger.Info("submit.stale", map[string]any{"lesson_id": lesson.LessonID, "run_id": runID})
	}

	if result.Passed() {
		credit, err := a.store.CreditLesson(ctx, lesson.LessonID, lesson.XP, now)
		if err != nil {
			return Submission{}, fmt.Errorf("credit lesson %s: %w", lesson.LessonID, err)
		}
		sub.Message = PassMessage
		sub.Credit = &credit
		sub.Profile = credit.Profile
	} else {
		if sub.Profile, err = a.store.Profile(ctx, now); err != nil {
			return Submission{}, err
		}
		sub.Advice = a.advisor.Advise(ctx, adviceRequest(lesson, source, result, sub.Profile.Name))
	}

	a.logger.Info("submit.done", map[string]any{
		"session":    a.sessionID,
		"lesson_id":  lesson.LessonID,
		"attempt":    attempt,
		"outcome":    string(result.Outcome),
		"streak":     sub.Streak,
		"can_reveal": sub.CanReveal,
		"stale":      sub.Stale,
	})
	return sub, nil
}

// RevealSolution returns the open lesson's solution once enough attempts
// in a row have failed.
func (a *App) RevealSolution(ctx context.Context) (string, error) {
	lesson, runID, ok := a.current()
	if !ok {
		return "", ErrNoOpenLesson
	}
	if !a.tracker.CanRevealSolution() {
		return "", ErrRevealLocked
	}
	a.tracker.RevealSolution()
	if err := a.store.MarkRevealed(ctx, runID); err != nil {
		a.logger.Warn("reveal.record_failed", map[string]any{"run_id": runID, "error": err.Error()})
	}
	a.logger.Info("reveal.done", map[string]any{"session": a.sessionID, "lesson_id": lesson.LessonID})
	return lesson.Solution, nil
}

func (a *App) CanRevealSolution() bool {
	return a.tracker.CanRevealSolution()
}

// ResetCode drops the open lesson's draft and returns its starter code.
func (a *App) ResetCode(ctx context.Context) (string, error) {
	lesson, _, ok := a.current()
	if !ok {
		return "", ErrNoOpenLesson
	}
	if err := a.store.DeleteDraft(ctx, lesson.LessonID); err != nil {
		return "", err
	}
	return lesson.InitialCode, nil
}

func (a *App) SaveDraft(ctx context.Context, code string) error {
	lesson, _, ok := a.current()
	if !ok {
		return ErrNoOpenLesson
	}
	return a.store.SaveDraft(ctx, lesson.LessonID, code, a.now())
}

func (a *App) Lessons(ctx context.Context) ([]LessonSummary, error) {
	done, err := a.completedSet(ctx)
	if err != nil {
		return nil, err
	}
	all := lessons.AllLessons(a.packs)
	out := make([]LessonSummary, 0, len(all))
	for _, l := range all {
		out = append(out, LessonSummary{
			LessonID:  l.LessonID,
			Title:     l.Title,
			Region:    l.Region,
			XP:        l.XP,
			Completed: done[l.LessonID],
		})
	}
	return out, nil
}

func (a *App) completedSet(ctx context.Context) (map[string]bool, error) {
	progressMap, err := a.store.GetLessonProgressMap(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(progressMap))
	for id, p := range progressMap {
		done[id] = p.Completed
	}
	return done, nil
}

func (a *App) Profile(ctx context.Context) (state.Profile, error) {
	return a.store.Profile(ctx, a.now())
}

func (a *App) Summary(ctx context.Context) (state.Summary, error) {
	return a.store.GetSummary(ctx)
}

func (a *App) LastRun(ctx context.Context) (*state.LastRun, error) {
	return a.store.GetLastRun(ctx)
}

func (a *App) SetDailyGoal(ctx context.Context, goal int) error {
	if err := a.store.SetDailyGoal(ctx, goal); err != nil {
		return err
	}
	a.logger.Info("profile.goal", map[string]any{"goal": goal})
	return nil
}

func (a *App) Quizzes() []lessons.Quiz {
	var out []lessons.Quiz
	for _, p := range a.packs {
		out = append(out, p.LoadedQuizzes...)
	}
	return out
}

func (a *App) TakeQuiz(ctx context.Context, levelID string, answers []int) (QuizOutcome, error) {
	quiz, err := a.loader.FindQuiz(a.packs, levelID)
	if err != nil {
		return QuizOutcome{}, err
	}
	result, err := lessons.ScoreQuiz(quiz, answers)
	if err != nil {
		return QuizOutcome{}, err
	}
	credit, err := a.store.CreditQuiz(ctx, state.QuizAttempt{
		LevelID: quiz.LevelID,
		Score:   result.Score,
		Total:   result.Total,
		Passed:  result.Passed,
		XP:      quiz.XP,
	}, a.now())
	if err != nil {
		return QuizOutcome{}, err
	}
	out := QuizOutcome{Quiz: quiz, Result: result, Credit: credit}
	switch {
	case credit.LevelUp:
		out.Message = fmt.Sprintf("Ayekoo! You passed %s and reached level %d!", quiz.LevelName, credit.Profile.Level)
	case result.Passed:
		out.Message = fmt.Sprintf("Nice one! %d/%d again on %s.", result.Score, result.Total, quiz.LevelName)
	default:
		out.Message = fmt.Sprintf("%d/%d. You need %d to pass. Review the lessons and try again!", result.Score, result.Total, quiz.PassScore)
	}
	a.logger.Info("quiz.scored", map[string]any{
		"level_id": quiz.LevelID,
		"score":    result.Score,
		"total":    result.Total,
		"passed":   result.Passed,
	})
	return out, nil
}

// GoalMessage is the encouragement shown next to today's goal progress.
func GoalMessage(p state.Profile) string {
	switch {
	case p.TodayCount == 0:
		return "Akwaaba! Let's start with just one lesson today. You can do it!"
	case !p.GoalReached():
		return "You're doing great kraa! Just a bit more to reach your goal."
	default:
		return "Ei Champion! You've crushed your goal for today. Master performance! 🏆"
	}
}

func testCases(l lessons.Lesson) []grading.TestCase {
	out := make([]grading.TestCase, 0, len(l.Tests))
	for _, t := range l.Tests {
		out = append(out, grading.TestCase{Expected: t.Expected, Hint: t.Hint})
	}
	return out
}

func adviceRequest(l lessons.Lesson, source string, r grading.Result, name string) advice.Request {
	req := advice.Request{
		Source:      source,
		Challenge:   l.Challenge,
		LearnerName: name,
		Outcome:     string(r.Outcome),
		Output:      r.Output,
	}
	for _, t := range l.Tests {
		req.Expected = append(req.Expected, t.Expected)
		if t.Hint != "" {
			req.Hints = append(req.Hints, t.Hint)
		}
	}
	switch {
	case r.Error != "":
		req.Problem = r.Error
	case r.Outcome == grading.OutcomeMismatch:
		req.Problem = "Output mismatch. Expected: " + strings.Join(req.Expected, ", ")
	default:
		req.Problem = r.Message
	}
	return req
}

func ifThen(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
