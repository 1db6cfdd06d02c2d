package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := newStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

func TestProfileDefaultsAndDayRollover(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	day1 := time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)

	p, err := store.Profile(ctx, day1)
	if err != nil {
		t.Fatal(err)
	}
	if p.Level != 1 || p.XP != 0 || p.DailyGoal != 1 || p.Streak != 1 || p.Day != "2026-03-06" {
		t.Fatalf("unexpected default profile %#v", p)
	}

	if _, err := store.CreditLesson(ctx, "l1-t1", 30, day1); err != nil {
		t.Fatal(err)
	}
	p, err = store.Profile(ctx, day1.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if p.TodayCount != 1 || !p.GoalReached() {
		t.Fatalf("expected today count 1 and goal reached, got %#v", p)
	}

	p, err = store.Profile(ctx, day1.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if p.TodayCount != 0 || p.Streak != 2 {
		t.Fatalf("expected rollover with streak 2, got %#v", p)
	}

	p, err = store.Profile(ctx, day1.AddDate(0, 0, 5))
	if err != nil {
		t.Fatal(err)
	}
	if p.Streak != 1 {
		t.Fatalf("expected streak reset after a gap, got %d", p.Streak)
	}
}

func TestCreditLessonAwardsXPOnlyOnce(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)

	first, err := store.CreditLesson(ctx, "l2-t2", 50, now)
	if err != nil {
		t.Fatal(err)
	}
	if !first.FirstCompletion || first.XPAwarded != 50 || first.Profile.XP != 50 {
		t.Fatalf("unexpected first credit %#v", first)
	}

	second, err := store.CreditLesson(ctx, "l2-t2", 50, now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if second.FirstCompletion || second.XPAwarded != 0 || second.Profile.XP != 50 {
		t.Fatalf("unexpected repeat credit %#v", second)
	}
	if second.Profile.TodayCount != 2 {
		t.Fatalf("today count should grow on every pass, got %d", second.Profile.TodayCount)
	}

	progress, err := store.GetLessonProgressMap(ctx)
	if err != nil {
		t.Fatal(err)
	}
	lp := progress["l2-t2"]
	if !lp.Completed || lp.Passes != 2 || !lp.FirstPassedTS.Equal(now) {
		t.Fatalf("unexpected progress %#v", lp)
	}
}

func TestCreditQuizLevelsUpOnFirstPass(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)

	fail, err := store.CreditQuiz(ctx, QuizAttempt{LevelID: "Level 1: Village Entrance", Score: 4, Total: 10, XP: 200}, now)
	if err != nil {
		t.Fatal(err)
	}
	if fail.LevelUp || fail.Profile.Level != 1 {
		t.Fatalf("failed attempt must not level up: %#v", fail)
	}

	pass, err := store.CreditQuiz(ctx, QuizAttempt{LevelID: "Level 1: Village Entrance", Score: 8, Total: 10, Passed: true, XP: 200}, now)
	if err != nil {
		t.Fatal(err)
	}
	if !pass.LevelUp || pass.XPAwarded != 200 || pass.Profile.Level != 2 || pass.Profile.XP != 200 {
		t.Fatalf("unexpected first pass %#v", pass)
	}

	again, err := store.CreditQuiz(ctx, QuizAttempt{LevelID: "Level 1: Village Entrance", Score: 6, Total: 10, Passed: true, XP: 200}, now)
	if err != nil {
		t.Fatal(err)
	}
	if again.LevelUp || again.Profile.Level != 2 || again.Profile.XP != 200 {
		t.Fatalf("second pass must not award again: %#v", again)
	}

	completions, err := store.GetQuizCompletions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	qc := completions["Level 1: Village Entrance"]
	if qc.BestScore != 8 || qc.Attempts != 3 || !qc.Passed {
		t.Fatalf("unexpected completion %#v", qc)
	}
}

func TestLessonRunsSubmissionsAndSummary(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)

	runID, err := store.StartLessonRun(ctx, LessonRun{SessionID: "s1", LessonID: "l1-t3", StartTS: now})
	if err != nil {
		t.Fatal(err)
	}
	for _, outcome := range []string{"runtime_error", "mismatch", "pass"} {
		if err := store.RecordSubmission(ctx, runID, Submission{Outcome: outcome, DurationMS: 3, At: now}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.MarkRevealed(ctx, runID); err != nil {
		t.Fatal(err)
	}

	last, err := store.GetLastRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.LessonID != "l1-t3" || last.Attempts != 3 || last.LastOutcome != "pass" || !last.Revealed {
		t.Fatalf("unexpected last run %#v", last)
	}

	sum, err := store.GetSummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.LessonRuns != 1 || sum.Attempts != 3 || sum.Passes != 1 || sum.Reveals != 1 {
		t.Fatalf("unexpected summary %#v", sum)
	}
}

func TestGetLastRunEmpty(t *testing.T) {
	store := newStore(t)
	last, err := store.GetLastRun(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if last != nil {
		t.Fatalf("expected nil last run, got %#v", last)
	}
}

func TestDraftsRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if _, ok, err := store.LoadDraft(ctx, "l2-t1"); err != nil || ok {
		t.Fatalf("expected no draft, ok=%v err=%v", ok, err)
	}
	if err := store.SaveDraft(ctx, "l2-t1", "city = \"Kum\"", time.Time{}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveDraft(ctx, "l2-t1", "city = \"Kumasi\"", time.Time{}); err != nil {
		t.Fatal(err)
	}
	code, ok, err := store.LoadDraft(ctx, "l2-t1")
	if err != nil || !ok || code != "city = \"Kumasi\"" {
		t.Fatalf("unexpected draft %q ok=%v err=%v", code, ok, err)
	}
	if err := store.DeleteDraft(ctx, "l2-t1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.LoadDraft(ctx, "l2-t1"); ok {
		t.Fatalf("draft should be gone")
	}
}

func TestIdentityGoalAndSettings(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 6, 9, 0, 0, 0, time.UTC)

	if err := store.UpdateIdentity(ctx, " Kwame ", "lion"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetDailyGoal(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if err := store.SetDailyGoal(ctx, 0); err == nil {
		t.Fatalf("expected error for zero goal")
	}
	if err := store.SetLastLesson(ctx, "l3-t1"); err != nil {
		t.Fatal(err)
	}
	p, err := store.Profile(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Kwame" || p.Avatar != "lion" || p.DailyGoal != 3 || p.LastLessonID != "l3-t1" {
		t.Fatalf("unexpected profile %#v", p)
	}

	if err := store.SaveSettings(ctx, map[string]string{"theme": "cozy_clean", " ": "skip"}); err != nil {
		t.Fatal(err)
	}
	settings, err := store.LoadSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) != 1 || settings["theme"] != "cozy_clean" {
		t.Fatalf("unexpected settings %#v", settings)
	}
}
