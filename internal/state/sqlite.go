package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer keeps read-modify-write credits free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			name TEXT NOT NULL DEFAULT '',
			avatar TEXT NOT NULL DEFAULT '',
			xp INTEGER NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 1,
			streak INTEGER NOT NULL DEFAULT 0,
			daily_goal INTEGER NOT NULL DEFAULT 1,
			today_count INTEGER NOT NULL DEFAULT 0,
			today_day TEXT NOT NULL DEFAULT '',
			last_lesson_id TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS lesson_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			lesson_id TEXT NOT NULL,
			start_ts TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_outcome TEXT NOT NULL DEFAULT '',
			revealed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS submission_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL,
			attempt_ts TEXT NOT NULL,
			outcome TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY(run_id) REFERENCES lesson_runs(id)
		);`,
		`CREATE TABLE IF NOT EXISTS lesson_progress (
			lesson_id TEXT PRIMARY KEY,
			completed INTEGER NOT NULL DEFAULT 0,
			passes INTEGER NOT NULL DEFAULT 0,
			first_passed_ts TEXT NOT NULL DEFAULT '',
			last_passed_ts TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS drafts (
			lesson_id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			updated_ts TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS quiz_completions (
			level_id TEXT PRIMARY KEY,
			best_score INTEGER NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0,
			passed INTEGER NOT NULL DEFAULT 0,
			first_passed_ts TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO profile(id) VALUES(1);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Profile returns the learner profile after applying the day rollover:
// today's count resets on a new day and the streak grows only on
// consecutive days.
func (s *SQLiteStore) Profile(ctx context.Context, now time.Time) (Profile, error) {
	var out Profile
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := rollover(ctx, tx, now)
		out = p
		return err
	})
	return out, err
}

func rollover(ctx context.Context, q querier, now time.Time) (Profile, error) {
	p, err := readProfile(ctx, q)
	if err != nil {
		return Profile{}, err
	}
	today := dayKey(now)
	if p.Day == today {
		return p, nil
	}
	switch {
	case p.Day == "":
		p.Streak = 1
	case p.Day == dayKey(now.AddDate(0, 0, -1)):
		p.Streak++
	default:
		p.Streak = 1
	}
	p.Day = today
	p.TodayCount = 0
	if _, err := q.ExecContext(ctx,
		`UPDATE profile SET streak = ?, today_day = ?, today_count = 0 WHERE id = 1`,
		p.Streak, p.Day,
	); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func readProfile(ctx context.Context, q querier) (Profile, error) {
	var p Profile
	row := q.QueryRowContext(ctx, `
		SELECT name, avatar, xp, level, streak, daily_goal, today_count, today_day, last_lesson_id
		FROM profile WHERE id = 1
	`)
	if err := row.Scan(&p.Name, &p.Avatar, &p.XP, &p.Level, &p.Streak, &p.DailyGoal, &p.TodayCount, &p.Day, &p.LastLessonID); err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) UpdateIdentity(ctx context.Context, name, avatar string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE profile SET name = ?, avatar = ? WHERE id = 1`, strings.TrimSpace(name), strings.TrimSpace(avatar))
	return err
}

func (s *SQLiteStore) SetDailyGoal(ctx context.Context, goal int) error {
	if goal < 1 {
		return fmt.Errorf("daily goal must be at least 1, got %d", goal)
	}
	_, err := s.db.ExecContext(ctx, `UPDATE profile SET daily_goal = ? WHERE id = 1`, goal)
	return err
}

func (s *SQLiteStore) SetLastLesson(ctx context.Context, lessonID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE profile SET last_lesson_id = ? WHERE id = 1`, strings.TrimSpace(lessonID))
	return err
}

func (s *SQLiteStore) StartLessonRun(ctx context.Context, run LessonRun) (int64, error) {
	start := run.StartTS
	if start.IsZero() {
		start = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lesson_runs(session_id, lesson_id, start_ts) VALUES(?,?,?)`,
		run.SessionID,
		run.LessonID,
		start.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) RecordSubmission(ctx context.Context, runID int64, sub Submission) error {
	at := sub.At
	if at.IsZero() {
		at = time.Now()
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO submission_attempts(run_id, attempt_ts, outcome, duration_ms) VALUES(?, ?, ?, ?)`,
			runID, at.UTC().Format(timeLayout), sub.Outcome, max(0, sub.DurationMS),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE lesson_runs SET attempts = attempts + 1, last_outcome = ? WHERE id = ?`, sub.Outcome, runID)
		return err
	})
}

func (s *SQLiteStore) MarkRevealed(ctx context.Context, runID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE lesson_runs SET revealed = 1 WHERE id = ?`, runID)
	return err
}

// CreditLesson records a pass. XP is only awarded the first time a lesson is
// completed; today's count grows on every pass.
func (s *SQLiteStore) CreditLesson(ctx context.Context, lessonID string, xp int, now time.Time) (Credit, error) {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return Credit{}, errors.New("credit lesson: empty lesson id")
	}
	var out Credit
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := rollover(ctx, tx, now); err != nil {
			return err
		}
		var completed int
		err := tx.QueryRowContext(ctx, `SELECT completed FROM lesson_progress WHERE lesson_id = ?`, lessonID).Scan(&completed)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		ts := now.UTC().Format(timeLayout)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lesson_progress(lesson_id, completed, passes, first_passed_ts, last_passed_ts)
			VALUES(?, 1, 1, ?, ?)
			ON CONFLICT(lesson_id) DO UPDATE SET
				completed = 1,
				passes = lesson_progress.passes + 1,
				first_passed_ts = CASE
					WHEN lesson_progress.first_passed_ts = '' THEN excluded.first_passed_ts
					ELSE lesson_progress.first_passed_ts
				END,
				last_passed_ts = excluded.last_passed_ts
		`, lessonID, ts, ts); err != nil {
			return err
		}
		out.FirstCompletion = completed == 0
		out.XPAwarded = ifThen(out.FirstCompletion, max(0, xp), 0)
		if _, err := tx.ExecContext(ctx,
			`UPDATE profile SET xp = xp + ?, today_count = today_count + 1 WHERE id = 1`,
			out.XPAwarded,
		); err != nil {
			return err
		}
		p, err := readProfile(ctx, tx)
		out.Profile = p
		return err
	})
	return out, err
}

// CreditQuiz records a quiz attempt. The first pass awards the quiz XP and
// raises the learner's level by one.
func (s *SQLiteStore) CreditQuiz(ctx context.Context, attempt QuizAttempt, now time.Time) (Credit, error) {
	levelID := strings.TrimSpace(attempt.LevelID)
	if levelID == "" {
		return Credit{}, errors.New("credit quiz: empty level id")
	}
	var out Credit
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := rollover(ctx, tx, now); err != nil {
			return err
		}
		var passedBefore int
		err := tx.QueryRowContext(ctx, `SELECT passed FROM quiz_completions WHERE level_id = ?`, levelID).Scan(&passedBefore)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		passTS := ""
		if attempt.Passed {
			passTS = now.UTC().Format(timeLayout)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quiz_completions(level_id, best_score, attempts, passed, first_passed_ts)
			VALUES(?, ?, 1, ?, ?)
			ON CONFLICT(level_id) DO UPDATE SET
				best_score = CASE
					WHEN excluded.best_score > quiz_completions.best_score THEN excluded.best_score
					ELSE quiz_completions.best_score
				END,
				attempts = quiz_completions.attempts + 1,
				passed = CASE WHEN excluded.passed = 1 THEN 1 ELSE quiz_completions.passed END,
				first_passed_ts = CASE
					WHEN quiz_completions.first_passed_ts = '' THEN excluded.first_passed_ts
					ELSE quiz_completions.first_passed_ts
				END
		`, levelID, max(0, attempt.Score), ifThen(attempt.Passed, 1, 0), passTS); err != nil {
			return err
		}
		if attempt.Passed && passedBefore == 0 {
			out.FirstCompletion = true
			out.LevelUp = true
			out.XPAwarded = max(0, attempt.XP)
			if _, err := tx.ExecContext(ctx,
				`UPDATE profile SET xp = xp + ?, level = level + 1 WHERE id = 1`,
				out.XPAwarded,
			); err != nil {
				return err
			}
		}
		p, err := readProfile(ctx, tx)
		out.Profile = p
		return err
	})
	return out, err
}

func (s *SQLiteStore) GetLessonProgressMap(ctx context.Context) (map[string]LessonProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lesson_id, completed, passes, first_passed_ts, last_passed_ts
		FROM lesson_progress
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]LessonProgress{}
	for rows.Next() {
		var (
			lp        LessonProgress
			completed int
			firstRaw  string
			lastRaw   string
		)
		if err := rows.Scan(&lp.LessonID, &completed, &lp.Passes, &firstRaw, &lastRaw); err != nil {
			return nil, err
		}
		lp.Completed = completed == 1
		lp.FirstPassedTS = parseTS(firstRaw)
		lp.LastPassedTS = parseTS(lastRaw)
		out[lp.LessonID] = lp
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) GetQuizCompletions(ctx context.Context) (map[string]QuizCompletion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT level_id, best_score, attempts, passed, first_passed_ts FROM quiz_completions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]QuizCompletion{}
	for rows.Next() {
		var (
			qc      QuizCompletion
			passed  int
			passRaw string
		)
		if err := rows.Scan(&qc.LevelID, &qc.BestScore, &qc.Attempts, &passed, &passRaw); err != nil {
			return nil, err
		}
		qc.Passed = passed == 1
		qc.FirstPassedTS = parseTS(passRaw)
		out[qc.LevelID] = qc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) SaveDraft(ctx context.Context, lessonID, code string, at time.Time) error {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return nil
	}
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts(lesson_id, code, updated_ts) VALUES(?, ?, ?)
		ON CONFLICT(lesson_id) DO UPDATE SET code = excluded.code, updated_ts = excluded.updated_ts
	`, lessonID, code, at.UTC().Format(timeLayout))
	return err
}

func (s *SQLiteStore) LoadDraft(ctx context.Context, lessonID string) (string, bool, error) {
	var code string
	err := s.db.QueryRowContext(ctx, `SELECT code FROM drafts WHERE lesson_id = ?`, lessonID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

func (s *SQLiteStore) DeleteDraft(ctx context.Context, lessonID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE lesson_id = ?`, lessonID)
	return err
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			k := strings.TrimSpace(key)
			if k == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO app_settings(key, value) VALUES(?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value
			`, k, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	var out Summary
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM lesson_runs),
			(SELECT COUNT(*) FROM submission_attempts),
			(SELECT COUNT(*) FROM submission_attempts WHERE outcome = 'pass'),
			(SELECT COALESCE(SUM(revealed), 0) FROM lesson_runs),
			(SELECT COUNT(*) FROM lesson_progress WHERE completed = 1),
			(SELECT COUNT(*) FROM quiz_completions WHERE passed = 1)
	`)
	if err := row.Scan(&out.LessonRuns, &out.Attempts, &out.Passes, &out.Reveals, &out.LessonsCompleted, &out.QuizzesPassed); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *SQLiteStore) GetLastRun(ctx context.Context) (*LastRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT lesson_id, start_ts, last_outcome, attempts, revealed
		FROM lesson_runs
		ORDER BY id DESC
		LIMIT 1
	`)
	var (
		out        LastRun
		startTSRaw string
		revealed   int
	)
	if err := row.Scan(&out.LessonID, &startTSRaw, &out.LastOutcome, &out.Attempts, &revealed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	out.StartTS = parseTS(startTSRaw)
	out.Revealed = revealed == 1
	return &out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

const (
	timeLayout = "2006-01-02T15:04:05Z07:00"
	dayLayout  = "2006-01-02"
)

func dayKey(t time.Time) string {
	return t.Format(dayLayout)
}

func parseTS(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func ifThen(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}
