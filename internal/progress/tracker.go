package progress

import (
	"sync"

	"pydojo/internal/grading"
)

// UnlockThreshold is the number of consecutive failed submissions on a
// lesson after which the stored solution may be revealed.
const UnlockThreshold = 2

// Tracker counts consecutive failures on the open lesson. Every
// OnLessonOpened starts a new visit; outcomes from an earlier visit are
// ignored.
type Tracker struct {
	mu       sync.Mutex
	lessonID string
	visit    uint64
	streak   int
	revealed bool
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// OnLessonOpened resets the streak and returns the new visit.
func (t *Tracker) OnLessonOpened(lessonID string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visit++
	t.lessonID = lessonID
	t.streak = 0
	t.revealed = false
	return t.visit
}

// OnOutcome records a submission outcome graded during visit. A pass
// leaves the streak alone. It reports false and changes nothing when a
// lesson was opened since.
func (t *Tracker) OnOutcome(visit uint64, outcome grading.Outcome) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if visit != t.visit {
		return t.streak, false
	}
	if outcome.Failed() {
		t.streak++
	}
	return t.streak, true
}

func (t *Tracker) CanRevealSolution() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.streak >= UnlockThreshold && !t.revealed
}

func (t *Tracker) RevealSolution() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revealed = true
}

type Snapshot struct {
	LessonID  string
	Streak    int
	Revealed  bool
	CanReveal bool
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		LessonID:  t.lessonID,
		Streak:    t.streak,
		Revealed:  t.revealed,
		CanReveal: t.streak >= UnlockThreshold && !t.revealed,
	}
}
