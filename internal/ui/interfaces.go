package ui

import (
	"context"

	"pydojo/internal/app"
)

// Controller is the part of the app the play view drives.
type Controller interface {
	OpenLesson(ctx context.Context, lessonID string) (app.LessonView, error)
	Lessons(ctx context.Context) ([]app.LessonSummary, error)
	Submit(ctx context.Context, source string) (app.Submission, error)
	RevealSolution(ctx context.Context) (string, error)
	ResetCode(ctx context.Context) (string, error)
	SaveDraft(ctx context.Context, code string) error
	Readiness() app.Readiness
	ReadyC() <-chan struct{}
}

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutStacked
	LayoutTooSmall
)

func (m LayoutMode) String() string {
	switch m {
	case LayoutWide:
		return "wide"
	case LayoutStacked:
		return "stacked"
	default:
		return "too_small"
	}
}
