package lessons

import "context"

type Loader interface {
	LoadPacks(ctx context.Context, root string) ([]Pack, error)
	LoadBuiltin(ctx context.Context) ([]Pack, error)
	FindLesson(packs []Pack, lessonID string) (Pack, Lesson, error)
	FindQuiz(packs []Pack, levelID string) (Quiz, error)
}
