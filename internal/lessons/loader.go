package lessons

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin
var builtinFS embed.FS

type FSLoader struct{}

func NewLoader() *FSLoader { return &FSLoader{} }

// LoadPacks reads every pack directory directly under root.
func (l *FSLoader) LoadPacks(ctx context.Context, root string) ([]Pack, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	packs, err := l.LoadFS(ctx, os.DirFS(root))
	if err != nil {
		return nil, err
	}
	for i := range packs {
		packs[i].Path = filepath.Join(root, packs[i].Path)
	}
	return packs, nil
}

func (l *FSLoader) LoadBuiltin(ctx context.Context) ([]Pack, error) {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		return nil, err
	}
	packs, err := l.LoadFS(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("builtin packs: %w", err)
	}
	for i := range packs {
		packs[i].Path = "builtin:" + packs[i].Path
	}
	return packs, nil
}

func (l *FSLoader) LoadFS(ctx context.Context, fsys fs.FS) ([]Pack, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	packs := make([]Pack, 0)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		packDir := entry.Name()
		packYAML := path.Join(packDir, "pack.yaml")
		if _, err := fs.Stat(fsys, packYAML); err != nil {
			continue
		}
		var pack Pack
		if err := readYAML(fsys, packYAML, &pack); err != nil {
			return nil, fmt.Errorf("load pack %s: %w", packDir, err)
		}
		if err := pack.Validate(); err != nil {
			return nil, fmt.Errorf("load pack %s: %w", packDir, err)
		}
		pack.Path = packDir

		lessons, err := readLessons(fsys, pack)
		if err != nil {
			return nil, err
		}
		pack.LoadedLessons = lessons
		quizzes, err := readQuizzes(fsys, pack)
		if err != nil {
			return nil, err
		}
		pack.LoadedQuizzes = quizzes
		packs = append(packs, pack)
	}

	sort.Slice(packs, func(i, j int) bool { return packs[i].PackID < packs[j].PackID })
	return packs, nil
}

func readLessons(fsys fs.FS, pack Pack) ([]Lesson, error) {
	if len(pack.Lessons) > 0 {
		return readLessonsFromManifest(fsys, pack)
	}
	return readLessonsFromScan(fsys, pack)
}

func readLessonsFromManifest(fsys fs.FS, pack Pack) ([]Lesson, error) {
	lessons := make([]Lesson, 0, len(pack.Lessons))
	for _, ref := range pack.Lessons {
		if ref.Enabled != nil && !*ref.Enabled {
			continue
		}
		dir := path.Join(pack.Path, ref.Path)
		lesson, err := loadLessonFile(fsys, path.Join(dir, "lesson.yaml"))
		if err != nil {
			return nil, err
		}
		if lesson.LessonID != ref.LessonID {
			return nil, fmt.Errorf("lesson id mismatch for %s: manifest=%s file=%s", dir, ref.LessonID, lesson.LessonID)
		}
		lesson.PackID = pack.PackID
		lesson.Path = dir
		lessons = append(lessons, lesson)
	}
	return lessons, nil
}

func readLessonsFromScan(fsys fs.FS, pack Pack) ([]Lesson, error) {
	root := path.Join(pack.Path, "lessons")
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, err
	}
	lessons := make([]Lesson, 0)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ly := path.Join(root, e.Name(), "lesson.yaml")
		if _, err := fs.Stat(fsys, ly); err != nil {
			continue
		}
		lesson, err := loadLessonFile(fsys, ly)
		if err != nil {
			return nil, err
		}
		lesson.PackID = pack.PackID
		lesson.Path = path.Dir(ly)
		lessons = append(lessons, lesson)
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].LessonID < lessons[j].LessonID })
	return lessons, nil
}

func loadLessonFile(fsys fs.FS, name string) (Lesson, error) {
	var lesson Lesson
	if err := readYAML(fsys, name, &lesson); err != nil {
		return lesson, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := lesson.Validate(); err != nil {
		return lesson, fmt.Errorf("validate %s: %w", name, err)
	}
	return lesson, nil
}

func readQuizzes(fsys fs.FS, pack Pack) ([]Quiz, error) {
	root := path.Join(pack.Path, "quizzes")
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		// Quizzes are optional.
		return nil, nil
	}
	quizzes := make([]Quiz, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		name := path.Join(root, e.Name())
		var quiz Quiz
		if err := readYAML(fsys, name, &quiz); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		applyQuizDefaults(&quiz)
		if err := quiz.Validate(); err != nil {
			return nil, fmt.Errorf("validate %s: %w", name, err)
		}
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].LevelID < quizzes[j].LevelID })
	return quizzes, nil
}

func applyQuizDefaults(q *Quiz) {
	if q.PassScore <= 0 {
		q.PassScore = min(DefaultQuizPassScore, len(q.Questions))
	}
	if q.XP <= 0 {
		q.XP = DefaultQuizXP
	}
}

func readYAML(fsys fs.FS, name string, out any) error {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, out)
}

func (l *FSLoader) FindLesson(packs []Pack, lessonID string) (Pack, Lesson, error) {
	for _, p := range packs {
		for _, lesson := range p.LoadedLessons {
			if lesson.LessonID == lessonID {
				return p, lesson, nil
			}
		}
	}
	return Pack{}, Lesson{}, fmt.Errorf("%w: %s", ErrNoLesson, lessonID)
}

func (l *FSLoader) FindQuiz(packs []Pack, levelID string) (Quiz, error) {
	want := strings.TrimSpace(levelID)
	for _, p := range packs {
		for _, q := range p.LoadedQuizzes {
			if strings.EqualFold(q.LevelID, want) {
				return q, nil
			}
		}
	}
	return Quiz{}, fmt.Errorf("%w: %s", ErrNoQuiz, levelID)
}

// AllLessons flattens packs in catalog order.
func AllLessons(packs []Pack) []Lesson {
	out := []Lesson{}
	for _, p := range packs {
		out = append(out, p.LoadedLessons...)
	}
	return out
}

// NextLesson is the first lesson not yet completed, or the first lesson once
// everything is done.
func NextLesson(packs []Pack, completed map[string]bool) (Lesson, error) {
	all := AllLessons(packs)
	if len(all) == 0 {
		return Lesson{}, ErrNoLesson
	}
	for _, l := range all {
		if !completed[l.LessonID] {
			return l, nil
		}
	}
	return all[0], nil
}

// Regions lists lesson regions in first-seen order.
func Regions(packs []Pack) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, l := range AllLessons(packs) {
		if _, ok := seen[l.Region]; ok {
			continue
		}
		seen[l.Region] = struct{}{}
		out = append(out, l.Region)
	}
	return out
}
