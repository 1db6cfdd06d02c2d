package lessons

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	PackKind               = "pack"
	LessonKind             = "lesson"
	QuizKind               = "quiz"
	SupportedSchemaVersion = 1

	DefaultQuizPassScore = 6
	DefaultQuizXP        = 200
)

var (
	ErrNoLesson = errors.New("lesson not found")
	ErrNoQuiz   = errors.New("quiz not found")
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,63}$`)

type Pack struct {
	Kind          string          `yaml:"kind"`
	SchemaVersion int             `yaml:"schema_version"`
	PackID        string          `yaml:"pack_id"`
	Name          string          `yaml:"name"`
	Version       string          `yaml:"version"`
	DescriptionMD string          `yaml:"description_md"`
	Lessons       []PackLessonRef `yaml:"lessons"`

	Path          string   `yaml:"-"`
	LoadedLessons []Lesson `yaml:"-"`
	LoadedQuizzes []Quiz   `yaml:"-"`
}

type PackLessonRef struct {
	LessonID string `yaml:"lesson_id"`
	Path     string `yaml:"path"`
	Enabled  *bool  `yaml:"enabled"`
}

type Lesson struct {
	Kind          string     `yaml:"kind"`
	SchemaVersion int        `yaml:"schema_version"`
	LessonID      string     `yaml:"lesson_id"`
	Title         string     `yaml:"title"`
	Region        string     `yaml:"region"`
	Description   string     `yaml:"description"`
	ConceptMD     string     `yaml:"concept_md"`
	Example       string     `yaml:"example"`
	Challenge     string     `yaml:"challenge"`
	InitialCode   string     `yaml:"initial_code"`
	Solution      string     `yaml:"solution"`
	XP            int        `yaml:"xp"`
	Tests         []TestSpec `yaml:"tests"`

	PackID string `yaml:"-"`
	Path   string `yaml:"-"`
}

type TestSpec struct {
	Expected string `yaml:"expected"`
	Hint     string `yaml:"hint"`
}

type Quiz struct {
	Kind          string     `yaml:"kind"`
	SchemaVersion int        `yaml:"schema_version"`
	LevelID       string     `yaml:"level_id"`
	LevelName     string     `yaml:"level_name"`
	PassScore     int        `yaml:"pass_score"`
	XP            int        `yaml:"xp"`
	Questions     []Question `yaml:"questions"`
}

type Question struct {
	ID           string   `yaml:"id"`
	Question     string   `yaml:"question"`
	Options      []string `yaml:"options"`
	CorrectIndex int      `yaml:"correct_index"`
	Explanation  string   `yaml:"explanation"`
}

func checkSchema(kind, want string, version int) error {
	if kind != want {
		return fmt.Errorf("kind must be %q", want)
	}
	if version == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if version > SupportedSchemaVersion {
		return fmt.Errorf("unsupported %s schema_version %d (max supported %d)", want, version, SupportedSchemaVersion)
	}
	return nil
}

func (p Pack) Validate() error {
	if err := checkSchema(p.Kind, PackKind, p.SchemaVersion); err != nil {
		return err
	}
	if !idPattern.MatchString(p.PackID) {
		return fmt.Errorf("invalid pack_id %q", p.PackID)
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Version == "" {
		return fmt.Errorf("version is required")
	}
	seen := map[string]struct{}{}
	for _, l := range p.Lessons {
		if l.LessonID == "" {
			return fmt.Errorf("lessons[].lesson_id is required")
		}
		if _, ok := seen[l.LessonID]; ok {
			return fmt.Errorf("duplicate lesson_id %q in pack.yaml", l.LessonID)
		}
		seen[l.LessonID] = struct{}{}
	}
	return nil
}

func (l Lesson) Validate() error {
	if err := checkSchema(l.Kind, LessonKind, l.SchemaVersion); err != nil {
		return err
	}
	if !idPattern.MatchString(l.LessonID) {
		return fmt.Errorf("invalid lesson_id %q", l.LessonID)
	}
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(l.Region) == "" {
		return fmt.Errorf("region is required")
	}
	if strings.TrimSpace(l.Challenge) == "" {
		return fmt.Errorf("challenge is required")
	}
	if strings.TrimSpace(l.Solution) == "" {
		return fmt.Errorf("solution is required")
	}
	if l.XP < 0 {
		return fmt.Errorf("xp must be >= 0")
	}
	if len(l.Tests) == 0 {
		return fmt.Errorf("at least one test is required")
	}
	return nil
}

func (q Quiz) Validate() error {
	if err := checkSchema(q.Kind, QuizKind, q.SchemaVersion); err != nil {
		return err
	}
	if strings.TrimSpace(q.LevelID) == "" {
		return fmt.Errorf("level_id is required")
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("at least one question is required")
	}
	if q.PassScore > len(q.Questions) {
		return fmt.Errorf("pass_score %d exceeds question count %d", q.PassScore, len(q.Questions))
	}
	seen := map[string]struct{}{}
	for i, qu := range q.Questions {
		if qu.ID == "" {
			return fmt.Errorf("questions[%d].id is required", i)
		}
		if _, ok := seen[qu.ID]; ok {
			return fmt.Errorf("duplicate question id %q", qu.ID)
		}
		seen[qu.ID] = struct{}{}
		if len(qu.Options) < 2 {
			return fmt.Errorf("question %s needs at least 2 options", qu.ID)
		}
		if qu.CorrectIndex < 0 || qu.CorrectIndex >= len(qu.Options) {
			return fmt.Errorf("question %s correct_index out of range", qu.ID)
		}
	}
	return nil
}
