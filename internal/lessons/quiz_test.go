package lessons

import "testing"

func sampleQuiz(n int) Quiz {
	q := Quiz{Kind: QuizKind, SchemaVersion: 1, LevelID: "Level 1", PassScore: 6, XP: 200}
	for i := 0; i < n; i++ {
		q.Questions = append(q.Questions, Question{
			ID:           string(rune('a' + i)),
			Options:      []string{"no", "yes"},
			CorrectIndex: 1,
			Explanation:  "yes is right",
		})
	}
	return q
}

func TestScoreQuizPassesAtThreshold(t *testing.T) {
	answers := []int{1, 1, 1, 1, 1, 1, 0, 0, 0, 0}
	res, err := ScoreQuiz(sampleQuiz(10), answers)
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 6 || !res.Passed || res.Total != 10 {
		t.Fatalf("unexpected result %#v", res)
	}
	if len(res.Missed) != 4 || res.Missed[0].QuestionID != "g" {
		t.Fatalf("unexpected missed list %#v", res.Missed)
	}
}

func TestScoreQuizFailsBelowThreshold(t *testing.T) {
	answers := []int{1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
	res, err := ScoreQuiz(sampleQuiz(10), answers)
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed {
		t.Fatalf("5/10 should not pass")
	}
}

func TestScoreQuizRejectsWrongAnswerCount(t *testing.T) {
	if _, err := ScoreQuiz(sampleQuiz(3), []int{1}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestScoreQuizDefaultPassScore(t *testing.T) {
	q := sampleQuiz(4)
	q.PassScore = 0
	res, err := ScoreQuiz(q, []int{1, 1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Passed {
		t.Fatalf("perfect score on a short quiz should pass")
	}
}
