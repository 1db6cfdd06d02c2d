package lessons

import "fmt"

type QuizResult struct {
	LevelID string
	Score   int
	Total   int
	Passed  bool
	Missed  []QuestionReview
}

type QuestionReview struct {
	QuestionID  string
	Chosen      int
	Correct     int
	Explanation string
}

// ScoreQuiz counts answers equal to each question's correct index. answers
// must hold one choice per question, in order.
func ScoreQuiz(q Quiz, answers []int) (QuizResult, error) {
	if len(answers) != len(q.Questions) {
		return QuizResult{}, fmt.Errorf("quiz %q has %d questions, got %d answers", q.LevelID, len(q.Questions), len(answers))
	}
	res := QuizResult{LevelID: q.LevelID, Total: len(q.Questions)}
	for i, qu := range q.Questions {
		if answers[i] == qu.CorrectIndex {
			res.Score++
			continue
		}
		res.Missed = append(res.Missed, QuestionReview{
			QuestionID:  qu.ID,
			Chosen:      answers[i],
			Correct:     qu.CorrectIndex,
			Explanation: qu.Explanation,
		})
	}
	pass := q.PassScore
	if pass <= 0 {
		pass = min(DefaultQuizPassScore, len(q.Questions))
	}
	res.Passed = res.Score >= pass
	return res, nil
}
