package app

import "church-quiz-service/internal/domain"

// Score tallies answers against the question set. Every question lands in
// exactly one bucket; answers for unknown questions are ignored and only the
// first answer per question counts.
func Score(questions []domain.Question, answers []domain.Answer) domain.Score {
	chosen := make(map[int64]*domain.OptionLabel, len(answers))
	for _, a := range answers {
		if _, seen := chosen[a.QuestionID]; !seen {
			chosen[a.QuestionID] = a.Chosen
		}
	}

	score := domain.Score{Total: len(questions)}
	for _, q := range questions {
		c, ok := chosen[q.ID]
		switch {
		case !ok || c == nil:
			score.Nulos++
		case *c == q.Correct:
			score.Acertos++
		default:
			score.Erros++
		}
	}
	score.Percentage = Percentage(score.Acertos, score.Total)
	return score
}

// Percentage returns round-half-up(100*part/total), or 0 when total is zero.
func Percentage(part, total int) int {
	return roundDiv(100*part, total)
}

// roundDiv divides non-negative integers rounding halves up.
func roundDiv(num, den int) int {
	if den <= 0 {
		return 0
	}
	return (2*num + den) / (2 * den)
}
