package app

import (
	"context"
	"sort"
	"time"

	"church-quiz-service/internal/domain"
)

const (
	DefaultQuizLeaderboardLimit    = 50
	DefaultOverallLeaderboardLimit = 10
	DefaultMaxLeaderboardLimit     = 200
)

// LeaderboardService ranks stored results. Both views are recomputed from
// the result rows on every call.
type LeaderboardService struct {
	results      SubmissionStore
	quizLimit    int
	overallLimit int
	maxLimit     int
	now          func() time.Time
}

// LeaderboardLimits are the default and maximum window sizes.
type LeaderboardLimits struct {
	Quiz    int
	Overall int
	Max     int
}

func NewLeaderboardService(results SubmissionStore, limits LeaderboardLimits) *LeaderboardService {
	if limits.Quiz <= 0 {
		limits.Quiz = DefaultQuizLeaderboardLimit
	}
	if limits.Overall <= 0 {
		limits.Overall = DefaultOverallLeaderboardLimit
	}
	if limits.Max <= 0 {
		limits.Max = DefaultMaxLeaderboardLimit
	}
	return &LeaderboardService{
		results:      results,
		quizLimit:    limits.Quiz,
		overallLimit: limits.Overall,
		maxLimit:     limits.Max,
		now:          time.Now,
	}
}

// QuizLeaderboard ranks the results of one quiz. limit <= 0 uses the default.
func (s *LeaderboardService) QuizLeaderboard(ctx context.Context, quizID int64, limit int) (domain.Leaderboard[domain.QuizLeaderboardEntry], error) {
	rows, err := s.results.ListResults(ctx, quizID)
	if err != nil {
		return domain.Leaderboard[domain.QuizLeaderboardEntry]{}, err
	}
	return domain.Leaderboard[domain.QuizLeaderboardEntry]{
		QuizID:    quizID,
		Entries:   RankQuizResults(rows, s.clamp(limit, s.quizLimit)),
		UpdatedAt: s.now(),
	}, nil
}

// OverallLeaderboard aggregates every result by participant.
func (s *LeaderboardService) OverallLeaderboard(ctx context.Context, limit int) (domain.Leaderboard[domain.OverallLeaderboardEntry], error) {
	rows, err := s.results.ListAllResults(ctx)
	if err != nil {
		return domain.Leaderboard[domain.OverallLeaderboardEntry]{}, err
	}
	return domain.Leaderboard[domain.OverallLeaderboardEntry]{
		Entries:   RankOverall(rows, s.clamp(limit, s.overallLimit)),
		UpdatedAt: s.now(),
	}, nil
}

func (s *LeaderboardService) clamp(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// RankQuizResults orders by acertos desc, then earlier submission, then result
// ID. Positions are 1-based and never shared.
func RankQuizResults(rows []domain.ParticipantResult, limit int) []domain.QuizLeaderboardEntry {
	sorted := make([]domain.ParticipantResult, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Acertos != b.Acertos {
			return a.Acertos > b.Acertos
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	entries := make([]domain.QuizLeaderboardEntry, 0, len(sorted))
	for i, r := range sorted {
		entries = append(entries, domain.QuizLeaderboardEntry{
			Position:      i + 1,
			ParticipantID: r.ParticipantID,
			Name:          r.Participant.Name,
			SocialName:    r.Participant.SocialName,
			AvatarURL:     r.Participant.AvatarURL,
			Score:         r.Score,
		})
	}
	return entries
}

type overallTally struct {
	participant   domain.Participant
	participantID string
	acertos       int
	quizzes       int
	percentageSum int
	firstResultAt time.Time
}

// RankOverall groups results by participant: summed acertos, quiz count and
// the rounded average percentage. Ties go to the earliest first result.
func RankOverall(rows []domain.ParticipantResult, limit int) []domain.OverallLeaderboardEntry {
	byParticipant := make(map[string]*overallTally)
	for _, r := range rows {
		t, ok := byParticipant[r.ParticipantID]
		if !ok {
			t = &overallTally{
				participant:   r.Participant,
				participantID: r.ParticipantID,
				firstResultAt: r.CreatedAt,
			}
			byParticipant[r.ParticipantID] = t
		}
		t.acertos += r.Acertos
		t.quizzes++
		t.percentageSum += r.Percentage
		if r.CreatedAt.Before(t.firstResultAt) {
			t.firstResultAt = r.CreatedAt
		}
	}

	tallies := make([]*overallTally, 0, len(byParticipant))
	for _, t := range byParticipant {
		tallies = append(tallies, t)
	}
	sort.Slice(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.acertos != b.acertos {
			return a.acertos > b.acertos
		}
		if !a.firstResultAt.Equal(b.firstResultAt) {
			return a.firstResultAt.Before(b.firstResultAt)
		}
		return a.participantID < b.participantID
	})
	if limit > 0 && len(tallies) > limit {
		tallies = tallies[:limit]
	}

	entries := make([]domain.OverallLeaderboardEntry, 0, len(tallies))
	for i, t := range tallies {
		entries = append(entries, domain.OverallLeaderboardEntry{
			Position:          i + 1,
			ParticipantID:     t.participantID,
			Name:              t.participant.Name,
			SocialName:        t.participant.SocialName,
			AvatarURL:         t.participant.AvatarURL,
			TotalAcertos:      t.acertos,
			TotalQuizzes:      t.quizzes,
			AveragePercentage: roundDiv(t.percentageSum, t.quizzes),
		})
	}
	return entries
}
