package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/platform/logger"
	"golang.org/x/sync/errgroup"
)

const (
	// OverallLeaderboardTopic carries the cumulative leaderboard.
	OverallLeaderboardTopic = "quiz:leaderboard:overall"
	// EventRankingUpdated is the event name of leaderboard snapshots.
	EventRankingUpdated = "ranking_updated"
	// EventQuizDeleted closes a quiz leaderboard topic.
	EventQuizDeleted = "quiz_deleted"
)

// QuizLeaderboardTopic is the topic of one quiz's leaderboard.
func QuizLeaderboardTopic(quizID int64) string {
	return fmt.Sprintf("quiz:%d:leaderboard", quizID)
}

// IsLeaderboardTopic reports whether topic is one clients may subscribe to.
func IsLeaderboardTopic(topic string) bool {
	if topic == OverallLeaderboardTopic {
		return true
	}
	rest, ok := strings.CutPrefix(topic, "quiz:")
	if !ok {
		return false
	}
	id, ok := strings.CutSuffix(rest, ":leaderboard")
	if !ok {
		return false
	}
	_, err := strconv.ParseInt(id, 10, 64)
	return err == nil
}

// LeaderboardPublisher pushes fresh leaderboard snapshots after every
// committed submission. Publishing runs in the background and its failures
// never reach the submitter.
type LeaderboardPublisher struct {
	boards  *LeaderboardService
	out     Broadcaster
	log     *logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewLeaderboardPublisher(boards *LeaderboardService, out Broadcaster, log *logger.Logger, timeout time.Duration) *LeaderboardPublisher {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LeaderboardPublisher{
		boards:  boards,
		out:     out,
		log:     log.With("service", "LeaderboardPublisher"),
		timeout: timeout,
	}
}

// SubmissionCommitted implements SubmissionHook.
func (p *LeaderboardPublisher) SubmissionCommitted(quizID int64) {
	p.background(quizID, p.Publish)
}

// QuizDeleted implements QuizDeletedHook.
func (p *LeaderboardPublisher) QuizDeleted(quizID int64) {
	p.background(quizID, p.PublishDeletion)
}

func (p *LeaderboardPublisher) background(quizID int64, publish func(context.Context, int64) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := publish(ctx, quizID); err != nil {
			p.log.Warn("leaderboard broadcast failed", "quiz_id", quizID, "error", err)
		}
	}()
}

// PublishDeletion closes the quiz topic and refreshes the overall board,
// which lost the quiz's results.
func (p *LeaderboardPublisher) PublishDeletion(ctx context.Context, quizID int64) error {
	closeErr := p.out.Broadcast(ctx, QuizLeaderboardTopic(quizID), EventQuizDeleted, map[string]int64{"quizId": quizID})
	overall, err := p.boards.OverallLeaderboard(ctx, 0)
	if err != nil {
		return errors.Join(closeErr, fmt.Errorf("compute overall leaderboard: %w", err))
	}
	return errors.Join(closeErr, p.out.Broadcast(ctx, OverallLeaderboardTopic, EventRankingUpdated, overall))
}

// Publish computes both leaderboards and broadcasts them.
func (p *LeaderboardPublisher) Publish(ctx context.Context, quizID int64) error {
	var (
		quizBoard    domain.Leaderboard[domain.QuizLeaderboardEntry]
		overallBoard domain.Leaderboard[domain.OverallLeaderboardEntry]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quizBoard, err = p.boards.QuizLeaderboard(gctx, quizID, 0)
		return err
	})
	g.Go(func() error {
		var err error
		overallBoard, err = p.boards.OverallLeaderboard(gctx, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("compute leaderboards: %w", err)
	}

	return errors.Join(
		p.out.Broadcast(ctx, QuizLeaderboardTopic(quizID), EventRankingUpdated, quizBoard),
		p.out.Broadcast(ctx, OverallLeaderboardTopic, EventRankingUpdated, overallBoard),
	)
}

// Wait blocks until in-flight publishes finish.
func (p *LeaderboardPublisher) Wait() {
	p.wg.Wait()
}
