package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/infra/memory"
)

type broadcast struct {
	topic, event string
	payload      any
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []broadcast
	err  error
}

func (b *fakeBroadcaster) Broadcast(_ context.Context, topic, event string, payload any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, broadcast{topic: topic, event: event, payload: payload})
	return b.err
}

func (b *fakeBroadcaster) messages() []broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcast(nil), b.sent...)
}

func TestPublisherBroadcastsBothBoards(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	r := domain.Result{ParticipantID: "u1", QuizID: 3, Score: domain.Score{Total: 2, Acertos: 2, Percentage: 100}, CreatedAt: time.Now()}
	if err := store.CommitSubmission(ctx, &r, nil); err != nil {
		t.Fatalf("commit: %v", err)
	}

	out := &fakeBroadcaster{}
	publisher := app.NewLeaderboardPublisher(app.NewLeaderboardService(store, app.LeaderboardLimits{}), out, nil, time.Second)
	publisher.SubmissionCommitted(3)
	publisher.Wait()

	msgs := out.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(msgs))
	}
	if msgs[0].topic != "quiz:3:leaderboard" || msgs[0].event != app.EventRankingUpdated {
		t.Fatalf("unexpected quiz broadcast: %+v", msgs[0])
	}
	board, ok := msgs[0].payload.(domain.Leaderboard[domain.QuizLeaderboardEntry])
	if !ok || len(board.Entries) != 1 || board.Entries[0].ParticipantID != "u1" {
		t.Fatalf("unexpected quiz payload: %#v", msgs[0].payload)
	}
	if msgs[1].topic != app.OverallLeaderboardTopic {
		t.Fatalf("expected overall topic, got %s", msgs[1].topic)
	}
	overall, ok := msgs[1].payload.(domain.Leaderboard[domain.OverallLeaderboardEntry])
	if !ok || len(overall.Entries) != 1 || overall.Entries[0].TotalAcertos != 2 {
		t.Fatalf("unexpected overall payload: %#v", msgs[1].payload)
	}
}

func TestPublisherSwallowsBroadcastFailures(t *testing.T) {
	out := &fakeBroadcaster{err: errors.New("bus down")}
	publisher := app.NewLeaderboardPublisher(app.NewLeaderboardService(memory.NewStore(), app.LeaderboardLimits{}), out, nil, time.Second)

	if err := publisher.Publish(context.Background(), 1); err == nil {
		t.Fatalf("expected Publish to report the failure")
	}
	publisher.SubmissionCommitted(1)
	publisher.Wait()
	if got := len(out.messages()); got != 4 {
		t.Fatalf("expected both topics attempted twice, got %d", got)
	}
}

func TestPublisherAnnouncesQuizDeletion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	r := domain.Result{ParticipantID: "u1", QuizID: 4, Score: domain.Score{Total: 1, Acertos: 1, Percentage: 100}, CreatedAt: time.Now()}
	if err := store.CommitSubmission(ctx, &r, nil); err != nil {
		t.Fatalf("commit: %v", err)
	}

	out := &fakeBroadcaster{}
	publisher := app.NewLeaderboardPublisher(app.NewLeaderboardService(store, app.LeaderboardLimits{}), out, nil, time.Second)
	publisher.QuizDeleted(9)
	publisher.Wait()

	msgs := out.messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(msgs))
	}
	if msgs[0].topic != "quiz:9:leaderboard" || msgs[0].event != app.EventQuizDeleted {
		t.Fatalf("unexpected close message: %+v", msgs[0])
	}
	if msgs[1].topic != app.OverallLeaderboardTopic || msgs[1].event != app.EventRankingUpdated {
		t.Fatalf("unexpected overall message: %+v", msgs[1])
	}
}

func TestIsLeaderboardTopic(t *testing.T) {
	cases := map[string]bool{
		"quiz:leaderboard:overall": true,
		"quiz:12:leaderboard":      true,
		"quiz:abc:leaderboard":     false,
		"quiz:12":                  false,
		"admin:12:leaderboard":     false,
		"":                         false,
	}
	cases[app.QuizLeaderboardTopic(5)] = true
	for topic, want := range cases {
		if got := app.IsLeaderboardTopic(topic); got != want {
			t.Fatalf("IsLeaderboardTopic(%q) = %v, want %v", topic, got, want)
		}
	}
}
