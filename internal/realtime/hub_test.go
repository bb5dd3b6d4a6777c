package realtime

import (
	"context"
	"testing"
	"time"
)

func TestHubDeliversToTopicSubscribers(t *testing.T) {
	hub := NewHub(4)
	quiz, cancelQuiz := hub.Subscribe("quiz:1:leaderboard")
	defer cancelQuiz()
	other, cancelOther := hub.Subscribe("quiz:2:leaderboard")
	defer cancelOther()

	if err := hub.Broadcast(context.Background(), "quiz:1:leaderboard", "ranking_updated", map[string]int{"entries": 1}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case msg := <-quiz:
		if msg.Event != "ranking_updated" || msg.Topic != "quiz:1:leaderboard" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for message")
	}

	select {
	case msg := <-other:
		t.Fatalf("unexpected message on other topic: %+v", msg)
	default:
	}
}

func TestHubReplaysLatestOnSubscribe(t *testing.T) {
	hub := NewHub(4)
	_ = hub.Broadcast(context.Background(), "quiz:leaderboard:overall", "ranking_updated", 1)
	_ = hub.Broadcast(context.Background(), "quiz:leaderboard:overall", "ranking_updated", 2)

	ch, cancel := hub.Subscribe("quiz:leaderboard:overall")
	defer cancel()
	msg := <-ch
	if msg.Data != 2 {
		t.Fatalf("expected latest payload 2, got %v", msg.Data)
	}
}

func TestHubEvictsClosedTopics(t *testing.T) {
	hub := NewHub(4)
	hub.EvictOn("quiz_deleted")
	live, cancelLive := hub.Subscribe("quiz:7:leaderboard")
	defer cancelLive()

	_ = hub.Broadcast(context.Background(), "quiz:7:leaderboard", "ranking_updated", 1)
	_ = hub.Broadcast(context.Background(), "quiz:7:leaderboard", "quiz_deleted", nil)
	<-live
	if msg := <-live; msg.Event != "quiz_deleted" {
		t.Fatalf("expected closing event delivered to live subscribers, got %+v", msg)
	}

	late, cancelLate := hub.Subscribe("quiz:7:leaderboard")
	defer cancelLate()
	select {
	case msg := <-late:
		t.Fatalf("closed topic must not replay a snapshot, got %+v", msg)
	default:
	}
}

func TestHubDropsOldestForSlowSubscriber(t *testing.T) {
	hub := NewHub(2)
	ch, cancel := hub.Subscribe("t")
	defer cancel()

	for i := 1; i <= 10; i++ {
		_ = hub.Broadcast(context.Background(), "t", "e", i)
	}

	var last any
	for {
		select {
		case msg := <-ch:
			last = msg.Data
			continue
		default:
		}
		break
	}
	if last != 10 {
		t.Fatalf("expected newest message retained, got %v", last)
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe("a", "b")
	if hub.Subscribers("a") != 1 || hub.Subscribers("b") != 1 {
		t.Fatalf("expected subscriber on both topics")
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if hub.Subscribers("a") != 0 {
		t.Fatalf("expected subscriber removed")
	}
	_ = hub.Broadcast(context.Background(), "a", "e", nil)
}
