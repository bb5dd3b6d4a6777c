package memory

import (
	"context"
	"strconv"
	"testing"

	"church-quiz-service/internal/domain"
)

func TestPusherKeepsRecentJobsOnly(t *testing.T) {
	p := NewPusher(nil)
	for i := 0; i < maxRecordedJobs+10; i++ {
		if err := p.Push(context.Background(), domain.PushNotification{Title: strconv.Itoa(i)}, nil); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	jobs := p.Jobs()
	if len(jobs) != maxRecordedJobs {
		t.Fatalf("expected %d jobs kept, got %d", maxRecordedJobs, len(jobs))
	}
	if jobs[0].Notification.Title != "10" || jobs[len(jobs)-1].Notification.Title != strconv.Itoa(maxRecordedJobs+9) {
		t.Fatalf("expected the newest jobs in order, got first=%q last=%q", jobs[0].Notification.Title, jobs[len(jobs)-1].Notification.Title)
	}
}
