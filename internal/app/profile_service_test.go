package app_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"church-quiz-service/internal/app"
	"church-quiz-service/internal/domain"
	"church-quiz-service/internal/infra/memory"
	"github.com/disintegration/imaging"
)

type blobRecorder struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (b *blobRecorder) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.blobs == nil {
		b.blobs = make(map[string][]byte)
	}
	b.blobs[key] = data
	return "/media/" + key, nil
}

func TestProfileSyncDefaultsRole(t *testing.T) {
	ctx := context.Background()
	profiles := app.NewProfileService(memory.NewStore(), &blobRecorder{}, 0)

	p, err := profiles.Sync(ctx, domain.Participant{ID: "u1", Name: "Maria"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if p.Role != domain.RoleUser || p.CreatedAt.IsZero() {
		t.Fatalf("expected default role and timestamps, got %+v", p)
	}
	if _, err := profiles.Sync(ctx, domain.Participant{Name: "Nobody"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without id, got %v", err)
	}
}

func TestProfileSocialName(t *testing.T) {
	ctx := context.Background()
	profiles := app.NewProfileService(memory.NewStore(), &blobRecorder{}, 0)
	if _, err := profiles.Sync(ctx, domain.Participant{ID: "u1", Name: "Maria"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	p, err := profiles.SetSocialName(ctx, "u1", "  Mari  ")
	if err != nil {
		t.Fatalf("set social name: %v", err)
	}
	if p.SocialName != "Mari" || p.DisplayName() != "Mari" {
		t.Fatalf("expected trimmed social name, got %+v", p)
	}
	if _, err := profiles.SetSocialName(ctx, "u1", strings.Repeat("a", 81)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for long name, got %v", err)
	}
	if _, err := profiles.SetSocialName(ctx, "ghost", "x"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}

	// a later sync from the identity provider keeps the chosen social name
	p, err = profiles.Sync(ctx, domain.Participant{ID: "u1", Name: "Maria Silva"})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if p.SocialName != "Mari" || p.Name != "Maria Silva" {
		t.Fatalf("expected profile kept across sync, got %+v", p)
	}
}

func TestProfileUploadAvatar(t *testing.T) {
	ctx := context.Background()
	blobs := &blobRecorder{}
	profiles := app.NewProfileService(memory.NewStore(), blobs, 64)
	if _, err := profiles.Sync(ctx, domain.Participant{ID: "u1", Name: "Maria"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	src := image.NewRGBA(image.Rect(0, 0, 120, 60))
	for x := 0; x < 120; x++ {
		for y := 0; y < 60; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var raw bytes.Buffer
	if err := png.Encode(&raw, src); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	p, err := profiles.UploadAvatar(ctx, "u1", &raw)
	if err != nil {
		t.Fatalf("upload avatar: %v", err)
	}
	if !strings.HasPrefix(p.AvatarURL, "/media/avatars/") || !strings.HasSuffix(p.AvatarURL, ".jpg") {
		t.Fatalf("unexpected avatar url %q", p.AvatarURL)
	}

	key := strings.TrimPrefix(p.AvatarURL, "/media/")
	stored, ok := blobs.blobs[key]
	if !ok {
		t.Fatalf("expected blob %q to be stored", key)
	}
	img, err := imaging.Decode(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("decode stored avatar: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("expected 64x64 avatar, got %dx%d", b.Dx(), b.Dy())
	}

	if _, err := profiles.UploadAvatar(ctx, "u1", strings.NewReader("not an image")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for garbage upload, got %v", err)
	}
}

func TestProfileUploadAvatarRejectsHugeDimensions(t *testing.T) {
	ctx := context.Background()
	blobs := &blobRecorder{}
	profiles := app.NewProfileService(memory.NewStore(), blobs, 64)
	if _, err := profiles.Sync(ctx, domain.Participant{ID: "u1", Name: "Maria"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	// a GIF header declaring a 65535x65535 canvas, a few bytes on the wire
	header := []byte("GIF89a")
	header = append(header, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00)
	header = append(header, 0x3b)

	if _, err := profiles.UploadAvatar(ctx, "u1", bytes.NewReader(header)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized image, got %v", err)
	}
	if len(blobs.blobs) != 0 {
		t.Fatalf("nothing should be stored for a rejected upload")
	}
}

func TestParticipantAdministration(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	hook := &recordingHook{}
	profiles := app.NewProfileService(store, &blobRecorder{}, 0, app.WithResultsHook(hook))

	for _, id := range []string{"admin", "u1", "u2"} {
		if _, err := profiles.Sync(ctx, domain.Participant{ID: id, Name: "Member " + id}); err != nil {
			t.Fatalf("sync: %v", err)
		}
	}
	for _, quizID := range []int64{3, 5} {
		r := domain.Result{ParticipantID: "u2", QuizID: quizID, Score: domain.Score{Total: 1, Acertos: 1, Percentage: 100}, CreatedAt: time.Now()}
		if err := store.CommitSubmission(ctx, &r, nil); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	if err := store.SavePushSubscription(ctx, &domain.PushSubscription{ParticipantID: "u2", Endpoint: "https://push.example/u2"}); err != nil {
		t.Fatalf("save subscription: %v", err)
	}

	page, err := profiles.ListParticipants(ctx, 0, 500)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Page != 1 || page.Limit != 50 || page.Total != 3 || page.TotalPages != 1 || len(page.Participants) != 3 {
		t.Fatalf("expected clamped first page, got %+v", page)
	}
	page, err = profiles.ListParticipants(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if page.TotalPages != 2 || len(page.Participants) != 1 {
		t.Fatalf("unexpected second page: %+v", page)
	}
	page, err = profiles.ListParticipants(ctx, 9, 2)
	if err != nil || len(page.Participants) != 0 {
		t.Fatalf("expected empty page past the end, got %+v (%v)", page, err)
	}

	if err := profiles.DeleteParticipant(ctx, "admin", "admin"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected self delete rejected, got %v", err)
	}
	if err := profiles.DeleteParticipant(ctx, "admin", "ghost"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
	if err := profiles.DeleteParticipant(ctx, "admin", "u2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := profiles.Get(ctx, "u2"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant gone, got %v", err)
	}
	rows, err := store.ListAllResults(ctx)
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected results to cascade, got %d (%v)", len(rows), err)
	}
	subs, err := store.ListPushSubscriptions(ctx)
	if err != nil || len(subs) != 0 {
		t.Fatalf("expected push subscriptions to cascade, got %d (%v)", len(subs), err)
	}
	if got := hook.calls(); len(got) != 2 || got[0] != 3 || got[1] != 5 {
		t.Fatalf("expected leaderboards of quizzes 3 and 5 refreshed, got %v", got)
	}
}
