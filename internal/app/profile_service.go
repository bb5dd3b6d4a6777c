package app

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"church-quiz-service/internal/domain"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	defaultAvatarSize = 256
	// maxAvatarPixels bounds the decoded size of an upload; a small file can
	// declare huge dimensions.
	maxAvatarPixels = 4096 * 4096
)

const (
	defaultParticipantPageSize = 20
	maxParticipantPageSize     = 50
)

// ProfileService keeps participant rows in sync with the identity provider
// and manages the editable profile fields.
type ProfileService struct {
	participants ParticipantStore
	blobs        BlobStore
	avatarSize   int
	hook         SubmissionHook
	now          func() time.Time
}

type ProfileOption func(*ProfileService)

// WithResultsHook is told about every quiz whose results change when a
// participant is deleted.
func WithResultsHook(hook SubmissionHook) ProfileOption {
	return func(s *ProfileService) { s.hook = hook }
}

func NewProfileService(participants ParticipantStore, blobs BlobStore, avatarSize int, opts ...ProfileOption) *ProfileService {
	if avatarSize <= 0 {
		avatarSize = defaultAvatarSize
	}
	s := &ProfileService{participants: participants, blobs: blobs, avatarSize: avatarSize, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParticipantPage is one page of the admin participant listing.
type ParticipantPage struct {
	Participants []domain.Participant `json:"participants"`
	Total        int                  `json:"total"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
	TotalPages   int                  `json:"totalPages"`
}

// ListParticipants pages through participants, newest first. page starts at
// 1; limit defaults to 20 and is clamped to 50.
func (s *ProfileService) ListParticipants(ctx context.Context, page, limit int) (ParticipantPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultParticipantPageSize
	}
	if limit > maxParticipantPageSize {
		limit = maxParticipantPageSize
	}
	rows, total, err := s.participants.ListParticipants(ctx, (page-1)*limit, limit)
	if err != nil {
		return ParticipantPage{}, err
	}
	return ParticipantPage{
		Participants: rows,
		Total:        total,
		Page:         page,
		Limit:        limit,
		TotalPages:   (total + limit - 1) / limit,
	}, nil
}

// DeleteParticipant removes a participant and everything they submitted.
// An administrator cannot delete their own row.
func (s *ProfileService) DeleteParticipant(ctx context.Context, actorID, participantID string) error {
	if participantID == actorID {
		return fmt.Errorf("%w: cannot delete your own account", domain.ErrInvalidInput)
	}
	quizIDs, err := s.participants.DeleteParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if s.hook != nil {
		for _, id := range quizIDs {
			s.hook.SubmissionCommitted(id)
		}
	}
	return nil
}

// Sync upserts the participant described by the token claims.
func (s *ProfileService) Sync(ctx context.Context, p domain.Participant) (domain.Participant, error) {
	if p.ID == "" {
		return domain.Participant{}, fmt.Errorf("%w: participant id is required", domain.ErrInvalidInput)
	}
	if p.Role == "" {
		p.Role = domain.RoleUser
	}
	p.UpdatedAt = s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	if err := s.participants.UpsertParticipant(ctx, &p); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

func (s *ProfileService) Get(ctx context.Context, participantID string) (domain.Participant, error) {
	return s.participants.GetParticipant(ctx, participantID)
}

// SetSocialName updates the name shown on leaderboards; empty clears it.
func (s *ProfileService) SetSocialName(ctx context.Context, participantID, socialName string) (domain.Participant, error) {
	socialName = strings.TrimSpace(socialName)
	if len([]rune(socialName)) > 80 {
		return domain.Participant{}, fmt.Errorf("%w: social name too long", domain.ErrInvalidInput)
	}
	return s.participants.UpdateProfile(ctx, participantID, ProfileUpdate{SocialName: &socialName})
}

// UploadAvatar crops the image to a centered square, resizes it and stores it.
func (s *ProfileService) UploadAvatar(ctx context.Context, participantID string, r io.Reader) (domain.Participant, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("%w: read image: %v", domain.ErrInvalidInput, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.Participant{}, fmt.Errorf("%w: unsupported image: %v", domain.ErrInvalidInput, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxAvatarPixels {
		return domain.Participant{}, fmt.Errorf("%w: image is %dx%d, limit is %d pixels", domain.ErrInvalidInput, cfg.Width, cfg.Height, maxAvatarPixels)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return domain.Participant{}, fmt.Errorf("%w: unsupported image: %v", domain.ErrInvalidInput, err)
	}
	thumb := imaging.Fill(img, s.avatarSize, s.avatarSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return domain.Participant{}, fmt.Errorf("encode avatar: %w", err)
	}
	key := fmt.Sprintf("avatars/%s-%s.jpg", s.now().Format("20060102"), uuid.NewString())
	url, err := s.blobs.Put(ctx, key, "image/jpeg", buf.Bytes())
	if err != nil {
		return domain.Participant{}, fmt.Errorf("store avatar: %w", err)
	}
	return s.participants.UpdateProfile(ctx, participantID, ProfileUpdate{AvatarURL: &url})
}
