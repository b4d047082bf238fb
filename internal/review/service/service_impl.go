package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/studiobook/internal/clock"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/observability/metrics"
	"github.com/smallbiznis/studiobook/internal/review/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Trigger gamificationdomain.Trigger

	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	trigger gamificationdomain.Trigger
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("review.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		trigger: p.Trigger,
		metrics: p.Metrics,
	}
}

// Create stores the review, then re-evaluates the reviewed artist and studio.
// The review stands even if leveling fails.
func (s *Service) Create(ctx context.Context, req domain.CreateReviewRequest) (domain.Review, error) {
	if req.ArtistID <= 0 {
		return domain.Review{}, domain.ErrInvalidArtist
	}
	if req.StudioID <= 0 {
		return domain.Review{}, domain.ErrInvalidStudio
	}
	if req.Rating < domain.MinRating || req.Rating > domain.MaxRating {
		return domain.Review{}, domain.ErrInvalidRating
	}
	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > domain.MaxCommentLength {
		return domain.Review{}, domain.ErrInvalidComment
	}

	now := s.clock.Now().UTC()
	reviewDate := now
	if req.ReviewDate != nil && !req.ReviewDate.IsZero() {
		reviewDate = req.ReviewDate.UTC()
	}

	review := domain.Review{
		ID:         s.genID.Generate(),
		ArtistID:   req.ArtistID,
		StudioID:   req.StudioID,
		Rating:     req.Rating,
		Comment:    comment,
		ReviewDate: reviewDate,
		CreatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &review); err != nil {
		return domain.Review{}, err
	}
	s.metrics.RecordReviewCreated(ctx)

	s.trigger.Fire(ctx, metrics.TriggerReviewCreated,
		gamificationdomain.Subject{ID: review.ArtistID, Role: gamificationdomain.SubjectRoleArtist},
		gamificationdomain.Subject{ID: review.StudioID, Role: gamificationdomain.SubjectRoleStudio},
	)
	return review, nil
}
