package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/studiobook/internal/activity/domain"
	"github.com/smallbiznis/studiobook/internal/cache"
	"github.com/smallbiznis/studiobook/internal/clock"
	"github.com/smallbiznis/studiobook/internal/config"
	"github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/lock"
	obscontext "github.com/smallbiznis/studiobook/internal/observability/context"
	"github.com/smallbiznis/studiobook/internal/observability/logger"
	"github.com/smallbiznis/studiobook/internal/observability/metrics"
	"github.com/smallbiznis/studiobook/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const topSubjectsLimit = 10

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  *config.LevelingConfigHolder
	Repo    domain.Repository
	Counter activitydomain.Counter
	Locker  *lock.SubjectLocker

	Cache           cache.RecordCache        `optional:"true"`
	LevelingMetrics *metrics.LevelingMetrics `optional:"true"`
	Metrics         *metrics.Metrics         `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	config  *config.LevelingConfigHolder
	repo    domain.Repository
	counter activitydomain.Counter
	locker  *lock.SubjectLocker
	cache   cache.RecordCache
	tracer  trace.Tracer

	levelingMetrics *metrics.LevelingMetrics
	metrics         *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("gamification.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		config:          p.Config,
		repo:            p.Repo,
		counter:         p.Counter,
		locker:          p.Locker,
		cache:           p.Cache,
		tracer:          otel.Tracer("studiobook/gamification"),
		levelingMetrics: p.LevelingMetrics,
		metrics:         p.Metrics,
	}
}

// Evaluate decides whether the subject gains a level and persists the outcome.
// Evaluations of one subject are serialized; the read-modify-write runs in a
// single transaction so a failure leaves the record untouched.
func (s *Service) Evaluate(ctx context.Context, req domain.EvaluateRequest) (domain.EvaluateResult, error) {
	subject := domain.Subject{ID: req.SubjectID, Role: req.SubjectRole}
	if err := subject.Validate(); err != nil {
		return domain.EvaluateResult{}, err
	}

	start := time.Now()
	role := string(subject.Role)
	ctx = obscontext.WithSubject(ctx, subject.String())
	ctx, span := s.tracer.Start(ctx, "gamification.evaluate", trace.WithAttributes(
		attribute.String("subject.role", role),
		attribute.Int64("subject.id", subject.ID),
	))
	defer span.End()

	log := logger.WithContext(ctx, s.log)

	result, err := s.evaluate(ctx, subject)
	if err != nil {
		s.levelingMetrics.IncError(role, err)
		s.levelingMetrics.ObserveEvaluation(role, metrics.EvaluationResultFailed, time.Since(start))
		if safeErr := tracing.SafeError(err); safeErr != nil {
			span.RecordError(safeErr)
		}
		span.SetStatus(codes.Error, "evaluation failed")
		log.Warn("level evaluation failed",
			zap.String("reason", metrics.ClassifyLevelingReason(err)),
			zap.Error(err),
		)
		return domain.EvaluateResult{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(subject)
	}

	outcome := metrics.EvaluationResultUnchanged
	if result.Promoted {
		outcome = metrics.EvaluationResultPromoted
		s.levelingMetrics.IncPromotion(role, result.Level)
		log.Info("subject promoted",
			zap.Int("from_level", result.PreviousLevel),
			zap.Int("to_level", result.Level),
			zap.Int64("bookings", result.TotalBookings),
			zap.Int64("reviews", result.TotalReviews),
		)
	} else {
		log.Debug("level unchanged",
			zap.Int("level", result.Level),
			zap.String("reason", result.Reason),
			zap.Int64("bookings", result.TotalBookings),
			zap.Int64("reviews", result.TotalReviews),
		)
	}
	s.levelingMetrics.ObserveEvaluation(role, outcome, time.Since(start))
	s.metrics.RecordLevelEvaluation(ctx, role, result.Promoted, result.Level)
	span.SetAttributes(
		attribute.Int("level.previous", result.PreviousLevel),
		attribute.Int("level.current", result.Level),
		attribute.Bool("level.promoted", result.Promoted),
	)

	return result, nil
}

func (s *Service) evaluate(ctx context.Context, subject domain.Subject) (domain.EvaluateResult, error) {
	role := string(subject.Role)
	lockStart := time.Now()
	release, err := s.locker.Acquire(ctx, lock.Key(role, subject.ID))
	s.levelingMetrics.ObserveLockWait(role, time.Since(lockStart))
	if err != nil {
		return domain.EvaluateResult{}, err
	}
	defer release()

	table := domain.NewLevelTable(s.config.Get())
	now := s.clock.Now().UTC()
	since := now.AddDate(0, -table.WindowMonths(), 0)

	var result domain.EvaluateResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, fresh, err := s.loadOrCreate(ctx, tx, subject, now)
		if err != nil {
			return err
		}

		totalBookings, err := s.counter.CountBookings(ctx, tx, subject, since)
		if err != nil {
			return fmt.Errorf("%w: count bookings: %w", domain.ErrDataAccess, err)
		}
		totalReviews, err := s.counter.CountReviews(ctx, tx, subject, since)
		if err != nil {
			return fmt.Errorf("%w: count reviews: %w", domain.ErrDataAccess, err)
		}

		decision := table.Decide(record.Level, record.LastReviewCount, fresh, totalBookings, totalReviews)

		update := domain.ProgressUpdate{
			LastReviewCount: totalReviews,
			UpdatedAt:       now,
		}
		if decision.Promote {
			level := decision.NextLevel
			update.Level = &level
			update.LevelUpAt = &now
		}
		if err := s.repo.UpdateProgress(ctx, tx, subject, update); err != nil {
			return fmt.Errorf("%w: update progress: %w", domain.ErrDataAccess, err)
		}

		result = domain.EvaluateResult{
			SubjectID:        subject.ID,
			SubjectRole:      subject.Role,
			PreviousLevel:    decision.CurrentLevel,
			Level:            decision.NextLevel,
			Promoted:         decision.Promote,
			Reason:           decision.Reason,
			TotalBookings:    totalBookings,
			TotalReviews:     totalReviews,
			GrowthPercentage: decision.Growth.Percentage,
			RequiredGrowth:   decision.Growth.Required,
			EvaluatedAt:      now,
		}
		return nil
	})
	if err != nil {
		return domain.EvaluateResult{}, err
	}
	return result, nil
}

// loadOrCreate returns the locked record and whether this call created it.
func (s *Service) loadOrCreate(ctx context.Context, tx *gorm.DB, subject domain.Subject, now time.Time) (*domain.GamificationRecord, bool, error) {
	record, err := s.repo.FindBySubject(ctx, tx, subject, true)
	if err != nil {
		return nil, false, fmt.Errorf("%w: load record: %w", domain.ErrDataAccess, err)
	}
	if record != nil {
		return record, false, nil
	}

	zero := int64(0)
	candidate := &domain.GamificationRecord{
		ID:              s.genID.Generate(),
		SubjectID:       subject.ID,
		SubjectRole:     subject.Role,
		Level:           domain.StartingLevel,
		LastReviewCount: &zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, tx, candidate); err != nil {
		return nil, false, fmt.Errorf("%w: create record: %w", domain.ErrDataAccess, err)
	}

	record, err = s.repo.FindBySubject(ctx, tx, subject, true)
	if err != nil {
		return nil, false, fmt.Errorf("%w: reload record: %w", domain.ErrDataAccess, err)
	}
	if record == nil {
		return nil, false, fmt.Errorf("%w: reload record: %w", domain.ErrDataAccess, domain.ErrRecordMissing)
	}
	return record, record.ID == candidate.ID, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (domain.GamificationRecord, error) {
	subject := domain.Subject{ID: req.SubjectID, Role: req.SubjectRole}
	if err := subject.Validate(); err != nil {
		return domain.GamificationRecord{}, err
	}

	if s.cache != nil {
		if record, ok := s.cache.Get(subject); ok {
			return record, nil
		}
	}

	record, err := s.repo.FindBySubject(ctx, s.db, subject, false)
	if err != nil {
		return domain.GamificationRecord{}, fmt.Errorf("%w: load record: %w", domain.ErrDataAccess, err)
	}
	if record == nil {
		return domain.GamificationRecord{}, domain.ErrNotFound
	}

	if s.cache != nil {
		s.cache.Set(*record)
	}
	return *record, nil
}

func (s *Service) Requirements(ctx context.Context) (domain.RequirementsResponse, error) {
	table := domain.NewLevelTable(s.config.Get())
	return domain.RequirementsResponse{
		WindowMonths:            table.WindowMonths(),
		MaxLevel:                table.MaxLevel(),
		EnforceReviewPercentage: table.EnforceReviewPercentage(),
		Levels:                  table.Requirements(),
	}, nil
}

func (s *Service) Stats(ctx context.Context) (domain.StatsResponse, error) {
	roles, err := s.repo.RoleStats(ctx, s.db)
	if err != nil {
		return domain.StatsResponse{}, fmt.Errorf("%w: role stats: %w", domain.ErrDataAccess, err)
	}
	histogram, err := s.repo.LevelHistogram(ctx, s.db)
	if err != nil {
		return domain.StatsResponse{}, fmt.Errorf("%w: level histogram: %w", domain.ErrDataAccess, err)
	}
	top, err := s.repo.Top(ctx, s.db, topSubjectsLimit)
	if err != nil {
		return domain.StatsResponse{}, fmt.Errorf("%w: top subjects: %w", domain.ErrDataAccess, err)
	}

	resp := domain.StatsResponse{
		Roles:     roles,
		Histogram: histogram,
		Top:       top,
	}
	if resp.Roles == nil {
		resp.Roles = []domain.RoleStats{}
	}
	if resp.Histogram == nil {
		resp.Histogram = []domain.LevelCount{}
	}
	if resp.Top == nil {
		resp.Top = []domain.GamificationRecord{}
	}
	return resp, nil
}

// IsValidation reports whether err is caused by bad input rather than the store.
func IsValidation(err error) bool {
	return errors.Is(err, domain.ErrInvalidSubjectRole) || errors.Is(err, domain.ErrInvalidSubjectID)
}
