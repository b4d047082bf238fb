package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/studiobook/internal/booking/domain"
	"github.com/smallbiznis/studiobook/internal/clock"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/observability/logger"
	"github.com/smallbiznis/studiobook/internal/observability/metrics"
	"github.com/smallbiznis/studiobook/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:     p.Log.Named("booking.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		trigger: p.Trigger,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBookingRequest) (domain.Booking, error) {
	if req.ArtistID <= 0 {
		return domain.Booking{}, domain.ErrInvalidArtist
	}
	if req.StudioID <= 0 {
		return domain.Booking{}, domain.ErrInvalidStudio
	}
	if req.BookingDate.IsZero() {
		return domain.Booking{}, domain.ErrInvalidBookingDate
	}

	guests := req.Guests
	if guests == 0 {
		guests = 1
	}
	if guests < 0 {
		return domain.Booking{}, domain.ErrInvalidGuests
	}

	status := domain.StatusPending
	if strings.TrimSpace(req.Status) != "" {
		parsed, err := domain.ParseStatus(req.Status)
		if err != nil {
			return domain.Booking{}, err
		}
		status = parsed
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	now := s.clock.Now().UTC()
	booking := domain.Booking{
		ID:          s.genID.Generate(),
		ArtistID:    req.ArtistID,
		StudioID:    req.StudioID,
		ServiceID:   req.ServiceID,
		BookingDate: req.BookingDate.UTC(),
		BookingTime: strings.TrimSpace(req.BookingTime),
		Guests:      guests,
		Status:      status,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, &booking); err != nil {
		return domain.Booking{}, err
	}
	s.metrics.RecordBookingCreated(ctx, string(booking.Status))

	if booking.Status == domain.StatusConfirmed {
		s.fireConfirmed(ctx, booking)
	}
	return booking, nil
}

// UpdateStatus commits the new status first. Leveling runs only when the
// booking moves into confirmed and cannot fail the update.
func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.Booking, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Booking{}, err
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return domain.Booking{}, err
	}

	var (
		booking  domain.Booking
		previous domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		previous = item.Status
		if previous == status {
			booking = *item
			return nil
		}

		now := s.clock.Now().UTC()
		if err := s.repo.UpdateStatus(ctx, tx, id, status, now); err != nil {
			return err
		}
		item.Status = status
		item.UpdatedAt = now
		booking = *item
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if previous == status {
		return booking, nil
	}
	s.metrics.RecordBookingStatusChange(ctx, string(status))
	logger.WithContext(ctx, s.log).Info("booking status changed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
	)

	if status == domain.StatusConfirmed {
		s.fireConfirmed(ctx, booking)
	}
	return booking, nil
}

func (s *Service) GetByID(ctx context.Context, value string) (domain.Booking, error) {
	id, err := s.parseID(value)
	if err != nil {
		return domain.Booking{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if item == nil {
		return domain.Booking{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBookingRequest) (domain.ListBookingResponse, error) {
	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}.Normalize()

	filter := domain.ListBookingFilter{
		ArtistID: req.ArtistID,
		StudioID: req.StudioID,
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := domain.ParseStatus(req.Status)
		if err != nil {
			return domain.ListBookingResponse{}, err
		}
		filter.Status = status
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return domain.ListBookingResponse{}, err
		}
		beforeID, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil || beforeID <= 0 {
			return domain.ListBookingResponse{}, pagination.ErrInvalidPageToken
		}
		filter.BeforeID = beforeID
	}

	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListBookingResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(booking *domain.Booking) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: booking.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > page.PageSize {
		items = items[:page.PageSize]
	}

	bookings := make([]domain.Booking, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		bookings = append(bookings, *item)
	}

	resp := domain.ListBookingResponse{Bookings: bookings}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) fireConfirmed(ctx context.Context, booking domain.Booking) {
	s.trigger.Fire(ctx, metrics.TriggerBookingConfirmed,
		gamificationdomain.Subject{ID: booking.ArtistID, Role: gamificationdomain.SubjectRoleArtist},
		gamificationdomain.Subject{ID: booking.StudioID, Role: gamificationdomain.SubjectRoleStudio},
	)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
