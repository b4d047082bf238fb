package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/studiobook/internal/booking/domain"
	"github.com/smallbiznis/studiobook/internal/booking/repository"
	"github.com/smallbiznis/studiobook/internal/clock"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/migration"
	"github.com/smallbiznis/studiobook/internal/observability/metrics"
	"github.com/smallbiznis/studiobook/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type firedEvent struct {
	source   string
	subjects []gamificationdomain.Subject
}

type recordingTrigger struct {
	mu     sync.Mutex
	events []firedEvent
}

func (r *recordingTrigger) Fire(_ context.Context, source string, subjects ...gamificationdomain.Subject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, firedEvent{source: source, subjects: subjects})
}

func (r *recordingTrigger) fired() []firedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]firedEvent(nil), r.events...)
}

func setupService(t *testing.T) (domain.Service, *recordingTrigger, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	trig := &recordingTrigger{}
	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:    repository.Provide(),
		Trigger: trig,
	})
	return svc, trig, db
}

func validRequest() domain.CreateBookingRequest {
	return domain.CreateBookingRequest{
		ArtistID:    5,
		StudioID:    42,
		BookingDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		BookingTime: "14:00",
		Guests:      2,
		Metadata:    map[string]any{"note": "bring amp"},
	}
}

func TestCreateBookingDefaultsToPending(t *testing.T) {
	svc, trig, _ := setupService(t)

	booking, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, booking.Status)
	assert.NotZero(t, booking.ID)
	assert.Empty(t, trig.fired())

	stored, err := svc.GetByID(context.Background(), booking.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(42), stored.StudioID)
	assert.Equal(t, "14:00", stored.BookingTime)
	assert.Equal(t, "bring amp", stored.Metadata["note"])
}

func TestCreateConfirmedBookingFiresTrigger(t *testing.T) {
	svc, trig, _ := setupService(t)
	req := validRequest()
	req.Status = "Confirmed"

	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	events := trig.fired()
	require.Len(t, events, 1)
	assert.Equal(t, metrics.TriggerBookingConfirmed, events[0].source)
	assert.Equal(t, []gamificationdomain.Subject{
		{ID: 5, Role: gamificationdomain.SubjectRoleArtist},
		{ID: 42, Role: gamificationdomain.SubjectRoleStudio},
	}, events[0].subjects)
}

func TestCreateBookingValidation(t *testing.T) {
	svc, _, _ := setupService(t)

	tests := []struct {
		name   string
		mutate func(*domain.CreateBookingRequest)
		err    error
	}{
		{"missing artist", func(r *domain.CreateBookingRequest) { r.ArtistID = 0 }, domain.ErrInvalidArtist},
		{"missing studio", func(r *domain.CreateBookingRequest) { r.StudioID = -1 }, domain.ErrInvalidStudio},
		{"missing date", func(r *domain.CreateBookingRequest) { r.BookingDate = time.Time{} }, domain.ErrInvalidBookingDate},
		{"negative guests", func(r *domain.CreateBookingRequest) { r.Guests = -2 }, domain.ErrInvalidGuests},
		{"unknown status", func(r *domain.CreateBookingRequest) { r.Status = "archived" }, domain.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestUpdateStatusFiresOnlyOnConfirmation(t *testing.T) {
	svc, trig, db := setupService(t)
	ctx := context.Background()

	booking, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: booking.ID.String(), Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status)
	require.Len(t, trig.fired(), 1)

	// confirming twice is not a new transition
	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: booking.ID.String(), Status: "Confirmed"})
	require.NoError(t, err)
	assert.Len(t, trig.fired(), 1)

	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: booking.ID.String(), Status: "completed"})
	require.NoError(t, err)
	assert.Len(t, trig.fired(), 1)

	var status string
	require.NoError(t, db.Raw(`SELECT status FROM bookings WHERE id = ?`, booking.ID).Scan(&status).Error)
	assert.Equal(t, "completed", status)
}

func TestUpdateStatusErrors(t *testing.T) {
	svc, trig, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: "abc", Status: "confirmed"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: "12345", Status: "confirmed"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: "12345", Status: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	assert.Empty(t, trig.fired())
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _, _ := setupService(t)
	_, err := svc.GetByID(context.Background(), "987654321")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListBookingsPaginates(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, validRequest())
		require.NoError(t, err)
	}
	other := validRequest()
	other.StudioID = 43
	_, err := svc.Create(ctx, other)
	require.NoError(t, err)

	first, err := svc.List(ctx, domain.ListBookingRequest{StudioID: 42, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, first.Bookings, 3)
	assert.True(t, first.HasMore)
	assert.NotEmpty(t, first.NextPageToken)
	assert.Greater(t, first.Bookings[0].ID, first.Bookings[1].ID)

	second, err := svc.List(ctx, domain.ListBookingRequest{StudioID: 42, PageSize: 3, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Bookings, 2)
	assert.False(t, second.HasMore)
	assert.Less(t, second.Bookings[0].ID, first.Bookings[2].ID)

	_, err = svc.List(ctx, domain.ListBookingRequest{PageToken: "%%%"})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}
