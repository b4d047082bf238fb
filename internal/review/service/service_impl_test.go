package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/studiobook/internal/clock"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	gamificationservice "github.com/smallbiznis/studiobook/internal/gamification/service"
	"github.com/smallbiznis/studiobook/internal/migration"
	"github.com/smallbiznis/studiobook/internal/observability/metrics"
	"github.com/smallbiznis/studiobook/internal/review/domain"
	"github.com/smallbiznis/studiobook/internal/review/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2026, 5, 2, 18, 30, 0, 0, time.UTC)

type recordingTrigger struct {
	source   string
	subjects []gamificationdomain.Subject
	calls    int
}

func (r *recordingTrigger) Fire(_ context.Context, source string, subjects ...gamificationdomain.Subject) {
	r.calls++
	r.source = source
	r.subjects = subjects
}

type failingService struct {
	gamificationdomain.Service
	calls int
}

func (f *failingService) Evaluate(context.Context, gamificationdomain.EvaluateRequest) (gamificationdomain.EvaluateResult, error) {
	f.calls++
	return gamificationdomain.EvaluateResult{}, fmt.Errorf("%w: %w", gamificationdomain.ErrDataAccess, errors.New("db unavailable"))
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.AutoMigrate(db))
	return db
}

func newService(t *testing.T, db *gorm.DB, trig gamificationdomain.Trigger) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(now),
		Repo:    repository.Provide(),
		Trigger: trig,
	})
}

func TestCreateReviewFiresTriggerForBothParties(t *testing.T) {
	db := openDB(t)
	trig := &recordingTrigger{}
	svc := newService(t, db, trig)

	review, err := svc.Create(context.Background(), domain.CreateReviewRequest{
		ArtistID: 5,
		StudioID: 42,
		Rating:   4,
		Comment:  "  great room  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "great room", review.Comment)
	assert.True(t, review.ReviewDate.Equal(now))

	assert.Equal(t, 1, trig.calls)
	assert.Equal(t, metrics.TriggerReviewCreated, trig.source)
	assert.Equal(t, []gamificationdomain.Subject{
		{ID: 5, Role: gamificationdomain.SubjectRoleArtist},
		{ID: 42, Role: gamificationdomain.SubjectRoleStudio},
	}, trig.subjects)

	var count int64
	require.NoError(t, db.Model(&domain.Review{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateReviewKeepsExplicitDate(t *testing.T) {
	db := openDB(t)
	svc := newService(t, db, &recordingTrigger{})
	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	review, err := svc.Create(context.Background(), domain.CreateReviewRequest{
		ArtistID: 5, StudioID: 42, Rating: 5, ReviewDate: &date,
	})
	require.NoError(t, err)
	assert.True(t, review.ReviewDate.Equal(date))
}

func TestCreateReviewValidation(t *testing.T) {
	db := openDB(t)
	trig := &recordingTrigger{}
	svc := newService(t, db, trig)

	tests := []struct {
		name string
		req  domain.CreateReviewRequest
		err  error
	}{
		{"missing artist", domain.CreateReviewRequest{StudioID: 1, Rating: 3}, domain.ErrInvalidArtist},
		{"missing studio", domain.CreateReviewRequest{ArtistID: 1, Rating: 3}, domain.ErrInvalidStudio},
		{"rating too low", domain.CreateReviewRequest{ArtistID: 1, StudioID: 1, Rating: 0}, domain.ErrInvalidRating},
		{"rating too high", domain.CreateReviewRequest{ArtistID: 1, StudioID: 1, Rating: 6}, domain.ErrInvalidRating},
		{"comment too long", domain.CreateReviewRequest{ArtistID: 1, StudioID: 1, Rating: 3, Comment: strings.Repeat("a", domain.MaxCommentLength+1)}, domain.ErrInvalidComment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Zero(t, trig.calls)
}

func TestCreateReviewSurvivesLevelingFailure(t *testing.T) {
	db := openDB(t)
	engine := &failingService{}
	trig := gamificationservice.NewTrigger(gamificationservice.TriggerParams{
		Service: engine,
		Log:     zap.NewNop(),
	})
	svc := newService(t, db, trig)

	review, err := svc.Create(context.Background(), domain.CreateReviewRequest{ArtistID: 5, StudioID: 42, Rating: 5})
	require.NoError(t, err)
	assert.NotZero(t, review.ID)
	assert.Equal(t, 2, engine.calls)

	var count int64
	require.NoError(t, db.Model(&domain.Review{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
