package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/studiobook/internal/booking/domain"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/observability"
	reviewdomain "github.com/smallbiznis/studiobook/internal/review/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBookingService struct {
	created      bookingdomain.CreateBookingRequest
	statusUpdate bookingdomain.UpdateStatusRequest
	err          error
}

func (f *fakeBookingService) Create(_ context.Context, req bookingdomain.CreateBookingRequest) (bookingdomain.Booking, error) {
	f.created = req
	if f.err != nil {
		return bookingdomain.Booking{}, f.err
	}
	return bookingdomain.Booking{ID: 1, ArtistID: req.ArtistID, StudioID: req.StudioID, BookingDate: req.BookingDate, Status: bookingdomain.StatusPending}, nil
}

func (f *fakeBookingService) UpdateStatus(_ context.Context, req bookingdomain.UpdateStatusRequest) (bookingdomain.Booking, error) {
	f.statusUpdate = req
	if f.err != nil {
		return bookingdomain.Booking{}, f.err
	}
	return bookingdomain.Booking{ID: 1, Status: bookingdomain.Status(req.Status)}, nil
}

func (f *fakeBookingService) GetByID(_ context.Context, id string) (bookingdomain.Booking, error) {
	if f.err != nil {
		return bookingdomain.Booking{}, f.err
	}
	return bookingdomain.Booking{ID: 1}, nil
}

func (f *fakeBookingService) List(_ context.Context, req bookingdomain.ListBookingRequest) (bookingdomain.ListBookingResponse, error) {
	if f.err != nil {
		return bookingdomain.ListBookingResponse{}, f.err
	}
	return bookingdomain.ListBookingResponse{Bookings: []bookingdomain.Booking{{ID: 1, StudioID: req.StudioID}}}, nil
}

type fakeReviewService struct {
	req reviewdomain.CreateReviewRequest
	err error
}

func (f *fakeReviewService) Create(_ context.Context, req reviewdomain.CreateReviewRequest) (reviewdomain.Review, error) {
	f.req = req
	if f.err != nil {
		return reviewdomain.Review{}, f.err
	}
	return reviewdomain.Review{ID: 7, ArtistID: req.ArtistID, StudioID: req.StudioID, Rating: req.Rating}, nil
}

type fakeGamificationService struct {
	evaluated []gamificationdomain.EvaluateRequest
	record    *gamificationdomain.GamificationRecord
	err       error
}

func (f *fakeGamificationService) Evaluate(_ context.Context, req gamificationdomain.EvaluateRequest) (gamificationdomain.EvaluateResult, error) {
	f.evaluated = append(f.evaluated, req)
	if f.err != nil {
		return gamificationdomain.EvaluateResult{}, f.err
	}
	return gamificationdomain.EvaluateResult{SubjectID: req.SubjectID, SubjectRole: req.SubjectRole, PreviousLevel: 1, Level: 2, Promoted: true}, nil
}

func (f *fakeGamificationService) Get(_ context.Context, req gamificationdomain.GetRequest) (gamificationdomain.GamificationRecord, error) {
	if f.err != nil {
		return gamificationdomain.GamificationRecord{}, f.err
	}
	if f.record == nil {
		return gamificationdomain.GamificationRecord{}, gamificationdomain.ErrNotFound
	}
	return *f.record, nil
}

func (f *fakeGamificationService) Requirements(context.Context) (gamificationdomain.RequirementsResponse, error) {
	return gamificationdomain.RequirementsResponse{
		WindowMonths: 6,
		MaxLevel:     10,
		Levels:       []gamificationdomain.Requirement{{Level: 2, MinBookings: 3}},
	}, nil
}

func (f *fakeGamificationService) Stats(context.Context) (gamificationdomain.StatsResponse, error) {
	return gamificationdomain.StatsResponse{
		Roles: []gamificationdomain.RoleStats{{SubjectRole: gamificationdomain.SubjectRoleStudio, Subjects: 1, MaxLevel: 3, AverageLevel: 3}},
	}, nil
}

type testServer struct {
	engine       *gin.Engine
	bookings     *fakeBookingService
	reviews      *fakeReviewService
	gamification *fakeGamificationService
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := testServer{
		engine:       NewEngine(observability.Config{LogLevel: "info"}, nil),
		bookings:     &fakeBookingService{},
		reviews:      &fakeReviewService{},
		gamification: &fakeGamificationService{},
	}
	NewServer(ServerParams{
		Gin:             ts.engine,
		BookingSvc:      ts.bookings,
		ReviewSvc:       ts.reviews,
		GamificationSvc: ts.gamification,
	})
	return ts
}

func (ts testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEvaluateSubjectEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/gamification/Studio/42", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data gamificationdomain.EvaluateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Level)
	require.Len(t, ts.gamification.evaluated, 1)
	assert.Equal(t, gamificationdomain.EvaluateRequest{SubjectID: 42, SubjectRole: gamificationdomain.SubjectRoleStudio}, ts.gamification.evaluated[0])
}

func TestEvaluateSubjectValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path string
		code string
	}{
		{"/api/gamification/admin/42", "invalid_subject_role"},
		{"/api/gamification/artist/abc", "invalid_subject_id"},
		{"/api/gamification/artist/-3", "invalid_subject_id"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(t, http.MethodPut, tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			payload := decodeError(t, rec)
			assert.Equal(t, "validation_error", payload.Type)
			require.Len(t, payload.Errors, 1)
			assert.Equal(t, tt.code, payload.Errors[0].Code)
		})
	}
	assert.Empty(t, ts.gamification.evaluated)
}

func TestEvaluateSubjectErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"lock timeout", gamificationdomain.ErrLockTimeout, http.StatusServiceUnavailable, "service_unavailable"},
		{"data access", fmt.Errorf("%w: count bookings: %w", gamificationdomain.ErrDataAccess, errors.New("boom")), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.gamification.err = tt.err

			rec := ts.do(t, http.MethodPut, "/api/gamification/artist/1", nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.kind, decodeError(t, rec).Type)
			assert.NotContains(t, rec.Body.String(), "boom")
		})
	}
}

func TestGetSubjectGamification(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/artists/5/gamification", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	lrc := int64(2)
	ts.gamification.record = &gamificationdomain.GamificationRecord{ID: 9, SubjectID: 5, SubjectRole: gamificationdomain.SubjectRoleArtist, Level: 3, LastReviewCount: &lrc}
	rec = ts.do(t, http.MethodGet, "/api/artists/5/gamification", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data gamificationdomain.GamificationRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Data.Level)

	rec = ts.do(t, http.MethodGet, "/api/studios/zero/gamification", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequirementsAndStats(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/gamification/requirements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"window_months":6`)

	rec = ts.do(t, http.MethodGet, "/api/gamification/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subject_role":"studio"`)
}

func TestCreateBookingEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/bookings", map[string]any{
		"artist_id":    5,
		"studio_id":    42,
		"booking_date": "2026-03-10",
		"booking_time": "14:00",
		"guests":       2,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), ts.bookings.created.BookingDate)
	assert.Equal(t, int64(42), ts.bookings.created.StudioID)

	rec = ts.do(t, http.MethodPost, "/api/bookings", map[string]any{"artist_id": 5, "studio_id": 42, "booking_date": "soon"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_booking_date", decodeError(t, rec).Errors[0].Code)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	raw := httptest.NewRecorder()
	ts.engine.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestUpdateBookingStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPatch, "/api/bookings/1/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bookingdomain.UpdateStatusRequest{ID: "1", Status: "confirmed"}, ts.bookings.statusUpdate)

	ts.bookings.err = bookingdomain.ErrNotFound
	rec = ts.do(t, http.MethodPatch, "/api/bookings/2/status", map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBookingsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/bookings?studio_id=42&page_size=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"studio_id":42`)

	rec = ts.do(t, http.MethodGet, "/api/bookings?artist_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReviewEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/reviews", map[string]any{
		"artist_id": 5,
		"studio_id": 42,
		"rating":    5,
		"comment":   "great",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, ts.reviews.req.ReviewDate)

	ts.reviews.err = reviewdomain.ErrInvalidRating
	rec = ts.do(t, http.MethodPost, "/api/reviews", map[string]any{"artist_id": 5, "studio_id": 42, "rating": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rating", decodeError(t, rec).Errors[0].Field)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(gamificationdomain.ErrInvalidSubjectRole)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_subject_role", code)

	kind, code = classifyErrorForLog(fmt.Errorf("%w: x", gamificationdomain.ErrDataAccess))
	assert.Equal(t, "internal_error", kind)
	assert.Equal(t, "data_access", code)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", retryAfterSeconds(0))
	assert.Equal(t, "3", retryAfterSeconds(2100*time.Millisecond))
}
