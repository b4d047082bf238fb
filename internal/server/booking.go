package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/studiobook/internal/booking/domain"
	"github.com/smallbiznis/studiobook/pkg/db/pagination"
)

type createBookingRequest struct {
	ArtistID    int64          `json:"artist_id"`
	StudioID    int64          `json:"studio_id"`
	ServiceID   *int64         `json:"service_id"`
	BookingDate string         `json:"booking_date"`
	BookingTime string         `json:"booking_time"`
	Guests      int            `json:"guests"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata"`
}

type updateBookingStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	bookingDate, err := parseOptionalTime(req.BookingDate)
	if err != nil {
		AbortWithError(c, bookingdomain.ErrInvalidBookingDate)
		return
	}
	var date time.Time
	if bookingDate != nil {
		date = *bookingDate
	}

	resp, err := s.bookingSvc.Create(c.Request.Context(), bookingdomain.CreateBookingRequest{
		ArtistID:    req.ArtistID,
		StudioID:    req.StudioID,
		ServiceID:   req.ServiceID,
		BookingDate: date,
		BookingTime: strings.TrimSpace(req.BookingTime),
		Guests:      req.Guests,
		Status:      req.Status,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBookings(c *gin.Context) {
	var query struct {
		pagination.Pagination
		ArtistID string `form:"artist_id"`
		StudioID string `form:"studio_id"`
		Status   string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	artistID, err := parseOptionalInt64(query.ArtistID)
	if err != nil {
		AbortWithError(c, newValidationError("artist_id", "invalid_artist_id", "invalid artist_id"))
		return
	}
	studioID, err := parseOptionalInt64(query.StudioID)
	if err != nil {
		AbortWithError(c, newValidationError("studio_id", "invalid_studio_id", "invalid studio_id"))
		return
	}

	req := bookingdomain.ListBookingRequest{
		Status:    strings.TrimSpace(query.Status),
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
	}
	if artistID != nil {
		req.ArtistID = *artistID
	}
	if studioID != nil {
		req.StudioID = *studioID
	}

	resp, err := s.bookingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBookingByID(c *gin.Context) {
	resp, err := s.bookingSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateBookingStatus(c *gin.Context) {
	var req updateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.bookingSvc.UpdateStatus(c.Request.Context(), bookingdomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
