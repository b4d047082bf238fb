package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/studiobook/pkg/db/pagination"
)

type CreateBookingRequest struct {
	ArtistID    int64          `json:"artist_id"`
	StudioID    int64          `json:"studio_id"`
	ServiceID   *int64         `json:"service_id"`
	BookingDate time.Time      `json:"booking_date"`
	BookingTime string         `json:"booking_time"`
	Guests      int            `json:"guests"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata"`
}

type UpdateStatusRequest struct {
	ID     string
	Status string
}

type ListBookingRequest struct {
	ArtistID  int64
	StudioID  int64
	Status    string
	PageToken string
	PageSize  int
}

type ListBookingFilter struct {
	ArtistID int64
	StudioID int64
	Status   Status
	BeforeID int64
}

type ListBookingResponse struct {
	pagination.PageInfo
	Bookings []Booking `json:"bookings"`
}

type Service interface {
	Create(context.Context, CreateBookingRequest) (Booking, error)
	UpdateStatus(context.Context, UpdateStatusRequest) (Booking, error)
	GetByID(context.Context, string) (Booking, error)
	List(context.Context, ListBookingRequest) (ListBookingResponse, error)
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidArtist      = errors.New("invalid_artist")
	ErrInvalidStudio      = errors.New("invalid_studio")
	ErrInvalidBookingDate = errors.New("invalid_booking_date")
	ErrInvalidGuests      = errors.New("invalid_guests")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrNotFound           = errors.New("not_found")
)
