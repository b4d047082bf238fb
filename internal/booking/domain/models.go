package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus accepts any casing, e.g. "Confirmed".
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusCancelled, "canceled":
		return StatusCancelled, nil
	case StatusCompleted:
		return StatusCompleted, nil
	default:
		return "", ErrInvalidStatus
	}
}

type Booking struct {
	ID          snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ArtistID    int64             `gorm:"not null;index:idx_bookings_artist_date,priority:1" json:"artist_id"`
	StudioID    int64             `gorm:"not null;index:idx_bookings_studio_date,priority:1" json:"studio_id"`
	ServiceID   *int64            `json:"service_id,omitempty"`
	BookingDate time.Time         `gorm:"not null;index:idx_bookings_artist_date,priority:2;index:idx_bookings_studio_date,priority:2" json:"booking_date"`
	BookingTime string            `gorm:"not null;default:''" json:"booking_time"`
	Guests      int               `gorm:"not null;default:1" json:"guests"`
	Status      Status            `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}
