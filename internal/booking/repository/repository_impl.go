package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/studiobook/internal/booking/domain"
	"github.com/smallbiznis/studiobook/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bookings (id, artist_id, studio_id, service_id, booking_date, booking_time, guests, status, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.ArtistID,
		booking.StudioID,
		booking.ServiceID,
		booking.BookingDate,
		booking.BookingTime,
		booking.Guests,
		booking.Status,
		booking.Metadata,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var bookings []domain.Booking
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", id).
		Limit(1).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return nil, nil
	}
	return &bookings[0], nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		updatedAt,
		id,
	).Error
}

// List returns up to PageSize+1 bookings ordered by descending id so the caller can detect a next page.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListBookingFilter, page pagination.Pagination) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	stmt := db.WithContext(ctx).Model(&domain.Booking{})
	if filter.ArtistID != 0 {
		stmt = stmt.Where("artist_id = ?", filter.ArtistID)
	}
	if filter.StudioID != 0 {
		stmt = stmt.Where("studio_id = ?", filter.StudioID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	err := stmt.
		Order("id desc").
		Limit(page.PageSize + 1).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
