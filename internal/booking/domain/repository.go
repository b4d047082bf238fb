package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/studiobook/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, updatedAt time.Time) error
	List(ctx context.Context, db *gorm.DB, filter ListBookingFilter, page pagination.Pagination) ([]*Booking, error)
}
