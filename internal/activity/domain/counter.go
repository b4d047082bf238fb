package domain

import (
	"context"
	"time"

	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"gorm.io/gorm"
)

//go:generate mockgen -destination=../mock/counter.go -package=mock . Counter

// Counter counts a subject's activity on or after since. Artists are matched on
// artist_id and studios on studio_id in both bookings and reviews.
type Counter interface {
	CountBookings(ctx context.Context, db *gorm.DB, subject gamificationdomain.Subject, since time.Time) (int64, error)
	CountReviews(ctx context.Context, db *gorm.DB, subject gamificationdomain.Subject, since time.Time) (int64, error)
}
