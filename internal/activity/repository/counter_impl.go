package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/studiobook/internal/activity/domain"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"gorm.io/gorm"
)

type counter struct{}

func Provide() domain.Counter {
	return &counter{}
}

func (c *counter) CountBookings(ctx context.Context, db *gorm.DB, subject gamificationdomain.Subject, since time.Time) (int64, error) {
	column, err := subjectColumn(subject.Role)
	if err != nil {
		return 0, err
	}
	var total int64
	err = db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT COUNT(*) FROM bookings WHERE %s = ? AND booking_date >= ?`, column),
		subject.ID,
		since,
	).Scan(&total).Error
	return total, err
}

func (c *counter) CountReviews(ctx context.Context, db *gorm.DB, subject gamificationdomain.Subject, since time.Time) (int64, error) {
	column, err := subjectColumn(subject.Role)
	if err != nil {
		return 0, err
	}
	var total int64
	err = db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT COUNT(*) FROM reviews WHERE %s = ? AND review_date >= ?`, column),
		subject.ID,
		since,
	).Scan(&total).Error
	return total, err
}

func subjectColumn(role gamificationdomain.SubjectRole) (string, error) {
	switch role {
	case gamificationdomain.SubjectRoleArtist:
		return "artist_id", nil
	case gamificationdomain.SubjectRoleStudio:
		return "studio_id", nil
	default:
		return "", gamificationdomain.ErrInvalidSubjectRole
	}
}
