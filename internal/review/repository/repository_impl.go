package repository

import (
	"context"

	"github.com/smallbiznis/studiobook/internal/review/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, review *domain.Review) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reviews (id, artist_id, studio_id, rating, comment, review_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ID,
		review.ArtistID,
		review.StudioID,
		review.Rating,
		review.Comment,
		review.ReviewDate,
		review.CreatedAt,
	).Error
}
