package domain

import (
	"context"
	"errors"
	"time"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 2000
)

type CreateReviewRequest struct {
	ArtistID   int64      `json:"artist_id"`
	StudioID   int64      `json:"studio_id"`
	Rating     int        `json:"rating"`
	Comment    string     `json:"comment"`
	ReviewDate *time.Time `json:"review_date"`
}

type Service interface {
	Create(context.Context, CreateReviewRequest) (Review, error)
}

var (
	ErrInvalidArtist  = errors.New("invalid_artist")
	ErrInvalidStudio  = errors.New("invalid_studio")
	ErrInvalidRating  = errors.New("invalid_rating")
	ErrInvalidComment = errors.New("invalid_comment")
)
