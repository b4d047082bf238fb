package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Review struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ArtistID   int64        `gorm:"not null;index:idx_reviews_artist_date,priority:1" json:"artist_id"`
	StudioID   int64        `gorm:"not null;index:idx_reviews_studio_date,priority:1" json:"studio_id"`
	Rating     int          `gorm:"not null" json:"rating"`
	Comment    string       `gorm:"not null;default:''" json:"comment"`
	ReviewDate time.Time    `gorm:"not null;index:idx_reviews_artist_date,priority:2;index:idx_reviews_studio_date,priority:2" json:"review_date"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}
