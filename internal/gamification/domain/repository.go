package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// FindBySubject returns nil when no record exists. forUpdate takes a row lock
	// on dialects that support it and must run inside a transaction.
	FindBySubject(ctx context.Context, db *gorm.DB, subject Subject, forUpdate bool) (*GamificationRecord, error)
	// Insert creates the record unless one already exists for the subject.
	Insert(ctx context.Context, db *gorm.DB, record *GamificationRecord) error
	UpdateProgress(ctx context.Context, db *gorm.DB, subject Subject, update ProgressUpdate) error
	RoleStats(ctx context.Context, db *gorm.DB) ([]RoleStats, error)
	LevelHistogram(ctx context.Context, db *gorm.DB) ([]LevelCount, error)
	Top(ctx context.Context, db *gorm.DB, limit int) ([]GamificationRecord, error)
}
