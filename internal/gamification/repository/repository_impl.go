package repository

import (
	"context"

	"github.com/smallbiznis/studiobook/internal/gamification/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindBySubject(ctx context.Context, db *gorm.DB, subject domain.Subject, forUpdate bool) (*domain.GamificationRecord, error) {
	var records []domain.GamificationRecord
	stmt := db.WithContext(ctx).
		Model(&domain.GamificationRecord{}).
		Where("subject_id = ? AND subject_role = ?", subject.ID, subject.Role).
		Limit(1)
	if forUpdate && supportsRowLocks(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	if err := stmt.Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.GamificationRecord) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}, {Name: "subject_role"}},
			DoNothing: true,
		}).
		Create(record).Error
}

func (r *repo) UpdateProgress(ctx context.Context, db *gorm.DB, subject domain.Subject, update domain.ProgressUpdate) error {
	values := map[string]any{
		"last_review_count": update.LastReviewCount,
		"updated_at":        update.UpdatedAt,
	}
	if update.Level != nil {
		values["level"] = *update.Level
	}
	if update.LevelUpAt != nil {
		values["last_level_up_at"] = *update.LevelUpAt
	}

	res := db.WithContext(ctx).
		Model(&domain.GamificationRecord{}).
		Where("subject_id = ? AND subject_role = ?", subject.ID, subject.Role).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// MySQL reports matched-but-unchanged rows as unaffected.
	var matched int64
	if err := db.WithContext(ctx).
		Model(&domain.GamificationRecord{}).
		Where("subject_id = ? AND subject_role = ?", subject.ID, subject.Role).
		Count(&matched).Error; err != nil {
		return err
	}
	if matched == 0 {
		return domain.ErrRecordMissing
	}
	return nil
}

func (r *repo) RoleStats(ctx context.Context, db *gorm.DB) ([]domain.RoleStats, error) {
	var stats []domain.RoleStats
	err := db.WithContext(ctx).Raw(
		`SELECT subject_role, COUNT(*) AS subjects, MAX(level) AS max_level, AVG(level) AS average_level
		 FROM gamification_records
		 GROUP BY subject_role
		 ORDER BY subject_role`,
	).Scan(&stats).Error
	return stats, err
}

func (r *repo) LevelHistogram(ctx context.Context, db *gorm.DB) ([]domain.LevelCount, error) {
	var counts []domain.LevelCount
	err := db.WithContext(ctx).Raw(
		`SELECT subject_role, level, COUNT(*) AS subjects
		 FROM gamification_records
		 GROUP BY subject_role, level
		 ORDER BY subject_role, level`,
	).Scan(&counts).Error
	return counts, err
}

func (r *repo) Top(ctx context.Context, db *gorm.DB, limit int) ([]domain.GamificationRecord, error) {
	var records []domain.GamificationRecord
	err := db.WithContext(ctx).
		Model(&domain.GamificationRecord{}).
		Order("level desc, id asc").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// SQLite serializes writers per transaction and rejects FOR UPDATE.
func supportsRowLocks(db *gorm.DB) bool {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return true
	default:
		return false
	}
}
