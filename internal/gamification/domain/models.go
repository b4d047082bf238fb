package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubjectRole string

const (
	SubjectRoleArtist SubjectRole = "artist"
	SubjectRoleStudio SubjectRole = "studio"
)

// ParseSubjectRole accepts the role case-insensitively and rejects anything else.
func ParseSubjectRole(value string) (SubjectRole, error) {
	switch SubjectRole(strings.ToLower(strings.TrimSpace(value))) {
	case SubjectRoleArtist:
		return SubjectRoleArtist, nil
	case SubjectRoleStudio:
		return SubjectRoleStudio, nil
	default:
		return "", ErrInvalidSubjectRole
	}
}

func (r SubjectRole) Valid() bool {
	return r == SubjectRoleArtist || r == SubjectRoleStudio
}

// Subject identifies an artist or a studio.
type Subject struct {
	ID   int64
	Role SubjectRole
}

func (s Subject) Validate() error {
	if !s.Role.Valid() {
		return ErrInvalidSubjectRole
	}
	if s.ID <= 0 {
		return ErrInvalidSubjectID
	}
	return nil
}

func (s Subject) String() string {
	return string(s.Role) + ":" + formatInt(s.ID)
}

// GamificationRecord is the persisted progression of one subject.
type GamificationRecord struct {
	ID              snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	SubjectID       int64        `gorm:"not null;uniqueIndex:ux_gamification_records_subject,priority:1" json:"subject_id"`
	SubjectRole     SubjectRole  `gorm:"type:varchar(16);not null;uniqueIndex:ux_gamification_records_subject,priority:2" json:"subject_role"`
	Level           int          `gorm:"not null;default:1" json:"level"`
	LastReviewCount *int64       `json:"last_review_count"`
	LastLevelUpAt   *time.Time   `json:"last_level_up_at,omitempty"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

func (GamificationRecord) TableName() string {
	return "gamification_records"
}

// ProgressUpdate is the write applied at the end of an evaluation.
// Level and LevelUpAt are set only on promotion.
type ProgressUpdate struct {
	LastReviewCount int64
	Level           *int
	LevelUpAt       *time.Time
	UpdatedAt       time.Time
}
