package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/studiobook/internal/lock"
)

type EvaluateRequest struct {
	SubjectID   int64
	SubjectRole SubjectRole
}

type EvaluateResult struct {
	SubjectID        int64       `json:"subject_id"`
	SubjectRole      SubjectRole `json:"subject_role"`
	PreviousLevel    int         `json:"previous_level"`
	Level            int         `json:"level"`
	Promoted         bool        `json:"promoted"`
	Reason           string      `json:"reason"`
	TotalBookings    int64       `json:"total_bookings"`
	TotalReviews     int64       `json:"total_reviews"`
	GrowthPercentage *float64    `json:"growth_percentage,omitempty"`
	RequiredGrowth   float64     `json:"required_growth"`
	EvaluatedAt      time.Time   `json:"evaluated_at"`
}

type GetRequest struct {
	SubjectID   int64
	SubjectRole SubjectRole
}

type RequirementsResponse struct {
	WindowMonths            int           `json:"window_months"`
	MaxLevel                int           `json:"max_level"`
	EnforceReviewPercentage bool          `json:"enforce_review_percentage"`
	Levels                  []Requirement `json:"levels"`
}

type RoleStats struct {
	SubjectRole  SubjectRole `json:"subject_role"`
	Subjects     int64       `json:"subjects"`
	MaxLevel     int         `json:"max_level"`
	AverageLevel float64     `json:"average_level"`
}

type LevelCount struct {
	SubjectRole SubjectRole `json:"subject_role"`
	Level       int         `json:"level"`
	Subjects    int64       `json:"subjects"`
}

type StatsResponse struct {
	Roles     []RoleStats          `json:"roles"`
	Histogram []LevelCount         `json:"histogram"`
	Top       []GamificationRecord `json:"top"`
}

type Service interface {
	Evaluate(context.Context, EvaluateRequest) (EvaluateResult, error)
	Get(context.Context, GetRequest) (GamificationRecord, error)
	Requirements(context.Context) (RequirementsResponse, error)
	Stats(context.Context) (StatsResponse, error)
}

// Trigger re-evaluates subjects after another workflow committed. It never fails
// the caller; failures are logged and counted.
type Trigger interface {
	Fire(ctx context.Context, source string, subjects ...Subject)
}

var (
	ErrInvalidSubjectRole = errors.New("invalid_subject_role")
	ErrInvalidSubjectID   = errors.New("invalid_subject_id")
	ErrDataAccess         = errors.New("data_access")
	ErrRecordMissing      = errors.New("record_missing")
	ErrNotFound           = errors.New("not_found")
	ErrLockTimeout        = lock.ErrLockTimeout
)
