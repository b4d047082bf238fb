package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/lock"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifyLevelingReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: LevelingReasonDeadlineExceeded},
		{name: "lock_timeout", err: fmt.Errorf("acquire: %w", lock.ErrLockTimeout), want: LevelingReasonLockTimeout},
		{name: "invalid_role", err: gamificationdomain.ErrInvalidSubjectRole, want: LevelingReasonInvalidSubject},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: LevelingReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: LevelingReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: LevelingReasonUniqueViolation},
		{name: "data_access", err: fmt.Errorf("count: %w", gamificationdomain.ErrDataAccess), want: LevelingReasonDataAccess},
		{name: "unknown", err: errors.New("boom"), want: LevelingReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyLevelingReason(tc.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(lock.ErrLockTimeout))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.False(t, IsRetryable(gamificationdomain.ErrInvalidSubjectRole))
	assert.False(t, IsRetryable(nil))
}

func TestLevelingMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewLevelingMetricsForTest(registry)

	m.ObserveEvaluation("studio", EvaluationResultPromoted, 20*time.Millisecond)
	m.ObserveEvaluation("studio", EvaluationResultUnchanged, 5*time.Millisecond)
	m.IncPromotion("studio", 3)
	m.IncError("artist", lock.ErrLockTimeout)
	m.IncTriggerFailure(TriggerReviewCreated, "artist")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.evaluations.WithLabelValues("studio", EvaluationResultPromoted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promotions.WithLabelValues("studio", "3")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues("artist", LevelingReasonLockTimeout)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.triggerFailures.WithLabelValues(TriggerReviewCreated, "artist")))
}

func TestNilLevelingMetricsIsSafe(t *testing.T) {
	var m *LevelingMetrics
	assert.NotPanics(t, func() {
		m.ObserveEvaluation("artist", EvaluationResultFailed, time.Second)
		m.IncPromotion("artist", 2)
		m.IncError("artist", errors.New("boom"))
		m.ObserveLockWait("artist", time.Millisecond)
	})
}
