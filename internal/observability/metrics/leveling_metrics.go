package metrics

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/lock"
	"gorm.io/gorm"
)

const (
	EvaluationResultPromoted  = "promoted"
	EvaluationResultUnchanged = "unchanged"
	EvaluationResultFailed    = "failed"
)

const (
	LevelingReasonDeadlineExceeded     = "deadline_exceeded"
	LevelingReasonLockTimeout          = "lock_timeout"
	LevelingReasonDBLockTimeout        = "db_lock_timeout"
	LevelingReasonSerializationFailure = "serialization_failure"
	LevelingReasonUniqueViolation      = "unique_violation"
	LevelingReasonInvalidSubject       = "invalid_subject"
	LevelingReasonDataAccess           = "data_access"
	LevelingReasonUnknown              = "unknown"
)

const (
	TriggerReviewCreated    = "review_created"
	TriggerBookingConfirmed = "booking_confirmed"
	TriggerManual           = "manual"
)

// LevelingMetrics captures leveling engine health signals.
type LevelingMetrics struct {
	evaluations     *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	promotions      *prometheus.CounterVec
	errors          *prometheus.CounterVec
	lockWait        *prometheus.HistogramVec
	triggerFailures *prometheus.CounterVec
}

var (
	levelingMetricsOnce sync.Once
	levelingMetrics     *LevelingMetrics
)

// Leveling returns the singleton leveling metrics registry.
func Leveling() *LevelingMetrics {
	return LevelingWithConfig(Config{})
}

// LevelingWithConfig returns the singleton leveling metrics registry using config labels.
func LevelingWithConfig(cfg Config) *LevelingMetrics {
	levelingMetricsOnce.Do(func() {
		levelingMetrics = newLevelingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return levelingMetrics
}

// ResetLevelingMetricsForTest resets the leveling metrics singleton for tests.
func ResetLevelingMetricsForTest() {
	levelingMetricsOnce = sync.Once{}
	levelingMetrics = nil
}

// NewLevelingMetricsForTest builds an unshared instance bound to registerer.
func NewLevelingMetricsForTest(registerer prometheus.Registerer) *LevelingMetrics {
	return newLevelingMetrics(registerer, Config{ServiceName: "studiobook", Environment: "test"})
}

func newLevelingMetrics(registerer prometheus.Registerer, cfg Config) *LevelingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "studiobook"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "studiobook_leveling_evaluations_total",
		Help:        "Leveling evaluations by subject role and outcome.",
		ConstLabels: constLabels,
	}, []string{"role", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "studiobook_leveling_evaluation_duration_seconds",
		Help:        "Leveling evaluation latency including lock acquisition.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"role"})
	promotions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "studiobook_leveling_promotions_total",
		Help:        "Level promotions by subject role and target level.",
		ConstLabels: constLabels,
	}, []string{"role", "to_level"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "studiobook_leveling_errors_total",
		Help:        "Leveling evaluation errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"role", "reason"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "studiobook_leveling_lock_wait_seconds",
		Help:        "Time spent waiting for the per-subject evaluation lock.",
		Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"role"})
	triggerFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "studiobook_leveling_trigger_failures_total",
		Help:        "Evaluations triggered by bookings or reviews that failed and were skipped.",
		ConstLabels: constLabels,
	}, []string{"trigger", "role"})

	registerer.MustRegister(evaluations, duration, promotions, errs, lockWait, triggerFailures)

	return &LevelingMetrics{
		evaluations:     evaluations,
		duration:        duration,
		promotions:      promotions,
		errors:          errs,
		lockWait:        lockWait,
		triggerFailures: triggerFailures,
	}
}

// ObserveEvaluation records one evaluation outcome and its latency.
func (m *LevelingMetrics) ObserveEvaluation(role, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(role, result).Inc()
	m.duration.WithLabelValues(role).Observe(elapsed.Seconds())
}

func (m *LevelingMetrics) IncPromotion(role string, toLevel int) {
	if m == nil {
		return
	}
	m.promotions.WithLabelValues(role, strconv.Itoa(toLevel)).Inc()
}

// IncError increments the error counter with a classified reason.
func (m *LevelingMetrics) IncError(role string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(role, ClassifyLevelingReason(err)).Inc()
}

func (m *LevelingMetrics) ObserveLockWait(role string, wait time.Duration) {
	if m == nil {
		return
	}
	if wait < 0 {
		wait = 0
	}
	m.lockWait.WithLabelValues(role).Observe(wait.Seconds())
}

func (m *LevelingMetrics) IncTriggerFailure(trigger, role string) {
	if m == nil {
		return
	}
	m.triggerFailures.WithLabelValues(trigger, role).Inc()
}

// ClassifyLevelingReason maps evaluation errors to low-cardinality reasons.
func ClassifyLevelingReason(err error) string {
	switch {
	case err == nil:
		return LevelingReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return LevelingReasonDeadlineExceeded
	case errors.Is(err, lock.ErrLockTimeout):
		return LevelingReasonLockTimeout
	case errors.Is(err, gamificationdomain.ErrInvalidSubjectRole), errors.Is(err, gamificationdomain.ErrInvalidSubjectID):
		return LevelingReasonInvalidSubject
	case hasPGCode(err, "55P03"):
		return LevelingReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return LevelingReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return LevelingReasonUniqueViolation
	case errors.Is(err, gamificationdomain.ErrDataAccess), errors.Is(err, gamificationdomain.ErrRecordMissing):
		return LevelingReasonDataAccess
	default:
		return LevelingReasonUnknown
	}
}

// IsRetryable reports whether an evaluation failure is worth retrying.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, lock.ErrLockTimeout):
		return true
	case hasPGCode(err, "55P03"), hasPGCode(err, "40001"), hasPGCode(err, "40P01"):
		return true
	default:
		return false
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
