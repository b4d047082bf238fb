package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubService struct {
	domain.Service
	calls []domain.EvaluateRequest
	fail  map[domain.SubjectRole]error
}

func (s *stubService) Evaluate(_ context.Context, req domain.EvaluateRequest) (domain.EvaluateResult, error) {
	s.calls = append(s.calls, req)
	if err := s.fail[req.SubjectRole]; err != nil {
		return domain.EvaluateResult{}, err
	}
	return domain.EvaluateResult{SubjectID: req.SubjectID, SubjectRole: req.SubjectRole, Level: 1}, nil
}

func TestTriggerEvaluatesEverySubject(t *testing.T) {
	stub := &stubService{}
	reg := prometheus.NewRegistry()
	trig := NewTrigger(TriggerParams{
		Service: stub,
		Log:     zap.NewNop(),
		Metrics: metrics.NewLevelingMetricsForTest(reg),
	})

	trig.Fire(context.Background(), metrics.TriggerReviewCreated,
		domain.Subject{ID: 1, Role: domain.SubjectRoleArtist},
		domain.Subject{ID: 2, Role: domain.SubjectRoleStudio},
	)

	require.Len(t, stub.calls, 2)
	assert.Equal(t, int64(1), stub.calls[0].SubjectID)
	assert.Equal(t, domain.SubjectRoleStudio, stub.calls[1].SubjectRole)

	count, err := testutil.GatherAndCount(reg, "studiobook_leveling_trigger_failures_total")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTriggerSwallowsFailures(t *testing.T) {
	stub := &stubService{fail: map[domain.SubjectRole]error{
		domain.SubjectRoleArtist: errors.Join(domain.ErrDataAccess, errors.New("db down")),
	}}
	reg := prometheus.NewRegistry()
	trig := NewTrigger(TriggerParams{
		Service: stub,
		Log:     zap.NewNop(),
		Metrics: metrics.NewLevelingMetricsForTest(reg),
	})

	assert.NotPanics(t, func() {
		trig.Fire(context.Background(), metrics.TriggerBookingConfirmed,
			domain.Subject{ID: 1, Role: domain.SubjectRoleArtist},
			domain.Subject{ID: 2, Role: domain.SubjectRoleStudio},
		)
	})

	// the studio is still evaluated after the artist fails
	require.Len(t, stub.calls, 2)

	count, err := testutil.GatherAndCount(reg, "studiobook_leveling_trigger_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTriggerWithoutMetrics(t *testing.T) {
	stub := &stubService{fail: map[domain.SubjectRole]error{
		domain.SubjectRoleStudio: domain.ErrInvalidSubjectID,
	}}
	trig := NewTrigger(TriggerParams{Service: stub, Log: zap.NewNop()})

	trig.Fire(context.Background(), metrics.TriggerManual, domain.Subject{ID: 0, Role: domain.SubjectRoleStudio})
	assert.Len(t, stub.calls, 1)
}
