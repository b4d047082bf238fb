package service

import (
	"context"

	"github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/observability/logger"
	"github.com/smallbiznis/studiobook/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type TriggerParams struct {
	fx.In

	Service domain.Service
	Log     *zap.Logger
	Metrics *metrics.LevelingMetrics `optional:"true"`
}

type trigger struct {
	svc     domain.Service
	log     *zap.Logger
	metrics *metrics.LevelingMetrics
}

func NewTrigger(p TriggerParams) domain.Trigger {
	return &trigger{
		svc:     p.Service,
		log:     p.Log.Named("gamification.trigger"),
		metrics: p.Metrics,
	}
}

// Fire evaluates each subject in order. A failure for one subject does not stop the others.
func (t *trigger) Fire(ctx context.Context, source string, subjects ...domain.Subject) {
	for _, subject := range subjects {
		_, err := t.svc.Evaluate(ctx, domain.EvaluateRequest{
			SubjectID:   subject.ID,
			SubjectRole: subject.Role,
		})
		if err == nil {
			continue
		}

		t.metrics.IncTriggerFailure(source, string(subject.Role))
		log := logger.WithContext(ctx, t.log).With(
			zap.String("trigger", source),
			zap.String("subject", subject.String()),
		)
		if IsValidation(err) {
			log.Info("leveling skipped for invalid subject", zap.Error(err))
			continue
		}
		log.Error("leveling evaluation failed after commit", zap.Error(err))
	}
}
