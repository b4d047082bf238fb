package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/studiobook/internal/config"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultInterval = 5 * time.Minute

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

// Worker refreshes the snapshot from the stats query and pushes it.
type Worker struct {
	stats    gamificationdomain.Service
	pusher   Pusher
	snapshot *Snapshot
	log      *zap.Logger
}

func NewWorker(stats gamificationdomain.Service, pusher Pusher, snapshot *Snapshot, log *zap.Logger) *Worker {
	return &Worker{stats: stats, pusher: pusher, snapshot: snapshot, log: log}
}

// RunOnce performs a single refresh and push.
func (w *Worker) RunOnce(ctx context.Context) error {
	stats, err := w.stats.Stats(ctx)
	if err != nil {
		return err
	}
	w.snapshot.Update(stats)

	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	return w.pusher.Push(pushCtx, w.snapshot.Registry())
}

func (w *Worker) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Warn("metrics push failed", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func startWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, svc gamificationdomain.Service, log *zap.Logger) {
	if pusher == nil {
		return
	}
	log = log.Named("metrics.push")

	interval := time.Duration(cfg.MetricsPush.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}

	snapshot := NewSnapshot(prometheus.Labels{
		"service":     cfg.AppName,
		"environment": cfg.Environment,
	})
	worker := NewWorker(svc, pusher, snapshot, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting metrics push worker", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				worker.loop(ctx, interval)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
