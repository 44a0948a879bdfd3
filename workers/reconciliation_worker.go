package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"learning-rewards-service/logger"
	"learning-rewards-service/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Reconciler is the part of the conversion bridge the worker drives.
type Reconciler interface {
	ReconcilePending(ctx context.Context) (services.ReconcileSummary, error)
}

// ReconciliationWorker periodically re-queries mints whose outcome was unknown
// when the conversion request returned.
type ReconciliationWorker struct {
	Reconciler Reconciler
	Clock      clockwork.Clock
	Interval   time.Duration

	scheduler gocron.Scheduler
	stopOnce  sync.Once
	stopErr   error
}

func NewReconciliationWorker(reconciler Reconciler, clock clockwork.Clock, interval time.Duration) *ReconciliationWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReconciliationWorker{Reconciler: reconciler, Clock: clock, Interval: interval}
}

// Start schedules RunOnce every Interval until ctx is done or Stop is called.
func (w *ReconciliationWorker) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithClock(w.Clock))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(w.Interval),
		gocron.NewTask(func() {
			if err := w.RunOnce(ctx); err != nil {
				logger.Error("[Reconciler] pass failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	sched.Start()
	w.scheduler = sched
	logger.Info("[Reconciler] started", zap.Duration("interval", w.Interval))

	go func() {
		<-ctx.Done()
		if err := w.Stop(); err != nil {
			logger.Warn("[Reconciler] shutdown", zap.Error(err))
		}
	}()
	return nil
}

func (w *ReconciliationWorker) Stop() error {
	if w.scheduler == nil {
		return nil
	}
	w.stopOnce.Do(func() { w.stopErr = w.scheduler.Shutdown() })
	return w.stopErr
}

// RunOnce performs a single reconciliation pass.
func (w *ReconciliationWorker) RunOnce(ctx context.Context) error {
	summary, err := w.Reconciler.ReconcilePending(ctx)
	if err != nil {
		return err
	}
	if summary.Checked > 0 {
		logger.Info("[Reconciler] pass complete",
			zap.Int("checked", summary.Checked),
			zap.Int("settled", summary.Settled),
			zap.Int("failed", summary.Failed),
			zap.Int("pending", summary.Pending),
			zap.Int("escalated", summary.Escalated),
		)
	}
	return nil
}
