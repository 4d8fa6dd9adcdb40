package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/engage/internal/engagement"
	"github.com/MrSnakeDoc/engage/internal/logger"
)

// Reconciler runs one counter reconciliation pass
type Reconciler interface {
	Reconcile(ctx context.Context) (engagement.ReconcileReport, error)
}

// ReconcileJob runs reconciliation on start, on a fixed interval and on
// manual trigger. Passes never overlap: they all run on one goroutine.
type ReconcileJob struct {
	reconciler    Reconciler
	logger        logger.Logger
	interval      time.Duration
	manualTrigger <-chan struct{}
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewReconcileJob creates a new reconcile job. An interval of zero disables
// the periodic run; manual triggers still work.
func NewReconcileJob(
	r Reconciler,
	log logger.Logger,
	interval time.Duration,
	manualTrigger <-chan struct{},
) *ReconcileJob {
	return &ReconcileJob{
		reconciler:    r,
		logger:        log,
		interval:      interval,
		manualTrigger: manualTrigger,
		stopCh:        make(chan struct{}),
	}
}

// Start runs an initial pass and then starts the background loop
func (j *ReconcileJob) Start(ctx context.Context) error {
	// Run immediately on start
	j.run(ctx, "startup")

	var tick <-chan time.Time
	var ticker *time.Ticker
	if j.interval > 0 {
		ticker = time.NewTicker(j.interval)
		tick = ticker.C
	}

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-tick:
				j.run(ctx, "interval")
			case <-j.manualTrigger:
				j.logger.Info("manual reconciliation triggered")
				j.run(ctx, "manual")
			case <-j.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the loop and waits for a running pass to finish
func (j *ReconcileJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	j.wg.Wait()
}

func (j *ReconcileJob) run(ctx context.Context, reason string) {
	report, err := j.reconciler.Reconcile(ctx)
	if err != nil {
		j.logger.Error("reconciliation failed",
			logger.String("reason", reason),
			logger.Error(err))
		return
	}
	if report.Corrected() == 0 {
		j.logger.Debug("no counter drift", logger.String("reason", reason))
	}
}
