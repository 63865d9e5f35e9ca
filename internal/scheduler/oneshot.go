package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sudhan/stockpicks/pkg/logger"
)

// OneShotFinalizer triggers a single finalize pass after a delay. Each
// dispatched run plans one; a later plan supersedes an earlier pending
// one so overlapping runs finalize once, after the latest estimate.
type OneShotFinalizer struct {
	finalizer Finalizer
	logger    *logger.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewOneShotFinalizer creates a delayed finalize trigger
func NewOneShotFinalizer(finalizer Finalizer, log *logger.Logger) *OneShotFinalizer {
	return &OneShotFinalizer{
		finalizer: finalizer,
		logger:    log.WithField("module", "scheduler"),
	}
}

// PlanFinalize arranges a finalize pass after the delay, replacing any
// pending one
func (o *OneShotFinalizer) PlanFinalize(delay time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timer != nil {
		o.timer.Stop()
	}

	o.logger.WithField("delay", delay).Info("Finalize planned")
	o.timer = time.AfterFunc(delay, func() {
		if _, err := o.finalizer.Finalize(context.Background()); err != nil {
			o.logger.WithError(err).Error("Planned finalize failed")
		}
	})
}

// Cancel stops any pending finalize. For shutdown.
func (o *OneShotFinalizer) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}
