package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-sync/internal/coordinator"
)

// RefreshWorker periodically refreshes the dashboard slice and stats
// aggregate. Failures are logged and the next tick tries again; the
// worker itself never retries within a tick.
type RefreshWorker struct {
	coordinator *coordinator.Coordinator
	interval    time.Duration
	pageLimit   int
	logger      *zap.Logger
}

// NewRefreshWorker constructs the worker.
func NewRefreshWorker(c *coordinator.Coordinator, interval time.Duration, pageLimit int, logger *zap.Logger) *RefreshWorker {
	return &RefreshWorker{
		coordinator: c,
		interval:    interval,
		pageLimit:   pageLimit,
		logger:      logger,
	}
}

// Run refreshes until the context is cancelled. The dashboard and stats
// fetches own disjoint store slices, so they run concurrently.
func (w *RefreshWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("refresh worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.coordinator.RefreshStats(ctx); err != nil {
			w.logger.Warn("stats refresh failed", zap.Error(err))
		}
	}()

	if err := w.coordinator.RefreshDashboard(ctx, 1, w.pageLimit); err != nil {
		w.logger.Warn("dashboard refresh failed", zap.Error(err))
	}
	<-done
}
