package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reloader is the part of the view session the worker drives.
type Reloader interface {
	Reload(ctx context.Context) error
	LiveMode() string
}

// ResyncWorker reloads the cache on a fixed interval while live updates are
// unavailable. With live updates active a tick does nothing.
type ResyncWorker struct {
	target       Reloader
	tickInterval time.Duration
	logger       *zap.Logger
}

func NewResyncWorker(target Reloader, interval time.Duration, logger *zap.Logger) *ResyncWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResyncWorker{target: target, tickInterval: interval, logger: logger}
}

// Start blocks until ctx is done. A zero interval disables the worker.
func (w *ResyncWorker) Start(ctx context.Context) {
	if w.tickInterval <= 0 {
		w.logger.Info("resync worker disabled")
		return
	}
	w.logger.Info("resync worker started", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("resync worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ResyncWorker) tick(ctx context.Context) {
	if mode := w.target.LiveMode(); mode != "" {
		return
	}
	if err := w.target.Reload(ctx); err != nil {
		w.logger.Warn("periodic resync failed", zap.Error(err))
		return
	}
	w.logger.Debug("periodic resync done")
}
