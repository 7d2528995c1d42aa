package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/infra/metrics"
)

// BestEffortFunc is a side effect whose failure is never surfaced or retried.
type BestEffortFunc func(ctx context.Context) error

// BestEffortRunner runs best-effort side effects. It has no error channel:
// callers cannot observe the outcome.
type BestEffortRunner interface {
	Run(name string, fn BestEffortFunc)
}

// AsyncRunner runs each side effect on its own goroutine with a fresh deadline,
// detached from the request that triggered it.
type AsyncRunner struct {
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncRunner(logger *zap.Logger, timeout time.Duration) *AsyncRunner {
	return &AsyncRunner{logger: logger, timeout: timeout}
}

func (r *AsyncRunner) Run(name string, fn BestEffortFunc) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		drop(r.logger, name, fn(ctx))
	}()
}

// Wait blocks until every started side effect returned.
func (r *AsyncRunner) Wait() {
	r.wg.Wait()
}

// InlineRunner runs side effects on the caller's goroutine. Used by the CLI.
type InlineRunner struct {
	Logger  *zap.Logger
	Timeout time.Duration
}

func (r InlineRunner) Run(name string, fn BestEffortFunc) {
	ctx := context.Background()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	drop(r.Logger, name, fn(ctx))
}

func drop(logger *zap.Logger, name string, err error) {
	if err == nil {
		return
	}
	metrics.RecordBestEffortDropped(name)
	if logger != nil {
		logger.Debug("best-effort operation failed", zap.String("operation", name), zap.Error(err))
	}
}
