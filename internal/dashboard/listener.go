package dashboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/infra/metrics"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

// Listener keeps the cache in step with external writers. Any change event
// triggers a full reload; nothing is merged incrementally.
type Listener struct {
	table       string
	mask        entity.EventMask
	subscribers []usecase.ChangeSubscriber
	reload      func(ctx context.Context) error
	logger      *zap.Logger

	mu     sync.Mutex
	sub    usecase.Subscription
	mode   string
	cancel context.CancelFunc
}

// NewListener takes subscribers in priority order: the first one that
// subscribes successfully wins.
func NewListener(table string, subscribers []usecase.ChangeSubscriber, reload func(ctx context.Context) error, logger *zap.Logger) *Listener {
	return &Listener{
		table:       table,
		mask:        entity.AllEvents,
		subscribers: subscribers,
		reload:      reload,
		logger:      logger,
	}
}

// Start subscribes to the change feed. It returns false when every
// subscriber failed; the session then runs without live updates.
func (l *Listener) Start(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sub != nil {
		return true
	}

	// Deliveries never take l.mu: Stop waits for them inside Unsubscribe.
	lctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	onEvent := func(ev entity.ChangeEvent) { l.handle(lctx, ev) }

	for _, s := range l.subscribers {
		sub, err := s.Subscribe(ctx, l.table, l.mask, onEvent)
		if err != nil {
			l.logger.Warn("change subscription unavailable",
				zap.String("subscriber", s.Name()), zap.String("table", l.table), zap.Error(err))
			continue
		}
		l.sub = sub
		l.mode = s.Name()
		l.cancel = cancel
		metrics.SetLiveSubscriber(l.mode)
		l.logger.Info("live updates enabled", zap.String("subscriber", l.mode), zap.String("table", l.table))
		return true
	}

	cancel()
	metrics.SetLiveSubscriber("")
	l.logger.Warn("live updates disabled, manual reload only", zap.String("table", l.table))
	return false
}

func (l *Listener) handle(ctx context.Context, ev entity.ChangeEvent) {
	if ev.Table != "" && ev.Table != l.table {
		return
	}
	if !l.mask.Matches(ev.Kind) {
		return
	}
	if ctx.Err() != nil {
		return
	}

	if err := l.reload(ctx); err != nil {
		l.logger.Warn("reload after change event",
			zap.String("kind", string(ev.Kind)), zap.String("id", ev.ID), zap.Error(err))
	}
}

// Live reports whether a subscription is active.
func (l *Listener) Live() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sub != nil
}

// Mode names the active subscriber, or "" when degraded.
func (l *Listener) Mode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Stop releases the subscription at the store. Safe to call more than once.
// Deliveries already running finish; later ones are ignored.
func (l *Listener) Stop() error {
	l.mu.Lock()
	sub, cancel := l.sub, l.cancel
	l.sub, l.cancel, l.mode = nil, nil, ""
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub == nil {
		return nil
	}
	metrics.SetLiveSubscriber("")
	return sub.Unsubscribe()
}
