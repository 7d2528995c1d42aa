// Package realtime subscribes to the postgres change feed installed by the
// hospitals migration (LISTEN/NOTIFY on "<table>_changes").
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

// PGSubscriber opens one pq.Listener per subscription.
type PGSubscriber struct {
	ConnString   string
	MinReconnect time.Duration
	MaxReconnect time.Duration
	PingInterval time.Duration
	Logger       *zap.Logger
}

func NewPGSubscriber(connString string, logger *zap.Logger) *PGSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGSubscriber{
		ConnString:   connString,
		MinReconnect: 2 * time.Second,
		MaxReconnect: time.Minute,
		PingInterval: 90 * time.Second,
		Logger:       logger,
	}
}

func (s *PGSubscriber) Name() string { return "postgres" }

func ChannelFor(table string) string { return table + "_changes" }

func (s *PGSubscriber) Subscribe(ctx context.Context, table string, mask entity.EventMask, onEvent func(entity.ChangeEvent)) (usecase.Subscription, error) {
	if s.ConnString == "" {
		return nil, fmt.Errorf("postgres listener: no connection string")
	}
	// pq.Listener connects in the background; probe first so an unreachable
	// database fails the subscription instead of retrying silently.
	if err := s.probe(ctx); err != nil {
		return nil, err
	}

	listener := pq.NewListener(s.ConnString, s.MinReconnect, s.MaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			s.Logger.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	channel := ChannelFor(table)
	if err := listener.Listen(channel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}

	sub := &pgSubscription{listener: listener, done: make(chan struct{})}
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		s.loop(sub, table, mask, onEvent)
	}()
	return sub, nil
}

func (s *PGSubscriber) probe(ctx context.Context) error {
	connector, err := pq.NewConnector(s.ConnString)
	if err != nil {
		return fmt.Errorf("postgres listener: %w", err)
	}
	conn, err := connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("postgres listener: %w", err)
	}
	return conn.Close()
}

func (s *PGSubscriber) loop(sub *pgSubscription, table string, mask entity.EventMask, onEvent func(entity.ChangeEvent)) {
	ping := time.NewTicker(s.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-sub.done:
			return
		case n, ok := <-sub.listener.Notify:
			if !ok {
				return
			}
			ev, err := ParseNotification(n, table)
			if err != nil {
				s.Logger.Warn("drop change notification", zap.Error(err))
				continue
			}
			if mask.Matches(ev.Kind) {
				onEvent(ev)
			}
		case <-ping.C:
			_ = sub.listener.Ping()
		}
	}
}

// ParseNotification decodes a trigger payload. A nil notification is what pq
// delivers after a reconnect, when events may have been missed.
func ParseNotification(n *pq.Notification, table string) (entity.ChangeEvent, error) {
	if n == nil {
		return entity.ChangeEvent{Table: table, Kind: entity.ChangeResync}, nil
	}
	var ev entity.ChangeEvent
	if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
		return entity.ChangeEvent{}, fmt.Errorf("decode %s payload: %w", n.Channel, err)
	}
	if ev.Table == "" {
		ev.Table = table
	}
	return ev, nil
}

type pgSubscription struct {
	listener *pq.Listener
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func (s *pgSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		err = s.listener.Close()
	})
	return err
}
