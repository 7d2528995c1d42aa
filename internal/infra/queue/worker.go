package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

// Subscriber consumes the change fanout. Each subscription gets its own
// exclusive auto-delete queue, so every session sees every event.
type Subscriber struct {
	Conn   *amqp.Connection
	Logger *zap.Logger
}

func NewSubscriber(conn *amqp.Connection, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{Conn: conn, Logger: logger}
}

func (s *Subscriber) Name() string { return "rabbitmq" }

func (s *Subscriber) Subscribe(ctx context.Context, table string, mask entity.EventMask, onEvent func(entity.ChangeEvent)) (usecase.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Conn == nil || s.Conn.IsClosed() {
		return nil, errors.New("rabbitmq: not connected")
	}

	ch, err := s.Conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare subscriber queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", ExchangeName, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind %s: %w", q.Name, err)
	}

	tag := "hospitals-" + uuid.NewString()
	msgs, err := ch.Consume(q.Name, tag, true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume %s: %w", q.Name, err)
	}

	sub := &amqpSubscription{ch: ch, tag: tag, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for d := range msgs {
			ev, err := DecodeChange(d.Body, table)
			if err != nil {
				s.Logger.Warn("drop change message", zap.Error(err))
				continue
			}
			if ev.Table != table || !mask.Matches(ev.Kind) {
				continue
			}
			onEvent(ev)
		}
		if !sub.cancelled() {
			s.Logger.Warn("change feed closed", zap.String("queue", q.Name))
		}
	}()
	return sub, nil
}

// DecodeChange parses a fanout message; a missing table means table.
func DecodeChange(body []byte, table string) (entity.ChangeEvent, error) {
	var ev entity.ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return entity.ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.Table == "" {
		ev.Table = table
	}
	return ev, nil
}

type amqpSubscription struct {
	ch   *amqp.Channel
	tag  string
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func (s *amqpSubscription) cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *amqpSubscription) Unsubscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.ch.Cancel(s.tag, false)
	<-s.done
	if cerr := s.ch.Close(); err == nil {
		err = cerr
	}
	return err
}
