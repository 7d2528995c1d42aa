package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

// PublishingStore announces every successful write on the change fanout.
// Publishing is best-effort: a failed publish is logged and the write still
// succeeds.
type PublishingStore struct {
	usecase.HospitalStore
	Producer ChangeProducer
	Table    string
	Timeout  time.Duration
	Logger   *zap.Logger
}

func NewPublishingStore(store usecase.HospitalStore, producer ChangeProducer, table string, logger *zap.Logger) *PublishingStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishingStore{
		HospitalStore: store,
		Producer:      producer,
		Table:         table,
		Timeout:       2 * time.Second,
		Logger:        logger,
	}
}

func (s *PublishingStore) Update(ctx context.Context, patch entity.Patch, ids []string) ([]entity.Hospital, error) {
	rows, err := s.HospitalStore.Update(ctx, patch, ids)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, entity.ChangeUpdate, rows)
	return rows, nil
}

func (s *PublishingStore) Insert(ctx context.Context, records []entity.NewHospital) ([]entity.Hospital, error) {
	rows, err := s.HospitalStore.Insert(ctx, records)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, entity.ChangeInsert, rows)
	return rows, nil
}

func (s *PublishingStore) publish(ctx context.Context, kind entity.ChangeKind, rows []entity.Hospital) {
	if s.Producer == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
	defer cancel()

	for _, h := range rows {
		ev := entity.ChangeEvent{Table: s.Table, Kind: kind, ID: h.ID}
		if err := s.Producer.PublishChange(pctx, ev); err != nil {
			s.Logger.Warn("publish change event", zap.String("id", h.ID), zap.String("kind", string(kind)), zap.Error(err))
		}
	}
}
