package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) PublishChange(ctx context.Context, ev entity.ChangeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Select(ctx context.Context, q entity.Query) (entity.Snapshot, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(entity.Snapshot), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, patch entity.Patch, ids []string) ([]entity.Hospital, error) {
	args := m.Called(ctx, patch, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Hospital), args.Error(1)
}

func (m *MockStore) Insert(ctx context.Context, records []entity.NewHospital) ([]entity.Hospital, error) {
	args := m.Called(ctx, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Hospital), args.Error(1)
}

func (m *MockStore) InsertColdEmail(ctx context.Context, audit entity.ColdEmail) error {
	return m.Called(ctx, audit).Error(0)
}

func TestPublishChange(t *testing.T) {
	pub := new(MockPublisher)
	ev := entity.ChangeEvent{Table: "hospitals", Kind: entity.ChangeUpdate, ID: "h1"}

	pub.On("PublishWithContext", mock.Anything, ExchangeName, RoutingKey, false, false,
		mock.MatchedBy(func(msg amqp.Publishing) bool {
			var got entity.ChangeEvent
			return json.Unmarshal(msg.Body, &got) == nil && got == ev && msg.ContentType == "application/json"
		})).Return(nil).Once()

	require.NoError(t, NewProducer(pub).PublishChange(context.Background(), ev))
	pub.AssertExpectations(t)
}

func TestPublishChange_Error(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything, false, false, mock.Anything).
		Return(errors.New("channel closed"))

	err := NewProducer(pub).PublishChange(context.Background(), entity.ChangeEvent{Kind: entity.ChangeInsert})
	assert.ErrorContains(t, err, "channel closed")
}

func TestPublishingStore_PublishesAfterUpdate(t *testing.T) {
	store := new(MockStore)
	producer := new(MockProducer)
	status := entity.StatusWon
	patch := entity.Patch{Status: &status}

	store.On("Update", mock.Anything, patch, []string{"h1", "h2"}).
		Return([]entity.Hospital{{ID: "h1"}, {ID: "h2"}}, nil)
	producer.On("PublishChange", mock.Anything, entity.ChangeEvent{Table: "hospitals", Kind: entity.ChangeUpdate, ID: "h1"}).Return(nil).Once()
	producer.On("PublishChange", mock.Anything, entity.ChangeEvent{Table: "hospitals", Kind: entity.ChangeUpdate, ID: "h2"}).Return(errors.New("down")).Once()

	ps := NewPublishingStore(store, producer, "hospitals", nil)
	rows, err := ps.Update(context.Background(), patch, []string{"h1", "h2"})

	require.NoError(t, err)
	assert.Len(t, rows, 2)
	producer.AssertExpectations(t)
}

func TestPublishingStore_NoPublishOnFailure(t *testing.T) {
	store := new(MockStore)
	producer := new(MockProducer)

	store.On("Insert", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	ps := NewPublishingStore(store, producer, "hospitals", nil)
	_, err := ps.Insert(context.Background(), []entity.NewHospital{{Name: "A"}})

	assert.Error(t, err)
	producer.AssertNotCalled(t, "PublishChange", mock.Anything, mock.Anything)
}

func TestDecodeChange(t *testing.T) {
	ev, err := DecodeChange([]byte(`{"type":"DELETE","id":"x"}`), "hospitals")
	require.NoError(t, err)
	assert.Equal(t, entity.ChangeEvent{Table: "hospitals", Kind: entity.ChangeDelete, ID: "x"}, ev)

	_, err = DecodeChange([]byte("{"), "hospitals")
	assert.Error(t, err)
}

func TestSubscribeWithoutConnection(t *testing.T) {
	_, err := NewSubscriber(nil, nil).Subscribe(context.Background(), "hospitals", entity.AllEvents, func(entity.ChangeEvent) {})
	assert.Error(t, err)
}
