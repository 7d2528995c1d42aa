package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

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

type recordingNotifier struct {
	mu    sync.Mutex
	items []entity.Notification
}

func (r *recordingNotifier) Notify(n entity.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) levels(level entity.NotificationLevel) []entity.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Notification
	for _, n := range r.items {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

var (
	allColumns    = []string{"id", "name", "city", "status", "manual_rating", "score", "telemedicine", "cold_emailed", "created_at", "updated_at"}
	legacyColumns = []string{"id", "name", "city", "status", "manual_rating", "score", "telemedicine", "created_at", "updated_at"}
)

func hospital(id, name string, status entity.Status) entity.Hospital {
	return entity.Hospital{
		ID:        id,
		Name:      name,
		Status:    status,
		Emails:    []string{},
		Phones:    []string{},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func snapshot(columns []string, rows ...entity.Hospital) entity.Snapshot {
	return entity.Snapshot{Rows: rows, Columns: columns}
}

// loadedCache returns a cache whose first Select returns snap.
func loadedCache(t *testing.T, store *MockStore, snap entity.Snapshot) *RowCache {
	t.Helper()
	store.On("Select", mock.Anything, mock.Anything).Return(snap, nil).Once()
	cache := NewRowCache(store, "hospitals", zap.NewNop())
	require.NoError(t, cache.Load(context.Background()))
	return cache
}
