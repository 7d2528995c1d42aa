package usecase

import (
	"context"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

// HospitalStore is the remote store client. Every call is a network round-trip.
type HospitalStore interface {
	Select(ctx context.Context, q entity.Query) (entity.Snapshot, error)
	// Update writes patch to every row whose id is in ids and returns the rows as stored.
	Update(ctx context.Context, patch entity.Patch, ids []string) ([]entity.Hospital, error)
	Insert(ctx context.Context, records []entity.NewHospital) ([]entity.Hospital, error)
	InsertColdEmail(ctx context.Context, audit entity.ColdEmail) error
}

// StoreProvider hands out the lazily created store client.
type StoreProvider interface {
	GetOrCreate(ctx context.Context) (HospitalStore, error)
}

// ChangeSubscriber opens a push subscription on a table's change feed.
type ChangeSubscriber interface {
	Name() string
	Subscribe(ctx context.Context, table string, mask entity.EventMask, onEvent func(entity.ChangeEvent)) (Subscription, error)
}

// Subscription is a live change feed registration. Unsubscribe must be called
// to release it at the store.
type Subscription interface {
	Unsubscribe() error
}

// Notifier delivers operator-facing notifications.
type Notifier interface {
	Notify(n entity.Notification)
}
