package dashboard

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

// MutationState moves pending -> committed or pending -> rolled_back, once.
type MutationState string

const (
	MutationPending    MutationState = "pending"
	MutationCommitted  MutationState = "committed"
	MutationRolledBack MutationState = "rolled_back"
)

// Mutation records one optimistic edit through its three phases:
// stage locally, commit remotely, then reconcile or roll back.
type Mutation struct {
	ID        string
	IDs       []string
	Patch     entity.Patch
	Bulk      bool
	State     MutationState
	Err       error
	StartedAt time.Time

	prev map[string]entity.Hospital
}

func newMutation(ids []string, patch entity.Patch, bulk bool) *Mutation {
	return &Mutation{
		ID:        ulid.Make().String(),
		IDs:       ids,
		Patch:     patch,
		Bulk:      bulk,
		State:     MutationPending,
		StartedAt: time.Now(),
	}
}

// Previous returns the value captured for id before the optimistic write.
func (m *Mutation) Previous(id string) (entity.Hospital, bool) {
	h, ok := m.prev[id]
	return h, ok
}

func (m *Mutation) commit() error {
	return m.finish(MutationCommitted, nil)
}

func (m *Mutation) rollback(cause error) error {
	return m.finish(MutationRolledBack, cause)
}

func (m *Mutation) finish(state MutationState, cause error) error {
	if m.State != MutationPending {
		return fmt.Errorf("mutation %s already %s", m.ID, m.State)
	}
	m.State = state
	m.Err = cause
	return nil
}
