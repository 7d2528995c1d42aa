package dashboard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/infra/metrics"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

// Coordinator applies operator edits optimistically.
//
// Remote calls for the same record are not serialized: a slow first write
// may land after a faster second one. The reload on failure is the backstop.
type Coordinator struct {
	cache      *RowCache
	store      usecase.HospitalStore
	notifier   usecase.Notifier
	bestEffort BestEffortRunner
	logger     *zap.Logger
}

func NewCoordinator(cache *RowCache, store usecase.HospitalStore, notifier usecase.Notifier, bestEffort BestEffortRunner, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		cache:      cache,
		store:      store,
		notifier:   notifier,
		bestEffort: bestEffort,
		logger:     logger,
	}
}

// ApplyPatch edits one row. On failure the row is rolled back to its
// pre-mutation value and the cache is reloaded.
func (c *Coordinator) ApplyPatch(ctx context.Context, id string, patch entity.Patch) (*Mutation, error) {
	return c.apply(ctx, []string{id}, patch, false)
}

// ApplyBulkPatch edits many rows. On failure the only recovery is a reload:
// which rows committed server-side is unknown.
func (c *Coordinator) ApplyBulkPatch(ctx context.Context, ids []string, patch entity.Patch) (*Mutation, error) {
	return c.apply(ctx, ids, patch, true)
}

func (c *Coordinator) SetStatus(ctx context.Context, id string, status entity.Status) (*Mutation, error) {
	return c.ApplyPatch(ctx, id, entity.Patch{Status: &status})
}

func (c *Coordinator) BulkSetStatus(ctx context.Context, ids []string, status entity.Status) (*Mutation, error) {
	return c.ApplyBulkPatch(ctx, ids, entity.Patch{Status: &status})
}

func (c *Coordinator) SetRating(ctx context.Context, id string, rating int) (*Mutation, error) {
	return c.ApplyPatch(ctx, id, entity.Patch{ManualRating: &rating})
}

// SetColdEmailed flips the cold-email flag and appends an audit row on success.
func (c *Coordinator) SetColdEmailed(ctx context.Context, id string, value bool, actedBy, note string) (*Mutation, error) {
	m, err := c.ApplyPatch(ctx, id, entity.Patch{ColdEmailed: &value})
	if err != nil {
		return m, err
	}

	if note == "" {
		note = "unmarked cold emailed"
		if value {
			note = "marked cold emailed"
		}
	}
	audit := entity.ColdEmail{HospitalID: id, ActedBy: actedBy, Note: note}
	c.bestEffort.Run("cold_email_audit", func(ctx context.Context) error {
		return c.store.InsertColdEmail(ctx, audit)
	})
	return m, nil
}

func (c *Coordinator) apply(ctx context.Context, ids []string, patch entity.Patch, bulk bool) (*Mutation, error) {
	if err := c.guard(ids, patch); err != nil {
		return nil, err
	}

	m := newMutation(uniqueIDs(ids), patch, bulk)

	// Stage: visible to readers before the store call starts.
	prev, found := c.cache.stage(m.IDs, patch)
	if len(found) == 0 {
		err := usecase.ValidationError{Field: "id", Message: "hospital is not loaded; reload and retry"}
		c.notify(entity.NotifyError, err.Error())
		return nil, err
	}
	m.IDs = found
	m.prev = prev

	// Commit.
	rows, err := c.store.Update(ctx, patch, m.IDs)
	if err != nil {
		storeErr := &usecase.StoreError{Op: "update hospitals", Err: err}
		c.resync(ctx, m, storeErr)
		return m, storeErr
	}

	// Reconcile.
	c.cache.accept(rows)
	_ = m.commit()
	metrics.RecordMutation(bulk, string(m.State))

	msg := "Hospital updated"
	if bulk {
		msg = fmt.Sprintf("%d hospitals updated", len(m.IDs))
	}
	c.notify(entity.NotifySuccess, msg)
	return m, nil
}

func (c *Coordinator) guard(ids []string, patch entity.Patch) error {
	if len(ids) == 0 {
		err := usecase.ValidationError{Field: "id", Message: "is required"}
		c.notify(entity.NotifyError, err.Error())
		return err
	}
	if err := patch.Validate(); err != nil {
		err = usecase.AsValidationError(err)
		c.notify(entity.NotifyError, err.Error())
		return err
	}
	if patch.IsEmpty() {
		err := usecase.ValidationError{Message: "nothing to update"}
		c.notify(entity.NotifyError, err.Error())
		return err
	}
	if patch.ColdEmailed != nil && !c.cache.Features().ColdEmailed {
		err := &usecase.SchemaError{Table: c.cache.Table(), Column: "cold_emailed"}
		c.notify(entity.NotifyConfig, fmt.Sprintf("Cold-email tracking is unavailable: add a boolean cold_emailed column to %s", c.cache.Table()))
		return err
	}
	return nil
}

// resync runs after a failed commit. Single edits restore the captured row
// first; bulk edits rely on the reload alone and only fall back to the
// captured rows when the reload fails too.
func (c *Coordinator) resync(ctx context.Context, m *Mutation, cause error) {
	if !m.Bulk {
		c.cache.restore(m.prev)
	}
	_ = m.rollback(cause)
	metrics.RecordMutation(m.Bulk, string(m.State))
	c.notify(entity.NotifyError, fmt.Sprintf("Update failed: %v", unwrapStore(cause)))

	// The triggering request may already be cancelled; the resync must still run.
	reloadCtx := context.WithoutCancel(ctx)
	if err := c.cache.Load(reloadCtx); err != nil {
		c.logger.Warn("resync after failed update",
			zap.String("mutation", m.ID), zap.Bool("bulk", m.Bulk), zap.Error(err))
		if m.Bulk {
			c.cache.restore(m.prev)
		}
	}
}

func (c *Coordinator) notify(level entity.NotificationLevel, msg string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(entity.Notification{Level: level, Message: msg, At: time.Now()})
}

func unwrapStore(err error) error {
	if se, ok := err.(*usecase.StoreError); ok && se.Err != nil {
		return se.Err
	}
	return err
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
