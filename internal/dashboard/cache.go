package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/infra/metrics"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

// Features are schema capabilities resolved once per load.
type Features struct {
	ColdEmailed bool `json:"cold_emailed"`
}

// DetectFeatures inspects a fetched snapshot: a column counts as present only
// when at least one fetched row carries it.
func DetectFeatures(s entity.Snapshot) Features {
	return Features{
		ColdEmailed: len(s.Rows) > 0 && s.HasColumn("cold_emailed"),
	}
}

// RowCache mirrors the hospitals table in fetch order.
type RowCache struct {
	store  usecase.HospitalStore
	table  string
	query  entity.Query
	logger *zap.Logger

	loadSeq atomic.Uint64

	mu         sync.RWMutex
	rows       []entity.Hospital
	index      map[string]int
	features   Features
	appliedSeq uint64
	loadedAt   time.Time
	onChange   func(Change)
}

func NewRowCache(store usecase.HospitalStore, table string, logger *zap.Logger) *RowCache {
	return &RowCache{
		store:  store,
		table:  table,
		query:  entity.Query{OrderBy: "created_at", Desc: true},
		logger: logger,
		index:  map[string]int{},
	}
}

// Load replaces the whole cache with a fresh fetch. On error the previous
// contents stay untouched. A load that started before the last applied one
// is discarded so overlapping reloads never move the cache backwards.
func (c *RowCache) Load(ctx context.Context) error {
	seq := c.loadSeq.Add(1)

	snap, err := c.store.Select(ctx, c.query)
	if err != nil {
		metrics.RecordReload("error", 0)
		return &usecase.StoreError{Op: "load " + c.table, Err: err}
	}
	features := DetectFeatures(snap)
	rows, index, dropped := dedupe(snap.Rows)

	c.mu.Lock()
	if seq < c.appliedSeq {
		c.mu.Unlock()
		metrics.RecordReload("stale", 0)
		c.logger.Debug("discarding stale load", zap.Uint64("seq", seq))
		return nil
	}
	c.appliedSeq = seq
	c.rows = rows
	c.index = index
	c.features = features
	c.loadedAt = time.Now()
	c.mu.Unlock()

	if dropped > 0 {
		c.logger.Warn("duplicate ids in snapshot", zap.Int("dropped", dropped))
	}
	metrics.RecordReload("ok", len(rows))
	c.emit(Change{Kind: ChangeReloaded})
	return nil
}

func dedupe(in []entity.Hospital) ([]entity.Hospital, map[string]int, int) {
	rows := make([]entity.Hospital, 0, len(in))
	index := make(map[string]int, len(in))
	dropped := 0
	for _, h := range in {
		if _, ok := index[h.ID]; ok {
			dropped++
			continue
		}
		index[h.ID] = len(rows)
		rows = append(rows, h.Clone())
	}
	return rows, index, dropped
}

// Rows returns a copy of the cached rows in fetch order.
func (c *RowCache) Rows() []entity.Hospital {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entity.Hospital, len(c.rows))
	for i, h := range c.rows {
		out[i] = h.Clone()
	}
	return out
}

func (c *RowCache) Get(id string) (entity.Hospital, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return entity.Hospital{}, false
	}
	return c.rows[i].Clone(), true
}

func (c *RowCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

func (c *RowCache) Features() Features {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.features
}

func (c *RowCache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

func (c *RowCache) Table() string {
	return c.table
}

// stage writes patch over every cached id and returns the previous values.
// ids not in the cache are left out of both results.
func (c *RowCache) stage(ids []string, patch entity.Patch) (map[string]entity.Hospital, []string) {
	c.mu.Lock()
	prev := make(map[string]entity.Hospital, len(ids))
	found := make([]string, 0, len(ids))
	for _, id := range ids {
		i, ok := c.index[id]
		if !ok {
			continue
		}
		if _, seen := prev[id]; seen {
			continue
		}
		prev[id] = c.rows[i].Clone()
		c.rows[i] = patch.Apply(c.rows[i])
		found = append(found, id)
	}
	c.mu.Unlock()

	if len(found) > 0 {
		c.emit(Change{Kind: ChangeStaged, IDs: found})
	}
	return prev, found
}

// restore puts back values captured by stage.
func (c *RowCache) restore(prev map[string]entity.Hospital) {
	ids := c.replace(prev)
	if len(ids) > 0 {
		c.emit(Change{Kind: ChangeRolledBack, IDs: ids})
	}
}

// accept takes server rows as authoritative for entries already cached.
func (c *RowCache) accept(rows []entity.Hospital) {
	byID := make(map[string]entity.Hospital, len(rows))
	for _, h := range rows {
		byID[h.ID] = h
	}
	ids := c.replace(byID)
	if len(ids) > 0 {
		c.emit(Change{Kind: ChangeCommitted, IDs: ids})
	}
}

func (c *RowCache) replace(byID map[string]entity.Hospital) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(byID))
	for id, h := range byID {
		i, ok := c.index[id]
		if !ok {
			continue
		}
		c.rows[i] = h.Clone()
		ids = append(ids, id)
	}
	return ids
}

func (c *RowCache) setOnChange(fn func(Change)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *RowCache) emit(ch Change) {
	c.mu.RLock()
	fn := c.onChange
	c.mu.RUnlock()
	if fn != nil {
		ch.At = time.Now()
		fn(ch)
	}
}
