package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/importer"
	"github.com/xavierca1/hospital-leads/internal/infra/metrics"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

type Options struct {
	Table       string
	Collation   language.Tag
	Subscribers []usecase.ChangeSubscriber
	// Notifier receives every notification in addition to the session log.
	Notifier   usecase.Notifier
	BestEffort BestEffortRunner
	Mapper     *importer.Mapper
	Logger     *zap.Logger
	// NotificationLimit bounds the in-memory notification log.
	NotificationLimit int
}

// Session is one dashboard view: it owns the row cache and everything that
// mutates it. Only one session exists per process.
type Session struct {
	store         usecase.HospitalStore
	cache         *RowCache
	coordinator   *Coordinator
	listener      *Listener
	notifications *NotificationLog
	notifier      usecase.Notifier
	hub           *Hub
	bestEffort    BestEffortRunner
	mapper        *importer.Mapper
	collation     language.Tag
	logger        *zap.Logger
}

func NewSession(store usecase.HospitalStore, opts Options) *Session {
	if opts.Table == "" {
		opts.Table = "hospitals"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Collation == language.Und {
		opts.Collation = language.English
	}
	if opts.BestEffort == nil {
		opts.BestEffort = NewAsyncRunner(opts.Logger, 10*time.Second)
	}
	if opts.Mapper == nil {
		opts.Mapper = importer.DefaultMapper()
	}

	log := NewNotificationLog(opts.NotificationLimit)
	notifier := MultiNotifier{log, opts.Notifier}
	hub := NewHub()

	cache := NewRowCache(store, opts.Table, opts.Logger)
	cache.setOnChange(hub.Publish)

	s := &Session{
		store:         store,
		cache:         cache,
		coordinator:   NewCoordinator(cache, store, notifier, opts.BestEffort, opts.Logger),
		notifications: log,
		notifier:      notifier,
		hub:           hub,
		bestEffort:    opts.BestEffort,
		mapper:        opts.Mapper,
		collation:     opts.Collation,
		logger:        opts.Logger,
	}
	s.listener = NewListener(opts.Table, opts.Subscribers, cache.Load, opts.Logger)
	return s
}

// Open loads the cache and starts live updates. A failed initial load is
// returned, but the listener still starts so the next change event or a
// manual reload can populate the cache.
func (s *Session) Open(ctx context.Context) error {
	err := s.cache.Load(ctx)
	if err != nil {
		s.notify(entity.NotifyError, fmt.Sprintf("Load failed: %v", unwrapStore(err)))
	}
	s.listener.Start(ctx)
	return err
}

// Close releases the change subscription and waits for pending best-effort work.
func (s *Session) Close() error {
	err := s.listener.Stop()
	if w, ok := s.bestEffort.(interface{ Wait() }); ok {
		w.Wait()
	}
	s.hub.Close()
	return err
}

// Reload is the manual refresh.
func (s *Session) Reload(ctx context.Context) error {
	if err := s.cache.Load(ctx); err != nil {
		s.notify(entity.NotifyError, fmt.Sprintf("Reload failed: %v", unwrapStore(err)))
		return err
	}
	return nil
}

func (s *Session) View(c Criteria) View {
	return Project(s.cache.Rows(), s.cache.Features(), c, s.collation)
}

func (s *Session) Cache() *RowCache {
	return s.cache
}

func (s *Session) Coordinator() *Coordinator {
	return s.coordinator
}

func (s *Session) Features() Features {
	return s.cache.Features()
}

func (s *Session) Notifications() []entity.Notification {
	return s.notifications.Recent()
}

// Watch streams cache changes until cancel is called or the session closes.
func (s *Session) Watch(buffer int) (<-chan Change, func()) {
	return s.hub.Subscribe(buffer)
}

// LiveMode names the active change subscriber, "" when degraded.
func (s *Session) LiveMode() string {
	return s.listener.Mode()
}

// Add is the quick-add form: one insert, then a reload.
func (s *Session) Add(ctx context.Context, h entity.NewHospital) (entity.Hospital, error) {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		err := usecase.ValidationError{Field: "name", Message: "is required"}
		s.notify(entity.NotifyError, err.Error())
		return entity.Hospital{}, err
	}
	if h.Status == "" {
		h.Status = entity.StatusNew
	}
	if !h.Status.Valid() {
		err := usecase.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", h.Status)}
		s.notify(entity.NotifyError, err.Error())
		return entity.Hospital{}, err
	}
	if h.ManualRating < 0 || h.ManualRating > entity.MaxRating {
		err := usecase.ValidationError{Field: "manual_rating", Message: fmt.Sprintf("must be between 0 and %d", entity.MaxRating)}
		s.notify(entity.NotifyError, err.Error())
		return entity.Hospital{}, err
	}
	if h.ColdEmailed != nil && !s.cache.Features().ColdEmailed {
		h.ColdEmailed = nil
	}

	rows, err := s.store.Insert(ctx, []entity.NewHospital{h})
	if err != nil {
		s.notify(entity.NotifyError, fmt.Sprintf("Add failed: %v", err))
		return entity.Hospital{}, &usecase.StoreError{Op: "insert hospital", Err: err}
	}
	s.notify(entity.NotifySuccess, fmt.Sprintf("Added %s", h.Name))
	if err := s.cache.Load(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("reload after add", zap.Error(err))
	}
	if len(rows) == 0 {
		return entity.Hospital{}, nil
	}
	return rows[0], nil
}

type ImportResult struct {
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Import inserts records one at a time, in order. A failed row does not stop
// the batch; nothing spans the batch transactionally. One reload follows.
func (s *Session) Import(ctx context.Context, records []importer.Record) ImportResult {
	var res ImportResult
	withColdEmailed := s.cache.Features().ColdEmailed

	for i, rec := range records {
		h, ok := s.mapper.Map(rec)
		if !ok {
			res.Skipped++
			continue
		}
		if !withColdEmailed {
			h.ColdEmailed = nil
		}
		if _, err := s.store.Insert(ctx, []entity.NewHospital{h}); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d (%s): %v", i+1, h.Name, err))
			s.logger.Debug("import row failed", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		res.Inserted++
	}

	metrics.RecordImportRows("inserted", res.Inserted)
	metrics.RecordImportRows("skipped", res.Skipped)
	metrics.RecordImportRows("failed", res.Failed)

	level := entity.NotifySuccess
	if res.Failed > 0 {
		level = entity.NotifyError
	}
	s.notify(level, fmt.Sprintf("Imported %d rows (%d skipped, %d failed)", res.Inserted, res.Skipped, res.Failed))

	if err := s.cache.Load(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("reload after import", zap.Error(err))
	}
	return res
}

// ExportRows returns the projection for c and whether cold_emailed may be exported.
func (s *Session) ExportRows(c Criteria) ([]entity.Hospital, bool) {
	v := s.View(c)
	return v.Rows, v.Features.ColdEmailed
}

func (s *Session) notify(level entity.NotificationLevel, msg string) {
	s.notifier.Notify(entity.Notification{Level: level, Message: msg, At: time.Now()})
}
