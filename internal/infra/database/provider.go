package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xavierca1/hospital-leads/internal/usecase"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type ProviderConfig struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	Migrate     bool
	Tables      Tables
}

// Provider creates the store client on first use and hands the same one out
// afterwards. Missing credentials surface as a ConfigError at that point.
type Provider struct {
	cfg    ProviderConfig
	logger *zap.Logger
	wrap   func(usecase.HospitalStore) usecase.HospitalStore

	mu      sync.Mutex
	db      *sql.DB
	dialect Dialect
	store   usecase.HospitalStore
}

type ProviderOption func(*Provider)

// WithWrap decorates the store once it is created.
func WithWrap(fn func(usecase.HospitalStore) usecase.HospitalStore) ProviderOption {
	return func(p *Provider) { p.wrap = fn }
}

func NewProvider(cfg ProviderConfig, logger *zap.Logger, opts ...ProviderOption) *Provider {
	if cfg.Tables == (Tables{}) {
		cfg.Tables = DefaultTables()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init opens the connection. Calling it again after success is a no-op.
func (p *Provider) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initLocked(ctx)
}

func (p *Provider) initLocked(ctx context.Context) error {
	if p.store != nil {
		return nil
	}

	var (
		db  *sql.DB
		d   Dialect
		err error
	)
	switch strings.ToLower(p.cfg.Driver) {
	case "", DriverPostgres:
		if strings.TrimSpace(p.cfg.DatabaseURL) == "" {
			return &usecase.ConfigError{
				Setting:     "DATABASE_URL",
				Remediation: "set DATABASE_URL to the postgres connection string, or STORE_DRIVER=sqlite",
			}
		}
		d = Postgres
		db, err = NewDBConnection(ctx, p.cfg.DatabaseURL)
	case DriverSQLite:
		if strings.TrimSpace(p.cfg.SQLitePath) == "" {
			return &usecase.ConfigError{
				Setting:     "SQLITE_PATH",
				Remediation: "set SQLITE_PATH to the database file",
			}
		}
		d = SQLite
		db, err = NewSQLiteConnection(ctx, p.cfg.SQLitePath)
	default:
		return &usecase.ConfigError{
			Setting:     "STORE_DRIVER",
			Remediation: fmt.Sprintf("unknown driver %q, use postgres or sqlite", p.cfg.Driver),
		}
	}
	if err != nil {
		return err
	}

	if p.cfg.Migrate {
		if err := Migrate(ctx, db, d, p.cfg.Tables); err != nil {
			_ = db.Close()
			return fmt.Errorf("migrate %s: %w", d.Name(), err)
		}
	}

	store, err := NewHospitalStore(db, d, p.cfg.Tables)
	if err != nil {
		_ = db.Close()
		return err
	}

	p.db = db
	p.dialect = d
	p.store = store
	if p.wrap != nil {
		p.store = p.wrap(store)
	}
	p.logger.Info("store connected", zap.String("driver", d.Name()), zap.String("table", p.cfg.Tables.Hospitals))
	return nil
}

func (p *Provider) GetOrCreate(ctx context.Context) (usecase.HospitalStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.initLocked(ctx); err != nil {
		return nil, err
	}
	return p.store, nil
}

// DB is nil until the provider has been initialised.
func (p *Provider) DB() *sql.DB {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db
}

func (p *Provider) Dialect() Dialect {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dialect
}

// Dispose closes the connection; the next GetOrCreate reconnects.
func (p *Provider) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	p.store = nil
	p.dialect = nil
	return err
}
