package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/hospital-leads/internal/entity"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

func newSQLiteStore(t *testing.T) *HospitalStore {
	t.Helper()
	ctx := context.Background()

	db, err := NewSQLiteConnection(ctx, filepath.Join(t.TempDir(), "hospitals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db, SQLite, DefaultTables()))

	store, err := NewHospitalStore(db, SQLite, DefaultTables())
	require.NoError(t, err)
	return store
}

func TestHospitalStore_InsertAndSelect(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	rows, err := store.Insert(ctx, []entity.NewHospital{{
		Name:         "Saint Mary",
		City:         "Lisbon",
		Emails:       []string{"a@x.com", "b@x.com"},
		Status:       entity.StatusQueued,
		ManualRating: 3,
		Telemedicine: entity.Bool(true),
	}})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Saint Mary", got.Name)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, got.Emails)
	assert.Nil(t, got.Phones)
	assert.Equal(t, entity.StatusQueued, got.Status)
	assert.Equal(t, 60.0, got.Score)
	require.NotNil(t, got.Telemedicine)
	assert.True(t, *got.Telemedicine)
	assert.Nil(t, got.ColdEmailed)
	assert.True(t, clock.Equal(got.CreatedAt))

	snap, err := store.Select(ctx, entity.Query{OrderBy: "created_at", Desc: true})
	require.NoError(t, err)
	require.Len(t, snap.Rows, 1)
	assert.True(t, snap.HasColumn("cold_emailed"))
	assert.Equal(t, got.ID, snap.Rows[0].ID)
}

func TestHospitalStore_SelectOrdersByCreatedAt(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Hour)
		store.now = func() time.Time { return at }
		_, err := store.Insert(ctx, []entity.NewHospital{{Name: name}})
		require.NoError(t, err)
	}

	snap, err := store.Select(ctx, entity.Query{OrderBy: "created_at", Desc: true})
	require.NoError(t, err)
	var names []string
	for _, h := range snap.Rows {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"third", "second", "first"}, names)

	_, err = store.Select(ctx, entity.Query{OrderBy: "score; DROP TABLE hospitals"})
	assert.Error(t, err)
}

func TestHospitalStore_UpdateReturnsRows(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	rows, err := store.Insert(ctx, []entity.NewHospital{{Name: "A"}, {Name: "B"}, {Name: "C"}})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	status := entity.StatusContacted
	rating := 4
	phones := []string{"+351 1", "+351 2"}
	updated, err := store.Update(ctx, entity.Patch{Status: &status, ManualRating: &rating, Phones: &phones},
		[]string{rows[0].ID, rows[2].ID})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	for _, h := range updated {
		assert.Equal(t, entity.StatusContacted, h.Status)
		assert.Equal(t, 4, h.ManualRating)
		assert.Equal(t, 80.0, h.Score)
		assert.Equal(t, phones, h.Phones)
	}

	snap, err := store.Select(ctx, entity.Query{IDs: []string{rows[1].ID}})
	require.NoError(t, err)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, entity.StatusNew, snap.Rows[0].Status)
}

func TestHospitalStore_MissingColdEmailedColumn(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLiteConnection(ctx, filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE legacy (
		id TEXT PRIMARY KEY, name TEXT NOT NULL, city TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '', address TEXT NOT NULL DEFAULT '',
		emails TEXT NOT NULL DEFAULT '[]', phones TEXT NOT NULL DEFAULT '[]',
		linkedin TEXT NOT NULL DEFAULT '', status TEXT NOT NULL DEFAULT 'new',
		manual_rating INTEGER NOT NULL DEFAULT 0, score REAL NOT NULL DEFAULT 0,
		telemedicine INTEGER, created_at INTEGER NOT NULL, updated_at INTEGER NOT NULL)`)
	require.NoError(t, err)

	store, err := NewHospitalStore(db, SQLite, Tables{Hospitals: "legacy", ColdEmails: "cold_emails"})
	require.NoError(t, err)

	rows, err := store.Insert(ctx, []entity.NewHospital{{Name: "Old"}})
	require.NoError(t, err)

	snap, err := store.Select(ctx, entity.Query{})
	require.NoError(t, err)
	assert.False(t, snap.HasColumn("cold_emailed"))

	flag := true
	_, err = store.Update(ctx, entity.Patch{ColdEmailed: &flag}, []string{rows[0].ID})
	var schemaErr *usecase.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "cold_emailed", schemaErr.Column)
}

func TestHospitalStore_InsertColdEmail(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	rows, err := store.Insert(ctx, []entity.NewHospital{{Name: "A"}})
	require.NoError(t, err)

	require.NoError(t, store.InsertColdEmail(ctx, entity.ColdEmail{HospitalID: rows[0].ID, ActedBy: "ops", Note: "marked cold emailed"}))

	var n int
	require.NoError(t, store.DB.QueryRowContext(ctx, "SELECT COUNT(1) FROM cold_emails WHERE hospital_id = ?", rows[0].ID).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestTablesValidate(t *testing.T) {
	assert.NoError(t, DefaultTables().Validate())
	assert.Error(t, Tables{Hospitals: "hospitals; drop", ColdEmails: "cold_emails"}.Validate())
	assert.Error(t, Tables{Hospitals: "", ColdEmails: "cold_emails"}.Validate())
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	assert.NoError(t, Migrate(context.Background(), store.DB, SQLite, DefaultTables()))
}

func TestProvider_MissingCredentials(t *testing.T) {
	p := NewProvider(ProviderConfig{Driver: DriverPostgres}, nil)
	_, err := p.GetOrCreate(context.Background())

	var cfgErr *usecase.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "DATABASE_URL", cfgErr.Setting)
	assert.Nil(t, p.DB())
}

func TestProvider_SQLiteLazyInit(t *testing.T) {
	p := NewProvider(ProviderConfig{
		Driver:     DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "lazy.db"),
		Migrate:    true,
	}, nil)
	assert.Nil(t, p.DB())

	first, err := p.GetOrCreate(context.Background())
	require.NoError(t, err)
	second, err := p.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, p.Dispose())
	assert.Nil(t, p.DB())
}
