package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/xavierca1/hospital-leads/internal/infra/database/migrations"
)

const migrationTable = "schema_migrations"

// Migrate applies the embedded migrations for d at most once per file.
// Table names in the files are templated so a renamed table still migrates.
func Migrate(ctx context.Context, db *sql.DB, d Dialect, tables Tables) error {
	if db == nil {
		return fmt.Errorf("sql db is required")
	}
	if err := tables.Validate(); err != nil {
		return err
	}

	root := d.Name()
	entries, err := fs.ReadDir(migrations.FS, root)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at BIGINT NOT NULL
)`, migrationTable)
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	render := strings.NewReplacer(
		"{{hospitals}}", tables.Hospitals,
		"{{cold_emails}}", tables.ColdEmails,
	)

	for _, file := range files {
		key := tables.Hospitals + "/" + file
		applied, err := migrationApplied(ctx, db, d, key)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if applied {
			continue
		}

		content, err := fs.ReadFile(migrations.FS, path.Join(root, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, render.Replace(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		mark := fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (%s, %s)",
			migrationTable, d.Placeholder(1), d.Placeholder(2))
		if _, err := tx.ExecContext(ctx, mark, key, time.Now().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mark migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

func migrationApplied(ctx context.Context, db *sql.DB, d Dialect, key string) (bool, error) {
	q := fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE name = %s", migrationTable, d.Placeholder(1))
	var n int
	if err := db.QueryRowContext(ctx, q, key).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
