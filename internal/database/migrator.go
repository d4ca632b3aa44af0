// Package database opens the SQL connection and applies schema migrations.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrations returns the embedded migrations of a dialect.
func Migrations(d Dialect) (fs.FS, error) {
	return fs.Sub(migrationsFS, path.Join("migrations", string(d)))
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL
)`

// Migrator applies *.up.sql files in lexical order, each in its own
// transaction, and records applied versions in schema_migrations.
type Migrator struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

// NewMigrator constructs a Migrator that logs through the provided logger instance.
func NewMigrator(db *sql.DB, dialect Dialect, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}

	return &Migrator{
		db:      db,
		dialect: dialect,
		log:     log,
	}
}

// Up applies the embedded migrations of the migrator's dialect.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	fsys, err := Migrations(m.dialect)
	if err != nil {
		return 0, fmt.Errorf("open %s migrations: %w", m.dialect, err)
	}
	return m.Apply(ctx, fsys)
}

// Apply runs every pending migration found at the root of fsys and returns
// how many were applied.
func (m *Migrator) Apply(ctx context.Context, fsys fs.FS) (int, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := ListMigrations(fsys, ".")
	if err != nil {
		return 0, fmt.Errorf("list migrations: %w", err)
	}
	if len(names) == 0 {
		m.log.Info("no .up.sql migrations found")
		return 0, nil
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, name := range names {
		version := strings.TrimSuffix(name, ".up.sql")
		if applied[version] {
			continue
		}

		if err := m.applyFile(ctx, fsys, name, version); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) applyFile(ctx context.Context, fsys fs.FS, name, version string) error {
	scopedLog := m.log.With(slog.String("file", name), slog.String("dialect", string(m.dialect)))

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", name, err)
	}

	statement := strings.TrimSpace(string(data))

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for migration %q: %w", name, err)
	}

	rollback := func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			scopedLog.Error("rollback error", slog.Any("error", rbErr))
		}
	}

	if statement == "" {
		scopedLog.Warn("migration is empty, recording only")
	} else if _, execErr := tx.ExecContext(ctx, statement); execErr != nil {
		rollback()
		return fmt.Errorf("execute migration %q: %w", name, execErr)
	}

	record := m.dialect.Rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`)
	if _, err := tx.ExecContext(ctx, record, version, time.Now().UTC()); err != nil {
		rollback()
		return fmt.Errorf("record migration %q: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		rollback()
		return fmt.Errorf("commit migration %q: %w", name, err)
	}

	scopedLog.Info("migration applied")
	return nil
}

func isUpMigration(name string) bool {
	return strings.HasSuffix(name, ".up.sql")
}

// ListMigrations returns all .up.sql files in root of fsys in lexical order.
func ListMigrations(fsys fs.FS, root string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isUpMigration(e.Name()) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}
