package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Proton-105/interview-coach/pkg/config"
)

// Dialect identifies the SQL flavour of a connection.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Rebind rewrites ? placeholders into the dialect's native form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect := Dialect(cfg.Driver)

	var driver string
	switch dialect {
	case Postgres:
		driver = "postgres"
	case SQLite:
		driver = "sqlite"
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(driver, cfg.DSN())
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", driver, err)
	}

	if dialect == SQLite {
		// A single writer avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, dialect, nil
}
