// Package sqlstore persists drafts in a single SQL key/value table through
// sqlx. It registers the sqlite (modernc.org/sqlite) and postgres (lib/pq)
// drivers so callers only need a driver name and DSN.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-crudform/pkg/storage"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultTable = "crudform_kv"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the table name. Invalid identifiers are ignored.
func WithTable(name string) Option {
	return func(s *Store) {
		name = strings.TrimSpace(name)
		if tableNamePattern.MatchString(name) {
			s.table = name
		}
	}
}

// Store implements storage.Storage over a *sqlx.DB.
type Store struct {
	db    *sqlx.DB
	table string
}

var _ storage.Storage = (*Store)(nil)

// Open connects to dsn with the named driver. sqlite connections are pinned
// to a single connection so in-memory databases survive across queries.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	driver = normalizeDriver(driver)
	if driver == "" {
		return nil, fmt.Errorf("sqlstore: driver is required")
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return New(db, opts...), nil
}

// New wraps an existing connection. Call Migrate before first use.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, table: DefaultTable}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// DB exposes the underlying handle.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the key/value table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	item_key TEXT PRIMARY KEY,
	item_value TEXT NOT NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := s.db.Rebind(fmt.Sprintf("SELECT item_value FROM %s WHERE item_key = ?", s.table))
	err := s.db.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlstore: get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	query := s.db.Rebind(fmt.Sprintf(
		"INSERT INTO %s (item_key, item_value) VALUES (?, ?) ON CONFLICT (item_key) DO UPDATE SET item_value = excluded.item_value",
		s.table,
	))
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("sqlstore: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	query := s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE item_key = ?", s.table))
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("sqlstore: remove %q: %w", key, err)
	}
	return nil
}

func (s *Store) Key(ctx context.Context, index int) (string, bool, error) {
	if index < 0 {
		return "", false, nil
	}
	var key string
	query := s.db.Rebind(fmt.Sprintf("SELECT item_key FROM %s ORDER BY item_key LIMIT 1 OFFSET ?", s.table))
	err := s.db.GetContext(ctx, &key, query, index)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlstore: key %d: %w", index, err)
	}
	return key, true, nil
}

func (s *Store) Length(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)); err != nil {
		return 0, fmt.Errorf("sqlstore: length: %w", err)
	}
	return count, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "postgres", "postgresql", "pg":
		return DriverPostgres
	default:
		return strings.TrimSpace(driver)
	}
}
