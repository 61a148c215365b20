package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Schema version tracking for the Tasks table:
// 0 - v1.4 baseline (title, description, due_date, status, priority)
// 1 - area
// 2 - dependencies
// 3 - content, hashtags
const currentSchemaVersion = 3

// dsnParams configures every connection the pool opens, so pragmas survive
// connection recycling.
const dsnParams = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=1&_txlock=immediate"

// Querier is the subset of *sql.DB, *sql.Conn and *sql.Tx used by the
// statement helpers in this package.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is one SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
//
// Open does not create tables; call EnsureSchema for each logical store the
// file hosts. A file that cannot be opened (missing directory, permissions)
// yields an error wrapping ErrStoreUnavailable.
func Open(path string) (*Store, error) {
	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrStoreUnavailable, err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrStoreUnavailable, err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database. Safe to call on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithConn acquires a connection, hands it to fn and releases it on every
// exit path. A release failure is reported only when fn itself succeeded.
func (s *Store) WithConn(ctx context.Context, fn func(conn *sql.Conn) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection %s: %w: %w", s.path, ErrStoreUnavailable, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("release connection %s: %w", s.path, cerr)
		}
	}()

	return fn(conn)
}

// WithTx runs fn inside a single transaction on a scoped connection.
// Either everything fn wrote commits or nothing does.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.WithConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return classify("begin tx", err)
		}
		defer tx.Rollback() // No-op if committed

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return classify("commit", err)
		}
		return nil
	})
}

// EnsureSchema creates the tables of the named logical store if they are
// absent and, for the tasks store, applies pending migrations.
// This function is idempotent.
func (s *Store) EnsureSchema(ctx context.Context, name string) error {
	ddl, err := schemaFS.ReadFile("schema/" + name + ".sql")
	if err != nil {
		return fmt.Errorf("schema %q: %w", name, ErrUnknownStore)
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(ddl)); err != nil {
			return fmt.Errorf("schema %q: execute: %w", name, err)
		}
		if name != StoreTasks {
			return nil
		}
		if err := runMigrations(ctx, tx); err != nil {
			return fmt.Errorf("schema %q: %w", name, err)
		}
		return nil
	})
}

// Snapshot writes a transactionally consistent copy of the database to dest.
// dest must not exist.
func (s *Store) Snapshot(ctx context.Context, dest string) error {
	return s.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
			return fmt.Errorf("snapshot %s: %w", s.path, err)
		}
		return nil
	})
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	return s.WithConn(context.Background(), func(conn *sql.Conn) error {
		var value string
		if err := conn.QueryRowContext(context.Background(), fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
			return fmt.Errorf("failed to query %s: %w", name, err)
		}
		if value != expected {
			return fmt.Errorf("%s = %q, expected %q", name, value, expected)
		}
		return nil
	})
}
