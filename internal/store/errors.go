package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrStoreUnavailable means the database file could not be opened or no
	// connection could be acquired.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrIntegrity means SQLite rejected a write on a NOT NULL, CHECK or
	// UNIQUE constraint.
	ErrIntegrity = errors.New("integrity constraint violated")

	// ErrNotFound means no row matched the requested identifier.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownStore means a logical store name is not one of Names.
	ErrUnknownStore = errors.New("unknown store")
)

// classify wraps a driver error with the sentinel that callers branch on.
// The driver error stays in the chain for logging.
func classify(op string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s: %w: %w", op, ErrIntegrity, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
