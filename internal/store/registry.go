package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Logical store names.
const (
	StoreTasks    = "tasks"
	StoreFeedback = "feedback"
	StoreBehavior = "behavior"
	StoreMemgen   = "memgen"
)

// Names lists every logical store in schema-initialization order.
var Names = []string{StoreTasks, StoreFeedback, StoreBehavior, StoreMemgen}

// DefaultFiles maps each logical store to its default file name. Tasks and
// feedback share a file, as the service always has.
func DefaultFiles() map[string]string {
	return map[string]string{
		StoreTasks:    "tasks.db",
		StoreFeedback: "tasks.db",
		StoreBehavior: "behaviors.db",
		StoreMemgen:   "memgen.db",
	}
}

// IsKnown reports whether name is a logical store.
func IsKnown(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Registry resolves logical store names to open Stores. Each physical file is
// opened once, on first use, and shared by every logical store mapped to it.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	paths  map[string]string // logical name -> cleaned file path
	stores map[string]*Store // file path -> store
}

// NewRegistry creates a registry from a logical-name → file-path map. Every
// logical store must be mapped, and no unknown names are allowed.
func NewRegistry(paths map[string]string) (*Registry, error) {
	cleaned := make(map[string]string, len(paths))
	for name, path := range paths {
		if !IsKnown(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStore, name)
		}
		if path == "" {
			return nil, fmt.Errorf("store %q: empty path", name)
		}
		cleaned[name] = filepath.Clean(path)
	}
	for _, name := range Names {
		if _, ok := cleaned[name]; !ok {
			return nil, fmt.Errorf("store %q: no path configured", name)
		}
	}

	return &Registry{
		paths:  cleaned,
		stores: make(map[string]*Store),
	}, nil
}

// Store returns the open Store behind a logical name, opening its file on
// first use.
func (r *Registry) Store(name string) (*Store, error) {
	path, ok := r.paths[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[path]; ok {
		return s, nil
	}
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	r.stores[path] = s
	return s, nil
}

// WithConn runs fn on a scoped connection to the named store.
func (r *Registry) WithConn(ctx context.Context, name string, fn func(conn *sql.Conn) error) error {
	s, err := r.Store(name)
	if err != nil {
		return err
	}
	return s.WithConn(ctx, fn)
}

// WithTx runs fn in a single transaction against the named store.
func (r *Registry) WithTx(ctx context.Context, name string, fn func(tx *sql.Tx) error) error {
	s, err := r.Store(name)
	if err != nil {
		return err
	}
	return s.WithTx(ctx, fn)
}

// EnsureSchema creates the named store's tables if absent. Idempotent.
func (r *Registry) EnsureSchema(ctx context.Context, name string) error {
	s, err := r.Store(name)
	if err != nil {
		return err
	}
	return s.EnsureSchema(ctx, name)
}

// EnsureAll runs EnsureSchema for every logical store.
func (r *Registry) EnsureAll(ctx context.Context) error {
	for _, name := range Names {
		if err := r.EnsureSchema(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Files returns the distinct database files, sorted by path.
func (r *Registry) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, path := range r.paths {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files
}

// Stores opens and returns one Store per distinct file, sorted by path.
func (r *Registry) Stores() ([]*Store, error) {
	var stores []*Store
	for _, path := range r.Files() {
		name := r.nameFor(path)
		s, err := r.Store(name)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, nil
}

// nameFor returns the first logical name (in Names order) mapped to path.
func (r *Registry) nameFor(path string) string {
	for _, name := range Names {
		if r.paths[name] == path {
			return name
		}
	}
	return ""
}

// Close closes every opened file.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for path, s := range r.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		delete(r.stores, path)
	}
	return errors.Join(errs...)
}
