package tracker

import (
	"context"
	"fmt"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/model"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/store"
)

// IdentityMode selects how an incoming task is matched to a stored row.
type IdentityMode string

const (
	// IdentityByID matches only on a supplied id that has a row.
	IdentityByID IdentityMode = "id"

	// IdentityByTitle additionally matches a task without an id to the
	// oldest row with the exact same title.
	IdentityByTitle IdentityMode = "title"
)

// ParseIdentityMode validates a configured mode. Empty means IdentityByID.
func ParseIdentityMode(s string) (IdentityMode, error) {
	switch IdentityMode(s) {
	case "", IdentityByID:
		return IdentityByID, nil
	case IdentityByTitle:
		return IdentityByTitle, nil
	default:
		return "", fmt.Errorf("unknown identity mode %q (want %q or %q)", s, IdentityByID, IdentityByTitle)
	}
}

// Resolver decides whether a task refers to an existing row.
//
// A supplied id resolves iff a row with that id exists. An id with no row
// does not resolve, and the caller creates a new row with a store-assigned
// id; the supplied id is not reused.
type Resolver struct {
	Mode IdentityMode
}

// Resolve returns the matched row id and true, or false when the task is new.
// q must be the transaction the subsequent write runs in.
func (r Resolver) Resolve(ctx context.Context, q store.Querier, t model.Task) (int64, bool, error) {
	if t.ID != nil {
		exists, err := store.TaskExists(ctx, q, *t.ID)
		if err != nil {
			return 0, false, err
		}
		return *t.ID, exists, nil
	}

	if r.Mode == IdentityByTitle {
		return store.TaskIDByTitle(ctx, q, t.Title)
	}
	return 0, false, nil
}
