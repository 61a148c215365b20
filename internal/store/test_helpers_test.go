package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/model"
)

// createTestStore opens a fresh file in a temp dir and initializes the given
// logical stores on it.
func createTestStore(t *testing.T, names ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if len(names) == 0 {
		names = Names
	}
	for _, name := range names {
		if err := s.EnsureSchema(context.Background(), name); err != nil {
			t.Fatalf("EnsureSchema(%q) failed: %v", name, err)
		}
	}
	return s
}

// createTestTask returns a task with minimal required fields.
func createTestTask(title, status string, priority int) model.Task {
	return model.Task{
		Title:       title,
		Description: "description of " + title,
		DueDate:     "2026-12-01",
		Status:      status,
		Priority:    priority,
	}
}

// listFeedback reads back every feedback row in insertion order.
func listFeedback(ctx context.Context, q Querier) ([]model.Feedback, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, user_id, feedback FROM Feedback ORDER BY id ASC`)
	if err != nil {
		return nil, classify("query feedback", err)
	}
	defer rows.Close()

	out := []model.Feedback{}
	for rows.Next() {
		var f model.Feedback
		var userID int64
		if err := rows.Scan(&f.ID, &userID, &f.Feedback); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		f.UserID = &userID
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}
