package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/model"
)

// InsertTask inserts a new task row and returns the store-assigned id.
// Any ID on t is ignored. Dependencies are flattened with
// model.DependencySeparator; an empty list is stored as "".
func InsertTask(ctx context.Context, q Querier, t model.Task) (int64, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO Tasks
		(title, description, due_date, status, priority, area, dependencies, content, hashtags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.Title,
		t.Description,
		t.DueDate,
		t.Status,
		t.Priority,
		nullString(t.Area),
		t.Dependencies.Encode(),
		nullString(t.Content),
		nullString(t.Hashtags),
	)
	if err != nil {
		return 0, classify("insert task", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert task: last insert id: %w", err)
	}
	return id, nil
}

// UpdateTask overwrites every mutable column of the task with the given id.
// Returns ErrNotFound if no row has that id.
func UpdateTask(ctx context.Context, q Querier, id int64, t model.Task) error {
	result, err := q.ExecContext(ctx, `
		UPDATE Tasks SET
			title = ?,
			description = ?,
			due_date = ?,
			status = ?,
			priority = ?,
			area = ?,
			dependencies = ?,
			content = ?,
			hashtags = ?
		WHERE id = ?
	`,
		t.Title,
		t.Description,
		t.DueDate,
		t.Status,
		t.Priority,
		nullString(t.Area),
		t.Dependencies.Encode(),
		nullString(t.Content),
		nullString(t.Hashtags),
		id,
	)
	if err != nil {
		return classify("update task", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update task %d: %w", id, ErrNotFound)
	}
	return nil
}

// TaskExists reports whether a task row with the given id is present.
func TaskExists(ctx context.Context, q Querier, id int64) (bool, error) {
	var found int64
	err := q.QueryRowContext(ctx, "SELECT id FROM Tasks WHERE id = ?", id).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, classify("task exists", err)
	}
	return true, nil
}

// TaskIDByTitle returns the lowest id whose title equals title exactly.
func TaskIDByTitle(ctx context.Context, q Querier, title string) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		"SELECT id FROM Tasks WHERE title = ? ORDER BY id ASC LIMIT 1", title,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify("task by title", err)
	}
	return id, true, nil
}

// InsertFeedback appends a feedback row and returns its id.
func InsertFeedback(ctx context.Context, q Querier, f model.Feedback) (int64, error) {
	var userID any
	if f.UserID != nil {
		userID = *f.UserID
	}
	return insertReturningID(ctx, q, "insert feedback",
		"INSERT INTO Feedback (user_id, feedback) VALUES (?, ?)",
		userID, f.Feedback,
	)
}

// InsertBehavior appends a behavior row and returns its id.
func InsertBehavior(ctx context.Context, q Querier, b model.Behavior) (int64, error) {
	return insertReturningID(ctx, q, "insert behavior",
		"INSERT INTO Behavior (description) VALUES (?)",
		b.Description,
	)
}

// InsertChatSummary appends a chat summary row and returns its id.
func InsertChatSummary(ctx context.Context, q Querier, c model.ChatSummary) (int64, error) {
	return insertReturningID(ctx, q, "insert chat summary",
		"INSERT INTO ChatHistory (summary) VALUES (?)",
		c.Summary,
	)
}

func insertReturningID(ctx context.Context, q Querier, op, query string, args ...any) (int64, error) {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(op, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: last insert id: %w", op, err)
	}
	return id, nil
}

// nullString stores empty optional text as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
