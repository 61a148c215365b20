package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/model"
)

const taskColumns = `id, title, description, due_date, status, priority, area, dependencies, content, hashtags`

// ListTasks returns tasks in insertion order. When status is non-empty only
// rows whose status equals it exactly (case-sensitive) are returned.
//
// Returns an empty slice (not nil) if no rows match.
func ListTasks(ctx context.Context, q Querier, status string) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM Tasks`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("query tasks", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// GetTask retrieves a single task by id.
// Returns an error wrapping ErrNotFound if no row has that id.
func GetTask(ctx context.Context, q Querier, id int64) (model.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM Tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// ListBehaviors returns all behaviors in insertion order.
func ListBehaviors(ctx context.Context, q Querier) ([]model.Behavior, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, description FROM Behavior ORDER BY id ASC`)
	if err != nil {
		return nil, classify("query behaviors", err)
	}
	defer rows.Close()

	out := []model.Behavior{}
	for rows.Next() {
		var b model.Behavior
		if err := rows.Scan(&b.ID, &b.Description); err != nil {
			return nil, fmt.Errorf("scan behavior: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate behaviors: %w", err)
	}
	return out, nil
}

// ListChatSummaries returns all chat summaries in insertion order.
func ListChatSummaries(ctx context.Context, q Querier) ([]model.ChatSummary, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, summary FROM ChatHistory ORDER BY id ASC`)
	if err != nil {
		return nil, classify("query chat history", err)
	}
	defer rows.Close()

	out := []model.ChatSummary{}
	for rows.Next() {
		var c model.ChatSummary
		if err := rows.Scan(&c.ID, &c.Summary); err != nil {
			return nil, fmt.Errorf("scan chat summary: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat history: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row in taskColumns order and rebuilds the
// dependency list from its flat text form.
func scanTask(row rowScanner) (model.Task, error) {
	var (
		t            model.Task
		id           int64
		area         sql.NullString
		dependencies sql.NullString
		content      sql.NullString
		hashtags     sql.NullString
	)

	err := row.Scan(
		&id,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.Status,
		&t.Priority,
		&area,
		&dependencies,
		&content,
		&hashtags,
	)
	if err != nil {
		return model.Task{}, classify("scan task", err)
	}

	t.ID = &id
	t.Area = area.String
	t.Dependencies = model.DecodeDependencies(dependencies.String)
	t.Content = content.String
	t.Hashtags = hashtags.String
	return t, nil
}
