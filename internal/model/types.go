// Package model defines the records tracked by the service and their
// validation rules.
package model

// Task is a unit of work. It is created and updated through the same upsert
// entry point; see tracker.Tracker.UpsertTask.
type Task struct {
	ID           *int64         `json:"id"` // nil on input means "create"
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	DueDate      string         `json:"due_date"`
	Status       string         `json:"status"` // also used as category / "Behavioral Prompt" marker
	Priority     int            `json:"priority"` // 1 (most urgent) .. 5
	Area         string         `json:"area,omitempty"`
	Dependencies DependencyList `json:"dependencies"`
	Content      string         `json:"content,omitempty"`
	Hashtags     string         `json:"hashtags,omitempty"`
}

// Feedback is an append-only note left by a user.
type Feedback struct {
	ID       int64  `json:"id"`
	UserID   *int64 `json:"user_id"`
	Feedback string `json:"feedback"`
}

// Behavior is an append-only behavioral observation.
type Behavior struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

// ChatSummary is an append-only summary of a past conversation.
type ChatSummary struct {
	ID      int64  `json:"id"`
	Summary string `json:"summary"`
}

// Priority bounds, inclusive.
const (
	MinPriority = 1
	MaxPriority = 5
)

// Int64 returns a pointer to v. Handy for Task.ID and Feedback.UserID literals.
func Int64(v int64) *int64 {
	return &v
}
