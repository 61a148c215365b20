// Package tracker implements the task upsert-and-identity protocol and the
// append-only feedback, behavior and chat-summary operations on top of the
// store registry.
//
// Every exported method returns *apperr.Error on failure, so the HTTP and
// CLI surfaces only need to map error codes.
package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/apperr"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/hashtag"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/model"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/store"
)

// Recorder receives one audit line per completed write.
// Implemented by *audit.Log.
type Recorder interface {
	Record(msg string)
}

// Tagger derives hashtags from task content.
// Implemented by hashtag.Extractor.
type Tagger interface {
	Tags(text string) []string
}

type nopRecorder struct{}

func (nopRecorder) Record(string) {}

// Tracker is the service core. It is safe for concurrent use; SQLite
// serializes the writes.
type Tracker struct {
	stores   *store.Registry
	resolver Resolver
	validate model.ValidateOptions
	audit    Recorder
	tagger   Tagger
	logger   *zap.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the process logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// WithRecorder sets the audit sink. Default: discard.
func WithRecorder(r Recorder) Option {
	return func(t *Tracker) {
		t.audit = r
	}
}

// WithTagger replaces the hashtag extractor.
func WithTagger(tg Tagger) Option {
	return func(t *Tracker) {
		t.tagger = tg
	}
}

// WithIdentity selects the identity resolution mode. Default: IdentityByID.
func WithIdentity(mode IdentityMode) Option {
	return func(t *Tracker) {
		t.resolver.Mode = mode
	}
}

// WithDueDateLayout requires due dates to parse with the given time layout.
func WithDueDateLayout(layout string) Option {
	return func(t *Tracker) {
		t.validate.DueDateLayout = layout
	}
}

// New creates a Tracker over the given registry.
func New(stores *store.Registry, opts ...Option) *Tracker {
	t := &Tracker{
		stores:   stores,
		resolver: Resolver{Mode: IdentityByID},
		audit:    nopRecorder{},
		tagger:   hashtag.Extractor{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UpsertResult reports the outcome of UpsertTask.
type UpsertResult struct {
	ID      int64 `json:"id"`
	Created bool  `json:"created"`
}

// UpsertTask creates or updates a task.
//
// The task is validated before any storage access. Identity resolution and
// the write run in one transaction, so the row is either fully written or
// untouched. On update the returned id is the supplied id; on create it is
// the id the store assigned.
func (t *Tracker) UpsertTask(ctx context.Context, task model.Task) (UpsertResult, error) {
	if err := task.Validate(t.validate); err != nil {
		return UpsertResult{}, err
	}

	if task.Dependencies == nil {
		task.Dependencies = model.DependencyList{}
	}
	if task.Content != "" && strings.TrimSpace(task.Hashtags) == "" {
		task.Hashtags = hashtag.Join(t.tagger.Tags(task.Content))
	}

	var result UpsertResult
	err := t.stores.WithTx(ctx, store.StoreTasks, func(tx *sql.Tx) error {
		id, exists, err := t.resolver.Resolve(ctx, tx, task)
		if err != nil {
			return err
		}

		if exists {
			if err := store.UpdateTask(ctx, tx, id, task); err != nil {
				return err
			}
			result = UpsertResult{ID: id}
			return nil
		}

		newID, err := store.InsertTask(ctx, tx, task)
		if err != nil {
			return err
		}
		result = UpsertResult{ID: newID, Created: true}
		return nil
	})
	if err != nil {
		return UpsertResult{}, t.fail("upsert task", "Task could not be managed", err)
	}

	verb := "updated"
	if result.Created {
		verb = "created"
	}
	t.audit.Record(fmt.Sprintf("Task %d %s", result.ID, verb))
	t.logger.Debug("task upserted", zap.Int64("id", result.ID), zap.Bool("created", result.Created))

	return result, nil
}

// TaskExists reports whether a row with the given id is present.
func (t *Tracker) TaskExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.stores.WithConn(ctx, store.StoreTasks, func(conn *sql.Conn) error {
		var err error
		exists, err = store.TaskExists(ctx, conn, id)
		return err
	})
	if err != nil {
		return false, t.fail("task exists", "Task lookup failed", err)
	}
	return exists, nil
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	// Status, when non-empty, must equal a task's status exactly.
	Status string
}

// ListTasks returns matching tasks in insertion order.
func (t *Tracker) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	var tasks []model.Task
	err := t.stores.WithConn(ctx, store.StoreTasks, func(conn *sql.Conn) error {
		var err error
		tasks, err = store.ListTasks(ctx, conn, filter.Status)
		return err
	})
	if err != nil {
		return nil, t.fail("list tasks", "Failed to retrieve tasks", err)
	}
	return tasks, nil
}

// GetTask returns one task or a CodeNotFound error.
func (t *Tracker) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var task model.Task
	err := t.stores.WithConn(ctx, store.StoreTasks, func(conn *sql.Conn) error {
		var err error
		task, err = store.GetTask(ctx, conn, id)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return model.Task{}, apperr.NotFound("Task %d not found", id)
	}
	if err != nil {
		return model.Task{}, t.fail("get task", "Failed to retrieve task", err)
	}
	return task, nil
}

// SubmitFeedback appends a feedback entry and returns its id.
func (t *Tracker) SubmitFeedback(ctx context.Context, f model.Feedback) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := t.stores.WithConn(ctx, store.StoreFeedback, func(conn *sql.Conn) error {
		var err error
		id, err = store.InsertFeedback(ctx, conn, f)
		return err
	})
	if err != nil {
		return 0, t.fail("submit feedback", "Failed to submit feedback", err)
	}

	t.audit.Record(fmt.Sprintf("Feedback %d submitted by user %d", id, *f.UserID))
	return id, nil
}

// AddBehavior appends a behavior and returns its id.
func (t *Tracker) AddBehavior(ctx context.Context, b model.Behavior) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := t.stores.WithConn(ctx, store.StoreBehavior, func(conn *sql.Conn) error {
		var err error
		id, err = store.InsertBehavior(ctx, conn, b)
		return err
	})
	if err != nil {
		return 0, t.fail("add behavior", "Failed to add behavior", err)
	}

	t.audit.Record(fmt.Sprintf("Behavior %d added", id))
	return id, nil
}

// ListBehaviors returns every behavior in insertion order.
func (t *Tracker) ListBehaviors(ctx context.Context) ([]model.Behavior, error) {
	var behaviors []model.Behavior
	err := t.stores.WithConn(ctx, store.StoreBehavior, func(conn *sql.Conn) error {
		var err error
		behaviors, err = store.ListBehaviors(ctx, conn)
		return err
	})
	if err != nil {
		return nil, t.fail("list behaviors", "Failed to retrieve behaviors", err)
	}
	return behaviors, nil
}

// AddChatSummary appends a chat summary and returns its id.
func (t *Tracker) AddChatSummary(ctx context.Context, c model.ChatSummary) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := t.stores.WithConn(ctx, store.StoreMemgen, func(conn *sql.Conn) error {
		var err error
		id, err = store.InsertChatSummary(ctx, conn, c)
		return err
	})
	if err != nil {
		return 0, t.fail("add chat summary", "Failed to save chat summary", err)
	}

	t.audit.Record(fmt.Sprintf("Chat summary %d saved", id))
	return id, nil
}

// ListChatSummaries returns every chat summary in insertion order.
func (t *Tracker) ListChatSummaries(ctx context.Context) ([]model.ChatSummary, error) {
	var summaries []model.ChatSummary
	err := t.stores.WithConn(ctx, store.StoreMemgen, func(conn *sql.Conn) error {
		var err error
		summaries, err = store.ListChatSummaries(ctx, conn)
		return err
	})
	if err != nil {
		return nil, t.fail("list chat summaries", "Failed to retrieve chat history", err)
	}
	return summaries, nil
}

// fail converts a store error into a client-safe *apperr.Error and logs the
// raw cause. subject is the sanitized text shown to clients.
func (t *Tracker) fail(op, subject string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}

	if errors.Is(err, store.ErrIntegrity) {
		t.logger.Warn(op+" rejected by store", zap.Error(err))
		return apperr.Integrity("Database integrity error: "+subject+".", err)
	}

	t.logger.Error(op+" failed", zap.Error(err))
	return apperr.Storage("Server error: "+subject+".", err)
}
