package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/apperr"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/model"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/store"
)

// recorder captures audit lines in memory.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) Record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, msg)
}

func (r *recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func newRegistry(t *testing.T, dir string) *store.Registry {
	t.Helper()
	paths := map[string]string{}
	for name, file := range store.DefaultFiles() {
		paths[name] = filepath.Join(dir, file)
	}
	reg, err := store.NewRegistry(paths)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func newTestTracker(t *testing.T, opts ...Option) (*Tracker, *recorder) {
	t.Helper()
	reg := newRegistry(t, t.TempDir())
	require.NoError(t, reg.EnsureAll(context.Background()))

	rec := &recorder{}
	opts = append([]Option{WithRecorder(rec), WithLogger(zaptest.NewLogger(t))}, opts...)
	return New(reg, opts...), rec
}

func sampleTask(title string) model.Task {
	return model.Task{
		Title:       title,
		Description: "about " + title,
		DueDate:     "2026-11-30",
		Status:      "todo",
		Priority:    3,
	}
}

func TestUpsertTask_CreateWithoutID(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	res, err := tr.UpsertTask(ctx, sampleTask("Write report"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Positive(t, res.ID)

	got, err := tr.GetTask(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write report", got.Title)
	assert.Equal(t, []string{fmt.Sprintf("Task %d created", res.ID)}, rec.Lines())
}

func TestUpsertTask_UpdateExisting(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	created, err := tr.UpsertTask(ctx, sampleTask("draft"))
	require.NoError(t, err)

	update := sampleTask("final")
	update.ID = model.Int64(created.ID)
	update.Status = "done"
	update.Priority = 1

	res, err := tr.UpsertTask(ctx, update)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, created.ID, res.ID)

	tasks, err := tr.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "final", tasks[0].Title)
	assert.Equal(t, "done", tasks[0].Status)
	assert.Equal(t, 1, tasks[0].Priority)

	assert.Equal(t, fmt.Sprintf("Task %d updated", created.ID), rec.Lines()[1])
}

func TestUpsertTask_UnknownIDCreatesWithStoreAssignedID(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	task := sampleTask("stale")
	task.ID = model.Int64(999)

	res, err := tr.UpsertTask(ctx, task)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.NotEqual(t, int64(999), res.ID)

	exists, err := tr.TaskExists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, []string{fmt.Sprintf("Task %d created", res.ID)}, rec.Lines())
}

func TestUpsertTask_ValidationBeforeStorage(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.Task)
	}{
		{"priority above range", func(task *model.Task) { task.Priority = 6 }},
		{"priority zero", func(task *model.Task) { task.Priority = 0 }},
		{"missing title", func(task *model.Task) { task.Title = "" }},
		{"missing status", func(task *model.Task) { task.Status = " " }},
		{"separator in dependency", func(task *model.Task) { task.Dependencies = model.DependencyList{"a,b"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := sampleTask("bad")
			tt.mutate(&task)

			_, err := tr.UpsertTask(ctx, task)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.CodeValidation), "got %v", err)
		})
	}

	tasks, err := tr.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, rec.Lines())
}

func TestUpsertTask_ValidationSkipsUnavailableStore(t *testing.T) {
	// Validation must reject before the store is touched, so a broken
	// registry still yields a validation error.
	reg := newRegistry(t, filepath.Join(t.TempDir(), "missing"))
	tr := New(reg)

	task := sampleTask("bad")
	task.Priority = 6

	_, err := tr.UpsertTask(context.Background(), task)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestUpsertTask_DueDateLayout(t *testing.T) {
	tr, _ := newTestTracker(t, WithDueDateLayout("2006-01-02"))

	task := sampleTask("dated")
	task.DueDate = "soon"

	_, err := tr.UpsertTask(context.Background(), task)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestUpsertTask_DependenciesRoundTrip(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	task := sampleTask("chained")
	task.Dependencies = model.DependencyList{"3", "7", "12"}

	res, err := tr.UpsertTask(ctx, task)
	require.NoError(t, err)

	got, err := tr.GetTask(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DependencyList{"3", "7", "12"}, got.Dependencies)

	plain, err := tr.UpsertTask(ctx, sampleTask("no deps"))
	require.NoError(t, err)
	got, err = tr.GetTask(ctx, plain.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Dependencies)
	assert.Empty(t, got.Dependencies)
}

func TestUpsertTask_DerivesHashtags(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	task := sampleTask("tagged")
	task.Content = "Prepare #Launch notes and #review with #launch team"

	res, err := tr.UpsertTask(ctx, task)
	require.NoError(t, err)

	got, err := tr.GetTask(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "#launch #review", got.Hashtags)
}

func TestUpsertTask_KeepsExplicitHashtags(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	task := sampleTask("manual")
	task.Content = "#ignored"
	task.Hashtags = "#chosen"

	res, err := tr.UpsertTask(ctx, task)
	require.NoError(t, err)

	got, err := tr.GetTask(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "#chosen", got.Hashtags)
}

type fixedTagger []string

func (f fixedTagger) Tags(string) []string { return f }

func TestUpsertTask_CustomTagger(t *testing.T) {
	tr, _ := newTestTracker(t, WithTagger(fixedTagger{"#a", "#b"}))
	ctx := context.Background()

	task := sampleTask("custom")
	task.Content = "anything"

	res, err := tr.UpsertTask(ctx, task)
	require.NoError(t, err)

	got, err := tr.GetTask(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "#a #b", got.Hashtags)
}

func TestUpsertTask_TitleIdentity(t *testing.T) {
	tr, _ := newTestTracker(t, WithIdentity(IdentityByTitle))
	ctx := context.Background()

	first, err := tr.UpsertTask(ctx, sampleTask("Weekly review"))
	require.NoError(t, err)

	again := sampleTask("Weekly review")
	again.Status = "done"
	second, err := tr.UpsertTask(ctx, again)
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)

	// Titles match exactly; a different case is a different task.
	other, err := tr.UpsertTask(ctx, sampleTask("weekly review"))
	require.NoError(t, err)
	assert.True(t, other.Created)
}

func TestUpsertTask_DefaultIdentityIgnoresTitle(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	a, err := tr.UpsertTask(ctx, sampleTask("same"))
	require.NoError(t, err)
	b, err := tr.UpsertTask(ctx, sampleTask("same"))
	require.NoError(t, err)

	assert.True(t, b.Created)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestUpsertTask_ConcurrentCreatesGetDistinctIDs(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	const n = 10
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := tr.UpsertTask(ctx, sampleTask(fmt.Sprintf("parallel %d", i)))
			if assert.NoError(t, err) {
				ids <- res.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Len(t, rec.Lines(), n)
}

func TestUpsertTask_StorageErrorIsSanitized(t *testing.T) {
	reg := newRegistry(t, filepath.Join(t.TempDir(), "missing"))
	rec := &recorder{}
	tr := New(reg, WithRecorder(rec))

	_, err := tr.UpsertTask(context.Background(), sampleTask("nowhere"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeStorage))
	assert.Equal(t, "Server error: Task could not be managed.", apperr.DetailOf(err))
	assert.True(t, errors.Is(err, store.ErrStoreUnavailable))
	assert.Empty(t, rec.Lines())
}

func TestFail_IntegrityMapping(t *testing.T) {
	tr := New(nil)
	cause := fmt.Errorf("insert task: %w", store.ErrIntegrity)

	err := tr.fail("upsert task", "Task could not be managed", cause)
	assert.True(t, apperr.Is(err, apperr.CodeIntegrity))
	assert.Equal(t, "Database integrity error: Task could not be managed.", apperr.DetailOf(err))
}

func TestFail_PassesThroughCategorized(t *testing.T) {
	tr := New(nil)
	original := apperr.NotFound("Task %d not found", 4)

	assert.Same(t, original, tr.fail("op", "subject", original))
}

func TestListTasks_StatusFilter(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	for _, status := range []string{"done", "todo", "Done", "done"} {
		task := sampleTask("status " + status)
		task.Status = status
		_, err := tr.UpsertTask(ctx, task)
		require.NoError(t, err)
	}

	done, err := tr.ListTasks(ctx, TaskFilter{Status: "done"})
	require.NoError(t, err)
	assert.Len(t, done, 2)

	all, err := tr.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := tr.ListTasks(ctx, TaskFilter{Status: "Behavioral Prompt"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetTask_NotFound(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.GetTask(context.Background(), 404)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	assert.Equal(t, "Task 404 not found", apperr.DetailOf(err))
}

func TestSubmitFeedback(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.SubmitFeedback(ctx, model.Feedback{UserID: model.Int64(7), Feedback: "useful"})
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, []string{fmt.Sprintf("Feedback %d submitted by user 7", id)}, rec.Lines())

	_, err = tr.SubmitFeedback(ctx, model.Feedback{Feedback: "who am i"})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
	assert.Len(t, rec.Lines(), 1)
}

func TestBehaviors(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	for _, d := range []string{"reviews inbox at 9", "skips lunch on Mondays"} {
		_, err := tr.AddBehavior(ctx, model.Behavior{Description: d})
		require.NoError(t, err)
	}

	_, err := tr.AddBehavior(ctx, model.Behavior{})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	behaviors, err := tr.ListBehaviors(ctx)
	require.NoError(t, err)
	require.Len(t, behaviors, 2)
	assert.Equal(t, "reviews inbox at 9", behaviors[0].Description)
	assert.Equal(t, "Behavior 1 added", rec.Lines()[0])
}

func TestChatSummaries(t *testing.T) {
	tr, rec := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.AddChatSummary(ctx, model.ChatSummary{Summary: "planned the sprint"})
	require.NoError(t, err)

	summaries, err := tr.ListChatSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, id, summaries[0].ID)
	assert.Equal(t, fmt.Sprintf("Chat summary %d saved", id), rec.Lines()[0])
}

func TestParseIdentityMode(t *testing.T) {
	mode, err := ParseIdentityMode("")
	require.NoError(t, err)
	assert.Equal(t, IdentityByID, mode)

	mode, err = ParseIdentityMode("title")
	require.NoError(t, err)
	assert.Equal(t, IdentityByTitle, mode)

	_, err = ParseIdentityMode("uuid")
	assert.Error(t, err)
}
