package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/audit"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/auth"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/config"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/store"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/testutil"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/tracker"
)

const testSecret = "s3cret"

var auditEpoch = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

type testServer struct {
	handler http.Handler
	audit   *audit.Log
	tracker *tracker.Tracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)

	paths := map[string]string{}
	for name, file := range store.DefaultFiles() {
		paths[name] = filepath.Join(dir, file)
	}
	reg, err := store.NewRegistry(paths)
	require.NoError(t, err)
	require.NoError(t, reg.EnsureAll(context.Background()))
	t.Cleanup(func() { reg.Close() })

	log, err := audit.Open(filepath.Join(dir, audit.DefaultFileName),
		audit.WithClock(testutil.NewStepClock(auditEpoch, time.Second)))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	tr := tracker.New(reg, tracker.WithLogger(logger), tracker.WithRecorder(log))

	srv := NewServer(ServerParams{
		Config:  config.Default(),
		Logger:  logger,
		Tracker: tr,
		Gate:    auth.NewGate(testSecret, log, logger),
		Audit:   log,
		Stores:  reg,
		IDs:     testutil.NewFixedIDGenerator("req-1"),
	})

	return &testServer{handler: srv.Handler(), audit: log, tracker: tr}
}

// do sends a request with the test credential unless token is overridden.
func (ts *testServer) do(t *testing.T, method, path, body string, token ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	cred := testSecret
	if len(token) > 0 {
		cred = token[0]
	}
	if cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) auditText(t *testing.T) string {
	t.Helper()
	data, err := ts.audit.Read()
	require.NoError(t, err)
	return string(data)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRoot(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	golden(t).Assert(t, "root", rec.Body.Bytes())
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/", "")
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-42")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "client-42", rec.Header().Get(RequestIDHeader))
}

func TestGuard_RejectsWithoutSideEffects(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
	}{
		{"missing token on create", http.MethodPost, "/tasks", `{"title":"x","description":"d","due_date":"2026-01-01","status":"todo","priority":1}`, ""},
		{"wrong token on create", http.MethodPost, "/tasks", `{"title":"x","description":"d","due_date":"2026-01-01","status":"todo","priority":1}`, "guess"},
		{"feedback", http.MethodPost, "/feedback", `{"user_id":1,"feedback":"hi"}`, "guess"},
		{"behavior", http.MethodPost, "/behaviors", `{"description":"b"}`, ""},
		{"chat", http.MethodPost, "/chatHistory", `{"summary":"s"}`, ""},
		{"chat alias", http.MethodPost, "/chat_history", `{"summary":"s"}`, ""},
		{"list", http.MethodGet, "/tasks", "", "guess"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, tt.method, tt.path, tt.body, tt.token)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			golden(t).Assert(t, "unauthorized", rec.Body.Bytes())
			assert.Equal(t,
				"2026-03-14T09:26:53Z - Unauthorized access attempt: "+tt.method+" "+tt.path+"\n",
				ts.auditText(t))

			tasks, err := ts.tracker.ListTasks(context.Background(), tracker.TaskFilter{})
			require.NoError(t, err)
			assert.Empty(t, tasks)
			behaviors, err := ts.tracker.ListBehaviors(context.Background())
			require.NoError(t, err)
			assert.Empty(t, behaviors)
		})
	}
}

func TestGuard_PaddedTokenRejected(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer   "+testSecret+"   ")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	golden(t).Assert(t, "unauthorized", rec.Body.Bytes())
}

func TestGuard_SchemeCaseInsensitive(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "bearer "+testSecret)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpsertTask_CreateThenUpdate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/tasks",
		`{"title":"draft","description":"d","due_date":"2026-01-01","status":"todo","priority":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[upsertResponse](t, rec)
	assert.Equal(t, upsertResponse{ID: 1, Created: true, Message: "Task created successfully."}, created)

	rec = ts.do(t, http.MethodPost, "/tasks",
		`{"id":1,"title":"final","description":"d","due_date":"2026-01-02","status":"done","priority":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	updated := decode[upsertResponse](t, rec)
	assert.Equal(t, upsertResponse{ID: 1, Created: false, Message: "Task updated successfully."}, updated)

	rec = ts.do(t, http.MethodGet, "/tasks/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "final", body["title"])
	assert.Equal(t, "done", body["status"])
	assert.Equal(t, []any{}, body["dependencies"])

	assert.Equal(t,
		"2026-03-14T09:26:53Z - Task 1 created\n2026-03-14T09:26:54Z - Task 1 updated\n",
		ts.auditText(t))
}

func TestUpsertTask_UnknownIDCreates(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/tasks",
		`{"id":77,"title":"t","description":"d","due_date":"2026-01-01","status":"todo","priority":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	res := decode[upsertResponse](t, rec)
	assert.True(t, res.Created)
	assert.Equal(t, int64(1), res.ID)
}

func TestUpsertTask_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{
			"priority out of range",
			`{"title":"t","description":"d","due_date":"2026-01-01","status":"todo","priority":9}`,
			"priority must be between 1 and 5, got 9",
		},
		{
			"missing title",
			`{"description":"d","due_date":"2026-01-01","status":"todo","priority":2}`,
			"title is required",
		},
		{
			"dependency with separator",
			`{"title":"t","description":"d","due_date":"2026-01-01","status":"todo","priority":2,"dependencies":["a,b"]}`,
			"dependencies[0]",
		},
		{
			"malformed json",
			`{"title":`,
			"invalid request body: body is truncated",
		},
		{
			"fractional priority",
			`{"title":"t","description":"d","due_date":"2026-01-01","status":"todo","priority":2.5}`,
			"invalid request body: priority must be an integer",
		},
		{
			"string id",
			`{"id":"seven","title":"t","description":"d","due_date":"2026-01-01","status":"todo","priority":2}`,
			"invalid request body: id must be an integer",
		},
		{
			"array body",
			`[1,2]`,
			"invalid request body: body must be an object",
		},
		{
			"fractional dependency",
			`{"title":"t","description":"d","due_date":"2026-01-01","status":"todo","priority":2,"dependencies":[3.0,7]}`,
			"dependencies[0]: 3.0 is not an integer id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, http.MethodPost, "/tasks", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			detail := decode[errorBody](t, rec).Detail
			assert.Contains(t, detail, tt.detail)
			assert.NotContains(t, detail, "Go ")
			assert.NotContains(t, detail, "json:")
			assert.Empty(t, ts.auditText(t))
		})
	}
}

func TestListTasks(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{
		`{"title":"Write report","description":"quarterly numbers","due_date":"2026-03-31","status":"todo","priority":2,"area":"work","dependencies":[3,"design"]}`,
		`{"title":"Release","description":"cut the tag","due_date":"2026-04-02","status":"doing","priority":1,"content":"Ship it #Release then #release notes"}`,
	} {
		rec := ts.do(t, http.MethodPost, "/tasks", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := ts.do(t, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	golden(t).Assert(t, "task_list", rec.Body.Bytes())

	rec = ts.do(t, http.MethodGet, "/tasks?category=doing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	filtered := decode[[]map[string]any](t, rec)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Release", filtered[0]["title"])

	rec = ts.do(t, http.MethodGet, "/tasks?category=Doing", "")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestListTasks_EmptyIsArray(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/tasks", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetTask_Errors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/tasks/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task 99 not found", decode[errorBody](t, rec).Detail)

	rec = ts.do(t, http.MethodGet, "/tasks/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitFeedback(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/feedback", `{"user_id":42,"feedback":"helpful"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, createdResponse{ID: 1, Message: "Feedback submitted successfully."}, decode[createdResponse](t, rec))
	assert.Equal(t, "2026-03-14T09:26:53Z - Feedback 1 submitted by user 42\n", ts.auditText(t))

	rec = ts.do(t, http.MethodPost, "/feedback", `{"feedback":"anonymous"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Detail, "user_id is required")
}

func TestBehaviorsAndChatHistory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/behaviors", `{"description":"reviews inbox at 9"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Behavior added successfully.", decode[createdResponse](t, rec).Message)

	rec = ts.do(t, http.MethodPost, "/chatHistory", `{"summary":"planned sprint"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Chat summary saved successfully.", decode[createdResponse](t, rec).Message)

	rec = ts.do(t, http.MethodPost, "/chat_history", `{"summary":"reviewed goals"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2), decode[createdResponse](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/behaviors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `[{"id":1,"description":"reviews inbox at 9"}]`+"\n", rec.Body.String())

	for _, path := range []string{"/chatHistory", "/chat_history"} {
		rec = ts.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, `[{"id":1,"summary":"planned sprint"},{"id":2,"summary":"reviewed goals"}]`+"\n", rec.Body.String(), path)
	}

	rec = ts.do(t, http.MethodPost, "/chat-history", `{"summary":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogs(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/behaviors", `{"description":"b"}`)

	rec := ts.do(t, http.MethodGet, "/logs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "2026-03-14T09:26:53Z - Behavior 1 added\n", rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/download-logs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="actions.log"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "2026-03-14T09:26:53Z - Behavior 1 added\n", rec.Body.String())
}

func TestLogs_EmptyBeforeFirstWrite(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/logs", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestBackup(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/tasks",
		`{"title":"keep me","description":"d","due_date":"2026-01-01","status":"todo","priority":3}`)

	rec := ts.do(t, http.MethodGet, "/backup-dbs", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="backup-\d{8}T\d{6}Z\.zip"$`, rec.Header().Get("Content-Disposition"))

	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"tasks.db", "behaviors.db", "memgen.db"}, names)

	assert.Contains(t, ts.auditText(t), "Backup downloaded: backup-")
}
