package api

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/apperr"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/backup"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/model"
	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/tracker"
)

type messageResponse struct {
	Message string `json:"message"`
}

type upsertResponse struct {
	ID      int64  `json:"id"`
	Created bool   `json:"created"`
	Message string `json:"message"`
}

type createdResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, messageResponse{
		Message: fmt.Sprintf("Welcome to the ECO-FMM-FASTAPI v%s API!", s.version),
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tracker.ListTasks(r.Context(), tracker.TaskFilter{
		Status: r.URL.Query().Get("category"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, r, apperr.Validation("invalid task id", fmt.Sprintf("%q is not an integer", r.PathValue("id"))))
		return
	}

	task, err := s.tracker.GetTask(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, task)
}

func (s *Server) handleUpsertTask(w http.ResponseWriter, r *http.Request) {
	var task model.Task
	if err := decodeJSON(w, r, &task); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.tracker.UpsertTask(r.Context(), task)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	msg := "Task updated successfully."
	if res.Created {
		msg = "Task created successfully."
	}
	s.writeJSON(w, r, http.StatusCreated, upsertResponse{ID: res.ID, Created: res.Created, Message: msg})
}

func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var f model.Feedback
	if err := decodeJSON(w, r, &f); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.tracker.SubmitFeedback(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, createdResponse{ID: id, Message: "Feedback submitted successfully."})
}

func (s *Server) handleAddBehavior(w http.ResponseWriter, r *http.Request) {
	var b model.Behavior
	if err := decodeJSON(w, r, &b); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.tracker.AddBehavior(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, createdResponse{ID: id, Message: "Behavior added successfully."})
}

func (s *Server) handleListBehaviors(w http.ResponseWriter, r *http.Request) {
	behaviors, err := s.tracker.ListBehaviors(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, behaviors)
}

func (s *Server) handleAddChatSummary(w http.ResponseWriter, r *http.Request) {
	var c model.ChatSummary
	if err := decodeJSON(w, r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.tracker.AddChatSummary(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, createdResponse{ID: id, Message: "Chat summary saved successfully."})
}

func (s *Server) handleListChatSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.tracker.ListChatSummaries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, summaries)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	data, err := s.audit.Read()
	if err != nil {
		s.writeError(w, r, apperr.Storage("Failed to read logs.", err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDownloadLogs(w http.ResponseWriter, r *http.Request) {
	data, err := s.audit.Read()
	if err != nil {
		s.writeError(w, r, apperr.Storage("Failed to read logs.", err))
		return
	}

	name := filepath.Base(s.audit.Path())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	stores, err := s.stores.Stores()
	if err != nil {
		s.writeError(w, r, apperr.Storage("Backup failed.", err))
		return
	}
	sources := make([]backup.Source, len(stores))
	for i, st := range stores {
		sources[i] = st
	}

	// Buffered: no header goes out until every snapshot succeeded.
	now := time.Now()
	var buf bytes.Buffer
	if err := backup.Write(r.Context(), &buf, sources, now); err != nil {
		s.writeError(w, r, apperr.Storage("Backup failed.", err))
		return
	}

	name := backup.FileName(now)
	s.audit.Record("Backup downloaded: " + name)
	loggerFrom(r.Context(), s.logger).Info("backup created", zap.String("file", name), zap.Int("bytes", buf.Len()))

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
