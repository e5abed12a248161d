// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/hotlabel/hotlabel/internal/app"
	"github.com/hotlabel/hotlabel/internal/domain/model"
	"github.com/hotlabel/hotlabel/internal/domain/selector"
)

// TasksHandler handles task fetch and submission requests.
type TasksHandler struct {
	deps Dependencies
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(deps Dependencies) *TasksHandler {
	return &TasksHandler{deps: deps}
}

// HandleNextTask handles GET /v1/tasks/next requests. Responds 204 when
// there is no session or nothing to serve.
func (h *TasksHandler) HandleNextTask(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing session_id"))
		return
	}

	view, err := h.deps.NextTask(r.Context(), selector.NextRequest{
		SessionID:   sessionID,
		PublisherID: publisherID(r),
		Language:    q.Get("language"),
		Category:    q.Get("category"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", nil)
		return
	}
	if view == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// submitRequest mirrors the OpenAPI schema for POST /v1/tasks/{task_id}/submit.
type submitRequest struct {
	SessionID   string `json:"session_id" validate:"required"`
	Response    string `json:"response" validate:"required"`
	TimeSpentMS int    `json:"time_spent_ms" validate:"gte=0"`
}

type submitResponse struct {
	Success           bool         `json:"success"`
	ValidationID      string       `json:"validation_id,omitempty"`
	QualityScore      float64      `json:"quality_score"`
	Issues            []string     `json:"issues_detected,omitempty"`
	Feedback          string       `json:"feedback,omitempty"`
	Reward            model.Reward `json:"reward"`
	NextTaskAvailable bool         `json:"next_task_available"`
}

// HandleSubmit handles POST /v1/tasks/{task_id}/submit requests. Validation
// warnings reduce the quality score instead of failing the request; only a
// missing assignment yields success=false.
func (h *TasksHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_result"
	taskID := r.PathValue("task_id")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.SubmitResult(r.Context(), service.SubmitRequest{
		TaskID:      taskID,
		SessionID:   req.SessionID,
		PublisherID: publisherID(r),
		Response:    req.Response,
		TimeSpentMS: req.TimeSpentMS,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", nil)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Success:           res.Success,
		ValidationID:      res.ValidationID,
		QualityScore:      res.QualityScore,
		Issues:            res.Issues,
		Feedback:          res.Feedback,
		Reward:            res.Reward,
		NextTaskAvailable: res.NextTaskAvailable,
	})
}

// HandleBatch handles GET /v1/tasks/batch requests. Responds 204 when the
// catalog has nothing matching the filters.
func (h *TasksHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing session_id"))
		return
	}

	count := 10
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid count"))
			return
		}
		count = n
	}

	batch, err := h.deps.BatchTasks(r.Context(), selector.BatchRequest{
		SessionID:   sessionID,
		PublisherID: publisherID(r),
		Count:       count,
		Language:    q.Get("language"),
		Category:    q.Get("category"),
		TaskType:    q.Get("task_type"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", nil)
		return
	}
	if batch == nil {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: session %s", ErrNotFound, sessionID))
		return
	}
	if len(batch.Tasks) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}
