// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hotlabel/hotlabel/internal/domain/profile"
)

// SessionsHandler handles session and profile requests.
type SessionsHandler struct {
	deps Dependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// HandleInitSession handles POST /v1/users/sessions requests.
func (h *SessionsHandler) HandleInitSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.init_session"
	var req profile.InitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if req.PublisherID == "" {
		req.PublisherID = publisherID(r)
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.InitSession(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", nil)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleUpdateProfile handles PATCH /v1/users/profile/{session_id} requests.
func (h *SessionsHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_profile"
	sessionID := r.PathValue("session_id")

	var req profile.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}
	if req.PublisherID == "" {
		req.PublisherID = publisherID(r)
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%s: %w: %w", op, ErrBadRequest, err))
		return
	}

	p, err := h.deps.UpdateProfile(r.Context(), sessionID, req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", nil)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: session %s", ErrNotFound, sessionID))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUserStats handles GET /v1/users/stats requests.
func (h *SessionsHandler) HandleUserStats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing session_id"))
		return
	}

	stats, err := h.deps.SessionStats(r.Context(), publisherID(r), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", nil)
		return
	}
	if stats == nil {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%w: session %s", ErrNotFound, sessionID))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
