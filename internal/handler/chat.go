package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/set-night/shopassist/internal/domain"
	"github.com/set-night/shopassist/internal/middleware"
)

func (h *Handler) ChatState(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientIDFromContext(r.Context())
	JSON(w, http.StatusOK, h.widget.Mount(r.Context(), clientID))
}

type sendRequest struct {
	Text string `json:"text"`
}

// SendMessage accepts a user message. The reply arrives on the event stream, or in the
// response body when the request asks to wait.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientIDFromContext(r.Context())

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	task, err := h.widget.SendMessage(r.Context(), clientID, req.Text)
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "text is required")
		return
	case errors.Is(err, domain.ErrRateLimited):
		JSON(w, http.StatusAccepted, map[string]bool{"dropped": true})
		return
	case errors.Is(err, domain.ErrSendInFlight):
		Error(w, http.StatusConflict, "a message is already being answered")
		return
	case err != nil:
		slog.Error("send message", "error", err, "client_id", clientID)
		Error(w, http.StatusInternalServerError, "send failed")
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		if err := task.Wait(r.Context()); err != nil && r.Context().Err() != nil {
			return
		}
		JSON(w, http.StatusOK, h.widget.Mount(r.Context(), clientID))
		return
	}

	JSON(w, http.StatusAccepted, h.widget.Mount(r.Context(), clientID))
}

func (h *Handler) ResetChat(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientIDFromContext(r.Context())
	JSON(w, http.StatusOK, h.widget.Reset(r.Context(), clientID))
}
