package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/messagely-be/internal/api/respond"
	"github.com/isdelr/messagely-be/internal/services"
)

// UserHandler serves the user directory and per-user mailboxes.
type UserHandler struct {
	users    services.UserServiceProvider
	messages services.MessageServiceProvider
	events   services.EventServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users services.UserServiceProvider, messages services.MessageServiceProvider, events services.EventServiceProvider) *UserHandler {
	return &UserHandler{users: users, messages: messages, events: events}
}

// GetAll handles GET /users.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.GetAll(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

// Get handles GET /users/{username}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// MessagesTo handles GET /users/{username}/to.
func (h *UserHandler) MessagesTo(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messages.MessagesTo(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// MessagesFrom handles GET /users/{username}/from.
func (h *UserHandler) MessagesFrom(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messages.MessagesFrom(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

// Events handles GET /users/{username}/events, the user's audit trail.
func (h *UserHandler) Events(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 20 // Default limit
	}

	events, err := h.events.GetRecentForUser(r.Context(), chi.URLParam(r, "username"), limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
