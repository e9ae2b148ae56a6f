package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/messagely-be/internal/api/respond"
	"github.com/isdelr/messagely-be/internal/auth"
	"github.com/isdelr/messagely-be/internal/common"
	"github.com/isdelr/messagely-be/internal/models"
	"github.com/isdelr/messagely-be/internal/services"
)

// MessageHandler handles HTTP requests for single messages.
type MessageHandler struct {
	service services.MessageServiceProvider
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(service services.MessageServiceProvider) *MessageHandler {
	return &MessageHandler{service: service}
}

// Get handles GET /messages/{id}. Only the sender or recipient may see it.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	load := func(ctx context.Context) (models.MessageDetail, error) {
		return h.service.Get(ctx, id)
	}

	msg, err := auth.Authorize(r.Context(), load, auth.RequireParticipant)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"message": msg})
}

// Send handles POST /messages: {to_username, body} => 201 {message}.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	from, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.Error(w, r, common.ErrUnauthenticated)
		return
	}

	var payload services.SendInput
	if err := decodeJSON(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	msg, err := h.service.Send(r.Context(), from, payload)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]interface{}{"message": msg})
}

// MarkRead handles POST /messages/{id}/read. Only the recipient may call it.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.Error(w, r, common.ErrUnauthenticated)
		return
	}

	msg, err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message": map[string]interface{}{"id": msg.ID, "read_at": msg.ReadAt},
	})
}
