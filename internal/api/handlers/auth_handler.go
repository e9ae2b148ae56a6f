package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/messagely-be/internal/api/respond"
	"github.com/isdelr/messagely-be/internal/common"
	"github.com/isdelr/messagely-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles login and registration.
type AuthHandler struct {
	service services.AuthServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider) *AuthHandler {
	return &AuthHandler{service: service}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /auth/login: {username, password} => {token, message}.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	res, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
		}
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, res)
}

// Register handles POST /auth/register: registers, logs in, and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterInput
	if err := decodeJSON(w, r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	res, err := h.service.Register(r.Context(), payload)
	if err != nil {
		log.Info().Err(err).Str("username", payload.Username).Msg("Registration rejected")
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, res)
}
