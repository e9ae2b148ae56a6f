// Package respond writes JSON bodies and maps domain errors onto HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/messagely-be/internal/common"
	"github.com/rs/zerolog/hlog"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// ErrorBody is the structured error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Cases is checked in order, so more specific errors come first.
var Cases = []ErrorCase{
	{Err: common.ErrInvalidInput, Status: http.StatusBadRequest},
	{Err: common.ErrInvalidCredentials, Status: http.StatusBadRequest, Message: "Invalid username/password"},
	{Err: common.ErrDuplicateIdentity, Status: http.StatusBadRequest, Message: "Username already taken"},
	{Err: common.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "Invalid auth token"},
	{Err: common.ErrUnauthenticated, Status: http.StatusUnauthorized, Message: "Unauthenticated"},
	{Err: common.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "Unauthorized"},
	{Err: common.ErrNotFound, Status: http.StatusNotFound, Message: "Not found"},
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error resolves err against Cases and writes the matching response. Anything
// unknown is logged and reported as a 500 without detail.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	for _, cs := range Cases {
		if errors.Is(err, cs.Err) {
			msg := cs.Message
			if msg == "" {
				// validation messages are safe to echo back
				msg = err.Error()
			}
			hlog.FromRequest(r).Debug().Err(err).Int("status", cs.Status).Msg("Request rejected")
			JSON(w, cs.Status, ErrorBody{Error: ErrorDetail{Message: msg, Status: cs.Status}})
			return
		}
	}

	hlog.FromRequest(r).Error().Err(err).Msg("Unhandled error")
	JSON(w, http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}})
}
