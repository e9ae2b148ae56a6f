package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/isdelr/messagely-be/internal/common"
)

const maxBodyBytes = 64 << 10

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", common.ErrInvalidInput)
	}
	return nil
}
