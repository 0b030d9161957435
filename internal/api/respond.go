package api

import (
	"encoding/json"
	"net/http"

	"pmconsole/internal/models"
)

// failure is the body of every error response; it has the same shape as a
// failed Result so the dashboard can treat both alike.
type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, failure{Message: message})
}

// writeResult sends a Result with 200 on success. A failure caused by the
// session gets 401, any other failure 400.
func writeResult[T any](w http.ResponseWriter, r models.Result[T]) {
	writeJSON(w, resultStatus(r.Success, r.Message), r)
}

func resultStatus(success bool, message string) int {
	switch {
	case success:
		return http.StatusOK
	case message == models.MsgNoToken || message == models.MsgSessionExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

const maxBodyBytes = 1 << 20
