package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorBody is the flat error envelope the protocol fixes for transport
// failures. Conflicts are data, not transport errors, and never use it.
type errorBody struct {
	Error string `json:"error"`
}

// WriteError writes the protocol's error envelope with the given status.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorBody{Error: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// WriteUnauthorized writes the 401 envelope.
func WriteUnauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, "unauthorized")
}

// WriteBadRequest writes the 400 envelope.
func WriteBadRequest(w http.ResponseWriter) {
	WriteError(w, http.StatusBadRequest, "bad request")
}
