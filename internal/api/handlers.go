package api

import (
	"encoding/json"
	"net/http"

	"github.com/fieldsafe/sitesync/internal/reconcile"
	"github.com/fieldsafe/sitesync/internal/store"
)

// Handler implements the API handlers
type Handler struct {
	store      store.Store
	reconciler *reconcile.Reconciler
	verifier   TokenVerifier
	version    string
}

// NewHandler creates a new Handler over the store and reconciler.
func NewHandler(s store.Store, r *reconcile.Reconciler, verifier TokenVerifier, version string) *Handler {
	return &Handler{
		store:      s,
		reconciler: r,
		verifier:   verifier,
		version:    version,
	}
}

// healthResponse is the health endpoint body.
type healthResponse struct {
	Status  string       `json:"status"`
	Version string       `json:"version"`
	Counts  *store.Stats `json:"counts"`
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := healthResponse{
		Status:  "healthy",
		Version: h.version,
		Counts:  stats,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
