package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/api/middleware"
	"github.com/scottkmcmillan/relate/internal/service"
	"github.com/scottkmcmillan/relate/internal/store"
)

type ProvenanceHandler struct {
	tracker *service.ProvenanceTracker
}

func NewProvenanceHandler(tracker *service.ProvenanceTracker) *ProvenanceHandler {
	return &ProvenanceHandler{tracker: tracker}
}

// Get returns the full provenance chain for a response: its cited sources
// with markers, inter-source relationships, and the synthesis path.
func (h *ProvenanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	responseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid response id")
		return
	}

	chain, err := h.tracker.Chain(r.Context(), responseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "response not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load provenance")
		return
	}

	writeJSON(w, http.StatusOK, chain)
}
