package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/api/middleware"
	"github.com/scottkmcmillan/relate/internal/domain"
)

type ConversationHandler struct {
	store domain.ConversationStore
}

func NewConversationHandler(store domain.ConversationStore) *ConversationHandler {
	return &ConversationHandler{store: store}
}

type createConversationResponse struct {
	ID string `json:"id"`
}

func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := uuid.New()
	if err := h.store.Create(r.Context(), id, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, createConversationResponse{ID: id.String()})
}

func (h *ConversationHandler) History(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}

	ok, err := h.store.Exists(r.Context(), id, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to look up conversation")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	turns, err := h.store.RecentTurns(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": id.String(),
		"turns":           turns,
	})
}
