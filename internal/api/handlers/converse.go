package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/api/middleware"
	"github.com/scottkmcmillan/relate/internal/domain"
	"github.com/scottkmcmillan/relate/internal/service"
	"go.uber.org/zap"
)

type ConverseHandler struct {
	svc    *service.ConverseService
	logger *zap.Logger
}

func NewConverseHandler(svc *service.ConverseService, logger *zap.Logger) *ConverseHandler {
	return &ConverseHandler{svc: svc, logger: logger}
}

type converseRequest struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

// Converse streams the response as server-sent events: source events first,
// then content deltas, then a single complete or error event.
func (h *ConverseHandler) Converse(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req converseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation_id")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	coord, err := h.svc.Converse(r.Context(), service.ConverseRequest{
		UserID:         user.ID,
		ConversationID: conversationID,
		Query:          req.Query,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQueryEmpty),
			errors.Is(err, domain.ErrQueryTooLong):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUnknownConversation):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("converse failed to start", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start response")
		}
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range coord.Events() {
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("failed to marshal stream event", zap.Error(err))
			continue
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
		flusher.Flush()
	}
}
