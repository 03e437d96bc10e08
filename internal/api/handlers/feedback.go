package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/scottkmcmillan/relate/internal/api/middleware"
	"github.com/scottkmcmillan/relate/internal/service"
)

type FeedbackHandler struct {
	svc *service.FeedbackService
}

func NewFeedbackHandler(svc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type createFeedbackRequest struct {
	ResponseID string `json:"response_id"`
	Helpful    bool   `json:"helpful"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	responseID, err := uuid.Parse(req.ResponseID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid response_id")
		return
	}

	feedback, err := h.svc.Submit(r.Context(), responseID, req.Helpful, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRating),
			errors.Is(err, service.ErrFeedbackConflicts):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUnknownResponse):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record feedback")
		}
		return
	}

	writeJSON(w, http.StatusCreated, feedback)
}
