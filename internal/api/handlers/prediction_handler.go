package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
)

// PredictionService defines the prediction operation used by the handler.
type PredictionService interface {
	Predict(ctx context.Context, applicant validation.Record) (*entities.PredictionResult, error)
}

// PredictionHandler forwards applicant payloads to the risk model.
type PredictionHandler struct {
	service PredictionService
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(service PredictionService) *PredictionHandler {
	return &PredictionHandler{service: service}
}

// Predict handles POST /api/predict
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var applicant validation.Record
	if err := json.NewDecoder(r.Body).Decode(&applicant); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.service.Predict(r.Context(), applicant)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
