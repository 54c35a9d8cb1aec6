package services

import (
	"context"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
	apperrors "github.com/zatekoja/underwritingcasedesk/backend/pkg/errors"
)

// PredictionService forwards applicant data to the risk model
type PredictionService struct {
	predictor providers.RiskPredictor
}

// NewPredictionService creates a new prediction service
func NewPredictionService(predictor providers.RiskPredictor) *PredictionService {
	return &PredictionService{predictor: predictor}
}

// Predict normalizes the applicant and returns the model's decision with its
// explanation. The call is made once; failures surface as external errors.
func (s *PredictionService) Predict(ctx context.Context, applicant validation.Record) (*entities.PredictionResult, error) {
	if len(applicant) == 0 {
		return nil, apperrors.NewValidationError("Applicant data is required")
	}

	req := &entities.PredictionRequest{Applicant: entities.NormalizeApplicant(applicant)}
	if id, ok := applicant["id"].(string); ok {
		req.CaseID = id
	}

	result, err := s.predictor.Predict(ctx, req)
	if err != nil {
		return nil, apperrors.NewExternalError("Prediction service unavailable", err)
	}
	return result, nil
}
