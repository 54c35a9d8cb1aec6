package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/application/services"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
	apperrors "github.com/zatekoja/underwritingcasedesk/backend/pkg/errors"
)

type MockRiskPredictor struct {
	mock.Mock
}

func (m *MockRiskPredictor) Predict(ctx context.Context, req *entities.PredictionRequest) (*entities.PredictionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PredictionResult), args.Error(1)
}

func TestPredictionService_NormalizesPayload(t *testing.T) {
	predictor := new(MockRiskPredictor)
	predictor.On("Predict", mock.Anything, mock.MatchedBy(func(req *entities.PredictionRequest) bool {
		return req.CaseID == "c1" && req.Applicant["smoking"] == 1 && req.Applicant["drug_type"] == "warning"
	})).Return(&entities.PredictionResult{Decision: "Accepted"}, nil)

	result, err := services.NewPredictionService(predictor).Predict(context.Background(), validation.Record{
		"id":        "c1",
		"smoking":   true,
		"drug_type": "WARNING",
	})
	require.NoError(t, err)
	assert.Equal(t, "Accepted", result.Decision)
	predictor.AssertExpectations(t)
}

func TestPredictionService_Errors(t *testing.T) {
	predictor := new(MockRiskPredictor)
	predictor.On("Predict", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	service := services.NewPredictionService(predictor)

	_, err := service.Predict(context.Background(), validation.Record{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = service.Predict(context.Background(), validation.Record{"age": 30.0})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	predictor.AssertNumberOfCalls(t, "Predict", 1)
}
