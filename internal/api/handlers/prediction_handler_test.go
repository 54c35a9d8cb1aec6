package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/api/handlers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
	apperrors "github.com/zatekoja/underwritingcasedesk/backend/pkg/errors"
)

type MockPredictionService struct {
	mock.Mock
}

func (m *MockPredictionService) Predict(ctx context.Context, applicant validation.Record) (*entities.PredictionResult, error) {
	args := m.Called(ctx, applicant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PredictionResult), args.Error(1)
}

func TestPredictionHandler_Predict(t *testing.T) {
	svc := new(MockPredictionService)
	handler := handlers.NewPredictionHandler(svc)

	score := 0.82
	svc.On("Predict", mock.Anything, mock.MatchedBy(func(rec validation.Record) bool {
		return rec["age"] == 52.0 && rec["smoking"] == true
	})).Return(&entities.PredictionResult{
		Decision: "Accepted",
		Score:    &score,
		Explanation: &entities.Explanation{
			GroupedImpacts: map[string]float64{"lifestyle": -0.2},
			TopFeatures:    []entities.FeatureImpact{{Feature: "smoking", Impact: -0.2}},
			TargetClass:    "Accepted",
		},
	}, nil)

	req := httptest.NewRequest("POST", "/api/predict", strings.NewReader(`{"age":52,"smoking":true}`))
	w := httptest.NewRecorder()
	handler.Predict(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Accepted", body["decision"])
	assert.Equal(t, 0.82, body["score"])
	explanation := body["explanation"].(map[string]any)
	assert.Equal(t, "Accepted", explanation["target_class"])
}

func TestPredictionHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"malformed body", `[`, nil, http.StatusBadRequest},
		{"empty applicant", `{}`, apperrors.NewValidationError("applicant payload is empty"), http.StatusBadRequest},
		{"upstream down", `{"age":30}`, apperrors.NewExternalError("Prediction service unavailable", assert.AnError), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPredictionService)
			if tt.err != nil {
				svc.On("Predict", mock.Anything, mock.Anything).Return(nil, tt.err)
			}
			handler := handlers.NewPredictionHandler(svc)

			w := httptest.NewRecorder()
			handler.Predict(w, httptest.NewRequest("POST", "/api/predict", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, decodeBody(t, w)["error"])
		})
	}
}
