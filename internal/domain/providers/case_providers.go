package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/entities"
)

// ErrExtractionUnauthorized is returned when the extraction provider rejects credentials
var ErrExtractionUnauthorized = errors.New("extraction provider unauthorized")

// DocumentExtractor turns a PDF into applicant field values keyed by field name
type DocumentExtractor interface {
	Extract(ctx context.Context, pdf []byte) (map[string]any, error)
}

// CaseAnalyzer produces the model's accept/reject recommendation for a case
type CaseAnalyzer interface {
	Analyze(ctx context.Context, c *entities.Case) (entities.Prediction, error)
}

// RiskPredictor scores a normalized applicant payload on the external model service
type RiskPredictor interface {
	Predict(ctx context.Context, req *entities.PredictionRequest) (*entities.PredictionResult, error)
}
