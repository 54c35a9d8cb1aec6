package entities

import (
	"strings"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
)

// PredictionRequest is the normalized applicant payload sent to the model service.
type PredictionRequest struct {
	CaseID    string         `json:"case_id,omitempty"`
	Applicant map[string]any `json:"applicant"`
}

// FeatureImpact is one SHAP contribution.
type FeatureImpact struct {
	Feature string  `json:"feature"`
	Impact  float64 `json:"impact"`
}

// Explanation carries the SHAP breakdown returned with a prediction.
type Explanation struct {
	GroupedImpacts map[string]float64 `json:"grouped_impacts"`
	TopFeatures    []FeatureImpact    `json:"top_features"`
	TargetClass    string             `json:"target_class"`
}

// PredictionResult is what the model service answers.
type PredictionResult struct {
	Decision    string       `json:"decision"`
	Score       *float64     `json:"score,omitempty"`
	Explanation *Explanation `json:"explanation,omitempty"`
}

// NormalizeApplicant builds the model payload from a record. Only schema
// fields are sent; booleans become 0/1, enums are lowercased, blank text and
// missing values become nil.
func NormalizeApplicant(rec validation.Record) map[string]any {
	out := make(map[string]any, len(validation.Schema))
	for _, spec := range validation.Schema {
		value := rec[spec.Name]
		switch v := value.(type) {
		case nil:
			out[spec.Name] = nil
		case bool:
			if v {
				out[spec.Name] = 1
			} else {
				out[spec.Name] = 0
			}
		case string:
			trimmed := strings.TrimSpace(v)
			switch {
			case trimmed == "":
				out[spec.Name] = nil
			case spec.Kind == validation.KindEnum:
				out[spec.Name] = strings.ToLower(trimmed)
			default:
				out[spec.Name] = trimmed
			}
		default:
			out[spec.Name] = v
		}
	}
	return out
}
