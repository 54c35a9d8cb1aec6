package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
)

func ptr[T any](v T) *T { return &v }

func TestCase_JSONCarriesExplicitNulls(t *testing.T) {
	c := &Case{ID: "abc", Filename: "a.pdf", Age: ptr(41.0)}

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, 41.0, raw["age"])
	bmi, present := raw["bmi"]
	assert.True(t, present)
	assert.Nil(t, bmi)
	assert.Nil(t, raw["human_prediction"])
}

func TestCase_RecordFeedsValidation(t *testing.T) {
	c := &Case{Age: ptr(0.0), Smoking: ptr(false), BMI: ptr(-2.0)}
	rec := c.Record()

	assert.False(t, validation.IsValid("age", rec["age"]))
	assert.True(t, validation.IsValid("smoking", rec["smoking"]))
	assert.True(t, validation.IsValid("bmi", rec["bmi"]))
	assert.Nil(t, rec["address"])
}

func TestCase_ApplyFields(t *testing.T) {
	c := &Case{ID: "abc"}
	c.ApplyFields(map[string]any{
		"age":         "unknown",
		"height_cm":   182.0,
		"smoking":     true,
		"drug_type":   "warning",
		"id":          "hijack",
		"not_a_field": 3,
	})

	assert.Nil(t, c.Age)
	require.NotNil(t, c.HeightCM)
	assert.Equal(t, 182.0, *c.HeightCM)
	require.NotNil(t, c.Smoking)
	assert.True(t, *c.Smoking)
	require.NotNil(t, c.DrugType)
	assert.Equal(t, "warning", *c.DrugType)
	assert.Equal(t, "abc", c.ID)
}

func TestCase_Summary(t *testing.T) {
	accepted := PredictionAccepted
	rejected := PredictionRejected

	c := &Case{ID: "1", Filename: "scan.pdf", ModelPrediction: &accepted, HumanPrediction: &rejected}
	s := c.Summary()

	assert.Equal(t, "scan.pdf", s.Name)
	assert.Equal(t, "Unknown", s.UploadedAt)
	require.NotNil(t, s.Prediction)
	assert.Equal(t, PredictionRejected, *s.Prediction)
	assert.Equal(t, validation.StatusIncomplete, s.Status)

	c.HumanPrediction = nil
	s = c.Summary()
	assert.Equal(t, PredictionAccepted, *s.Prediction)
}

func TestNewCaseDetail(t *testing.T) {
	detail := NewCaseDetail(&Case{ID: "1"})

	assert.Equal(t, validation.StatusIncomplete, detail.Status)
	assert.Len(t, detail.InvalidFields, len(validation.RequiredFields()))

	data, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"incomplete"`)
	assert.Contains(t, string(data), `"id":"1"`)
}

func TestPrediction_Valid(t *testing.T) {
	assert.True(t, PredictionAccepted.Valid())
	assert.True(t, PredictionRejected.Valid())
	assert.False(t, Prediction("accepted").Valid())
	assert.False(t, Prediction("").Valid())
}

func TestNormalizeApplicant(t *testing.T) {
	out := NormalizeApplicant(validation.Record{
		"smoking":   true,
		"drug_use":  false,
		"drug_type": " Danger ",
		"address":   "  Main St 4 ",
		"age":       52.0,
		"sports":    "   ",
		"extra":     "dropped",
	})

	assert.Equal(t, 1, out["smoking"])
	assert.Equal(t, 0, out["drug_use"])
	assert.Equal(t, "danger", out["drug_type"])
	assert.Equal(t, "Main St 4", out["address"])
	assert.Equal(t, 52.0, out["age"])
	assert.Nil(t, out["sports"])
	assert.Nil(t, out["bmi"])
	assert.NotContains(t, out, "extra")
	assert.Len(t, out, len(validation.Schema))
}
