package entities

import (
	"encoding/json"
	"time"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"
)

// UploadedAtLayout is the timestamp format stored in uploaded_at.
const UploadedAtLayout = "2006-01-02 15:04:05"

// Prediction is an accept/reject label from the model or the underwriter.
type Prediction string

const (
	PredictionAccepted Prediction = "Accepted"
	PredictionRejected Prediction = "Rejected"
)

// Valid reports whether p is one of the two wire values.
func (p Prediction) Valid() bool {
	return p == PredictionAccepted || p == PredictionRejected
}

// Case is one applicant's underwriting record. Every applicant attribute is
// nullable; JSON always carries explicit nulls for unset fields.
type Case struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Name       string `json:"name"`
	UploadedAt string `json:"uploaded_at"`
	PDFPath    string `json:"pdf_path"`

	Gender            *string  `json:"gender"`
	Age               *float64 `json:"age"`
	Birthdate         *string  `json:"birthdate"`
	MaritalStatus     *string  `json:"marital_status"`
	Address           *string  `json:"address"`
	Occupation        *string  `json:"occupation"`
	HeightCM          *float64 `json:"height_cm"`
	WeightKG          *float64 `json:"weight_kg"`
	BMI               *float64 `json:"bmi"`
	MedicalConditions *string  `json:"medical_conditions"`
	Sports            *string  `json:"sports"`
	AnnualIncome      *string  `json:"annual_income"`
	EarningCHF        *float64 `json:"earning_chf"`

	Smoking      *bool    `json:"smoking"`
	PacksPerWeek *float64 `json:"packs_per_week"`

	DrugUse       *bool    `json:"drug_use"`
	DrugFrequency *float64 `json:"drug_frequency"`
	DrugType      *string  `json:"drug_type"`

	StayingAbroad *bool   `json:"staying_abroad"`
	AbroadType    *string `json:"abroad_type"`

	DangerousSports        *bool    `json:"dangerous_sports"`
	SportType              *string  `json:"sport_type"`
	SportsActivityHPerWeek *float64 `json:"sports_activity_h_per_week"`
	MedicalIssue           *bool    `json:"medical_issue"`
	MedicalType            *string  `json:"medical_type"`
	DoctorVisits           *bool    `json:"doctor_visits"`
	VisitType              *string  `json:"visit_type"`
	RegularMedication      *bool    `json:"regular_medication"`
	MedicationType         *string  `json:"medication_type"`

	ModelPrediction *Prediction `json:"model_prediction"`
	HumanPrediction *Prediction `json:"human_prediction"`
}

// Record flattens the case into the field-name keyed view the validation
// engine reads. Unset pointers become nil.
func (c *Case) Record() validation.Record {
	return validation.Record{
		"id":                         c.ID,
		"filename":                   c.Filename,
		"name":                       c.Name,
		"uploaded_at":                c.UploadedAt,
		"gender":                     str(c.Gender),
		"age":                        num(c.Age),
		"birthdate":                  str(c.Birthdate),
		"marital_status":             str(c.MaritalStatus),
		"address":                    str(c.Address),
		"occupation":                 str(c.Occupation),
		"height_cm":                  num(c.HeightCM),
		"weight_kg":                  num(c.WeightKG),
		"bmi":                        num(c.BMI),
		"medical_conditions":         str(c.MedicalConditions),
		"sports":                     str(c.Sports),
		"annual_income":              str(c.AnnualIncome),
		"earning_chf":                num(c.EarningCHF),
		"smoking":                    flag(c.Smoking),
		"packs_per_week":             num(c.PacksPerWeek),
		"drug_use":                   flag(c.DrugUse),
		"drug_frequency":             num(c.DrugFrequency),
		"drug_type":                  str(c.DrugType),
		"staying_abroad":             flag(c.StayingAbroad),
		"abroad_type":                str(c.AbroadType),
		"dangerous_sports":           flag(c.DangerousSports),
		"sport_type":                 str(c.SportType),
		"sports_activity_h_per_week": num(c.SportsActivityHPerWeek),
		"medical_issue":              flag(c.MedicalIssue),
		"medical_type":               str(c.MedicalType),
		"doctor_visits":              flag(c.DoctorVisits),
		"visit_type":                 str(c.VisitType),
		"regular_medication":         flag(c.RegularMedication),
		"medication_type":            str(c.MedicationType),
		"model_prediction":           prediction(c.ModelPrediction),
		"human_prediction":           prediction(c.HumanPrediction),
	}
}

// Evaluate runs the validation engine over the case.
func (c *Case) Evaluate() validation.Result {
	return validation.Evaluate(c.Record())
}

// ApplyFields overlays extracted values onto the case. Keys that do not map
// to a case field, and values of the wrong JSON type, are ignored.
func (c *Case) ApplyFields(fields map[string]any) {
	for name, value := range fields {
		if _, ok := validation.Lookup(name); !ok {
			continue
		}
		patch, err := json.Marshal(map[string]any{name: value})
		if err != nil {
			continue
		}
		_ = json.Unmarshal(patch, c)
	}
}

// Summary returns the list-view projection of the case.
func (c *Case) Summary() CaseSummary {
	name := c.Name
	if name == "" {
		name = c.Filename
	}
	uploadedAt := c.UploadedAt
	if uploadedAt == "" {
		uploadedAt = "Unknown"
	}

	var effective *Prediction
	switch {
	case c.HumanPrediction != nil:
		effective = c.HumanPrediction
	case c.ModelPrediction != nil:
		effective = c.ModelPrediction
	}

	return CaseSummary{
		ID:              c.ID,
		Filename:        c.Filename,
		Name:            name,
		UploadedAt:      uploadedAt,
		ModelPrediction: c.ModelPrediction,
		HumanPrediction: c.HumanPrediction,
		Prediction:      effective,
		Status:          c.Evaluate().Status,
	}
}

// UploadedTime parses uploaded_at; the zero time is returned when unparsable.
func (c *Case) UploadedTime() time.Time {
	t, err := time.Parse(UploadedAtLayout, c.UploadedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CaseSummary is the list-view projection of a case. Prediction prefers the
// human decision over the model's.
type CaseSummary struct {
	ID              string            `json:"id"`
	Filename        string            `json:"filename"`
	Name            string            `json:"name"`
	UploadedAt      string            `json:"uploaded_at"`
	ModelPrediction *Prediction       `json:"model_prediction"`
	HumanPrediction *Prediction       `json:"human_prediction"`
	Prediction      *Prediction       `json:"prediction"`
	Status          validation.Status `json:"status"`
}

// CaseDetail is a case plus its derived evaluation.
type CaseDetail struct {
	*Case
	Status        validation.Status `json:"status"`
	InvalidFields []string          `json:"invalid_fields"`
}

// NewCaseDetail evaluates c and wraps it for responses.
func NewCaseDetail(c *Case) CaseDetail {
	result := c.Evaluate()
	return CaseDetail{Case: c, Status: result.Status, InvalidFields: result.InvalidFields}
}

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func num(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func flag(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}

func prediction(p *Prediction) any {
	if p == nil {
		return nil
	}
	return string(*p)
}
