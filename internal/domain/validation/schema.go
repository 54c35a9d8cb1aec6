// Package validation holds the case field schema and the rules that decide
// whether a case is complete enough to analyse and accept.
package validation

// FieldKind describes how a case field is entered and coerced.
type FieldKind string

const (
	KindText    FieldKind = "text"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindEnum    FieldKind = "enum"
	KindDate    FieldKind = "date"
)

// Risk levels shared by every *_type field.
var RiskLevels = []string{"safe", "warning", "danger", "unknown"}

// FieldSpec declares one applicant field.
type FieldSpec struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	// ZeroValid marks numeric fields where 0 is a legitimate answer.
	ZeroValid bool
	Enum      []string
}

// Schema is the canonical list of applicant fields. Rendering, coercion and
// the validity predicate all read from it.
var Schema = []FieldSpec{
	{Name: "gender", Label: "Gender", Kind: KindEnum, Required: true, Enum: []string{"m", "f", "other"}},
	{Name: "age", Label: "Age", Kind: KindNumber, Required: true},
	{Name: "birthdate", Label: "Birthdate", Kind: KindDate, Required: true},
	{Name: "marital_status", Label: "Marital status", Kind: KindEnum, Required: true, Enum: []string{"single", "married", "divorced", "widowed"}},
	{Name: "address", Label: "Address", Kind: KindText, Required: true},
	{Name: "occupation", Label: "Occupation", Kind: KindText, Required: true},
	{Name: "height_cm", Label: "Height (cm)", Kind: KindNumber, Required: true},
	{Name: "weight_kg", Label: "Weight (kg)", Kind: KindNumber, Required: true},
	// No range clamp on bmi; implausible values are left to the reviewer.
	{Name: "bmi", Label: "BMI", Kind: KindNumber, Required: true, ZeroValid: true},
	{Name: "medical_conditions", Label: "Medical conditions", Kind: KindText, Required: true},
	{Name: "sports", Label: "Sports", Kind: KindText, Required: true},
	{Name: "annual_income", Label: "Annual income", Kind: KindText, Required: true},
	{Name: "earning_chf", Label: "Earning (CHF)", Kind: KindNumber, Required: true},
	{Name: "smoking", Label: "Smoking", Kind: KindBoolean, Required: true},
	{Name: "packs_per_week", Label: "Packs per week", Kind: KindNumber, Required: true, ZeroValid: true},
	{Name: "drug_use", Label: "Drug use", Kind: KindBoolean, Required: true},
	{Name: "drug_frequency", Label: "Drug frequency", Kind: KindNumber, Required: true, ZeroValid: true},
	{Name: "drug_type", Label: "Drug risk", Kind: KindEnum, Required: true, Enum: RiskLevels},
	{Name: "staying_abroad", Label: "Staying abroad", Kind: KindBoolean, Required: true},
	{Name: "abroad_type", Label: "Abroad risk", Kind: KindEnum, Required: true, Enum: RiskLevels},
	{Name: "dangerous_sports", Label: "Dangerous sports", Kind: KindBoolean, Required: true},
	{Name: "sport_type", Label: "Sport risk", Kind: KindEnum, Required: true, Enum: RiskLevels},
	{Name: "sports_activity_h_per_week", Label: "Sports activity (h/week)", Kind: KindNumber, Required: true, ZeroValid: true},
	{Name: "medical_issue", Label: "Medical issue", Kind: KindBoolean, Required: true},
	{Name: "medical_type", Label: "Medical risk", Kind: KindEnum, Required: true, Enum: RiskLevels},
	{Name: "doctor_visits", Label: "Doctor visits", Kind: KindBoolean, Required: true},
	{Name: "visit_type", Label: "Visit type", Kind: KindEnum, Required: true, Enum: []string{"physician", "specialist", "hospital"}},
	{Name: "regular_medication", Label: "Regular medication", Kind: KindBoolean, Required: true},
	{Name: "medication_type", Label: "Medication risk", Kind: KindEnum, Required: true, Enum: RiskLevels},
}

var schemaIndex = func() map[string]FieldSpec {
	index := make(map[string]FieldSpec, len(Schema))
	for _, spec := range Schema {
		index[spec.Name] = spec
	}
	return index
}()

// Lookup returns the spec for a field name.
func Lookup(name string) (FieldSpec, bool) {
	spec, ok := schemaIndex[name]
	return spec, ok
}

// RequiredFields returns the names of every required field in schema order.
func RequiredFields() []string {
	names := make([]string, 0, len(Schema))
	for _, spec := range Schema {
		if spec.Required {
			names = append(names, spec.Name)
		}
	}
	return names
}

// NumericFields returns the names of fields entered as numbers.
func NumericFields() []string {
	var names []string
	for _, spec := range Schema {
		if spec.Kind == KindNumber {
			names = append(names, spec.Name)
		}
	}
	return names
}
