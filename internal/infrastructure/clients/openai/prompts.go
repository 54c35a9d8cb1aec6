package openai

import "github.com/zatekoja/underwritingcasedesk/backend/internal/domain/validation"

const extractFunctionName = "extract_form_data"

const extractionSystemPrompt = `You are an expert data extractor.
Read the attached insurance application PDF and return structured form data by calling the function extract_form_data.

Rules:
1. Output strictly as per the function schema. Do not add or remove keys.
2. If a field is clearly indicated in the PDF, extract it accurately.
3. If a field is unclear or vague, use "unknown" for string-like fields.
4. If a field is completely missing, use "" for it.
5. Normalize numeric values: height_cm in centimeters, weight_kg in kilograms, bmi calculated or given directly, earning_chf as an integer.
6. Booleans must be the literal strings "true" or "false".
7. Do not include explanations or formatting, only the function arguments.

Field hints:
- gender: "male" or "female" become "m" or "f"
- marital_status: "single", "married", "divorced", "widowed"
- drug_type, abroad_type, sport_type, medical_type, medication_type: "safe", "warning", "danger" or "unknown"
- visit_type: "physician", "specialist" or "hospital"`

const extractionUserPrompt = "Extract the form data from this PDF content."

// extractionTool describes every schema field as a string parameter; the model
// is forced to call it so arguments always come back as JSON.
func extractionTool() map[string]any {
	properties := make(map[string]any, len(validation.Schema))
	for _, spec := range validation.Schema {
		properties[spec.Name] = map[string]string{
			"type":        "string",
			"description": spec.Label,
		}
	}

	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        extractFunctionName,
			"description": "Extract structured insurance form data from the PDF content",
			"parameters": map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   []string{},
			},
		},
	}
}
