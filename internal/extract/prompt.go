package extract

import (
	"encoding/json"
	"strings"

	"github.com/transmeralda/fleetdocs/constants"
)

func buildSystemPrompt(cat constants.Category, schema map[string]any) string {
	parts := []string{
		"You are a document parser for a vehicle fleet operator in Colombia.",
		"The input is OCR text from a scanned driver document of type " + string(cat) + ".",
		"Return ONLY a JSON object that matches the JSON Schema provided.",
		"Use ISO-8601 dates (YYYY-MM-DD).",
		"Omit any field you cannot read from the text. Never output null and never invent values.",
	}
	switch cat {
	case constants.Identity:
		parts = append(parts,
			"identity_number is the national identification number printed on the card; copy its digits exactly.")
	case constants.Permit:
		parts = append(parts,
			"classes lists each driving category on the permit with its expiry date.",
			"holder_identity_number is the identification number of the permit holder if printed.")
	case constants.Contract:
		parts = append(parts,
			"base_salary is the monthly salary as a plain number without currency symbols or thousands separators.",
			"employee_identity_number is the identification number of the employee if printed.")
	}
	parts = append(parts, "JSON Schema:\n"+mustJSON(schema))
	return strings.Join(parts, " ")
}

func buildUserPrompt(ocrText string) string {
	var b strings.Builder
	b.WriteString("OCR text:\n")
	b.WriteString(TruncateText(ocrText, maxPromptChars))
	b.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
