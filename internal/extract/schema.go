package extract

import "github.com/transmeralda/fleetdocs/constants"

// BuildSchema returns the JSON-Schema (draft 2020-12 subset) that model
// output for the category must satisfy. Everything is optional: a scan
// may legitimately show only part of the record. Field-level acceptance
// is decided later during reconciliation.
func BuildSchema(cat constants.Category) map[string]any {
	var props map[string]any
	switch cat {
	case constants.Identity:
		props = map[string]any{
			"first_name":      stringProp(),
			"last_name":       stringProp(),
			"id_type":         enumProp(constants.IDTypes),
			"identity_number": idNumberProp(),
			"birth_date":      dateProp(),
			"gender":          enumProp(constants.Genders),
			"blood_type":      enumProp(constants.BloodTypes),
			"address":         stringProp(),
			"email":           stringProp(),
			"phone":           stringProp(),
		}
	case constants.Permit:
		props = map[string]any{
			"number":                 stringProp(),
			"issued_on":              dateProp(),
			"issuer":                 stringProp(),
			"restrictions":           stringProp(),
			"holder_name":            stringProp(),
			"holder_identity_number": idNumberProp(),
			"classes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"class":       enumProp(constants.PermitClasses),
						"valid_until": dateProp(),
					},
				},
			},
		}
	case constants.Contract:
		props = map[string]any{
			"hire_date":                dateProp(),
			"base_salary":              map[string]any{"type": "number", "minimum": 0.0},
			"contract_term":            enumProp(constants.ContractTerms),
			"termination_date":         dateProp(),
			"work_site":                enumProp(constants.WorkSites),
			"employee_name":            stringProp(),
			"employee_identity_number": idNumberProp(),
			"email":                    stringProp(),
			"phone":                    stringProp(),
		}
	default:
		props = map[string]any{}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{},
	}
}

func stringProp() map[string]any {
	return map[string]any{"type": "string"}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
}

func idNumberProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^[\d\s.\-]+$`}
}

func enumProp(values []string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}
