package extract

import "github.com/transmeralda/fleetdocs/constants"

// FallbackFields is the empty skeleton used when model output for a
// document cannot be parsed. Empty values carry no evidence, so the
// reconciliation engine preserves whatever the record already holds.
func FallbackFields(cat constants.Category) DocumentFields {
	switch cat {
	case constants.Identity:
		return DocumentFields{
			"first_name":      "",
			"last_name":       "",
			"id_type":         "",
			"identity_number": "",
			"birth_date":      "",
			"gender":          "",
			"blood_type":      "",
			"address":         "",
			"email":           "",
			"phone":           "",
		}
	case constants.Permit:
		return DocumentFields{
			"number":                 "",
			"issued_on":              "",
			"issuer":                 "",
			"restrictions":           "",
			"holder_name":            "",
			"holder_identity_number": "",
			"classes":                []any{},
		}
	case constants.Contract:
		return DocumentFields{
			"hire_date":                "",
			"base_salary":              0.0,
			"contract_term":            "",
			"termination_date":         "",
			"work_site":                "",
			"employee_name":            "",
			"employee_identity_number": "",
			"email":                    "",
			"phone":                    "",
		}
	default:
		return DocumentFields{}
	}
}
