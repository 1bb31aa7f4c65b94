package constants

import "strings"

// Category identifies a document category attached to a driver.
type Category string

const (
	Identity  Category = "IDENTITY"   // national identity card
	Permit    Category = "PERMIT"     // driving permit
	Contract  Category = "CONTRACT"   // work contract
	FacePhoto Category = "FACE_PHOTO" // profile photo, stored as-is
)

var allCategories = []Category{
	Identity,
	Permit,
	Contract,
	FacePhoto,
}

// MandatoryCategories must all be present before a create job is accepted.
var MandatoryCategories = []Category{Identity, Permit, Contract}

// IdentityBearingCategories are expected to carry the driver's
// identification number and are cross-validated on the update path.
var IdentityBearingCategories = []Category{Identity, Permit, Contract}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free-form labels to a known category.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Category{
		"ID":            Identity,
		"ID_CARD":       Identity,
		"CEDULA":        Identity,
		"LICENSE":       Permit,
		"LICENCE":       Permit,
		"LICENCIA":      Permit,
		"CONTRATO":      Contract,
		"PHOTO":         FacePhoto,
		"PROFILE_PHOTO": FacePhoto,
	}
	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}
	for _, cat := range allCategories {
		if string(cat) == normalized {
			return cat, true
		}
	}
	return "", false
}

// IsIdentityBearing reports whether the category is expected to carry the
// driver's identification number.
func IsIdentityBearing(cat Category) bool {
	for _, c := range IdentityBearingCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// ExtractsFields reports whether the category goes through AI extraction.
func ExtractsFields(cat Category) bool {
	return cat != FacePhoto
}
