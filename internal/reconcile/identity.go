package reconcile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/transmeralda/fleetdocs/constants"
	"github.com/transmeralda/fleetdocs/internal/extract"
)

// reIDNoise strips separators commonly printed inside identification
// numbers so 1.045.678-901 and 1045678901 compare equal.
var reIDNoise = regexp.MustCompile(`[\s\-_.]`)

// NormalizeID canonicalizes an identification number for comparison.
func NormalizeID(s string) string {
	return reIDNoise.ReplaceAllString(strings.TrimSpace(s), "")
}

// identityKeys lists, per category, the extracted keys that may carry
// the holder's identification number, in lookup order.
var identityKeys = map[constants.Category][]string{
	constants.Identity: {"identity_number", "document_number", "id_number"},
	constants.Permit:   {"holder_identity_number", "identity_number", "document_number"},
	constants.Contract: {"employee_identity_number", "identity_number", "document_number"},
}

// MismatchError reports a document whose identification number belongs
// to a different person than the record being updated.
type MismatchError struct {
	Category constants.Category
	Found    string
	Expected string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("document %s carries identity %s, record belongs to %s", e.Category, e.Found, e.Expected)
}

// MissingIdentityError reports an identity-bearing document that parsed
// but carries no readable identification number at all.
type MissingIdentityError struct {
	Category constants.Category
}

func (e *MissingIdentityError) Error() string {
	return fmt.Sprintf("document %s carries no readable identification number", e.Category)
}

// CrossValidate checks every identity-bearing document against the
// record's identification number. A parsed document with no readable
// number fails the gate: absence of evidence is not a pass. Only
// documents that failed to parse are exempt, because extraction
// substituted an empty skeleton and the reconciler will preserve every
// field from them anyway. The first offending document aborts the batch.
func CrossValidate(expected string, docs []extract.ExtractedDocument) error {
	want := NormalizeID(expected)
	if want == "" {
		return fmt.Errorf("record has no identification number to validate against")
	}
	for _, doc := range docs {
		if doc.FailedToParse || !constants.IsIdentityBearing(doc.Category) {
			continue
		}
		found, ok := lookupIdentity(doc)
		if !ok {
			return &MissingIdentityError{Category: doc.Category}
		}
		if NormalizeID(found) != want {
			return &MismatchError{Category: doc.Category, Found: found, Expected: expected}
		}
	}
	return nil
}

func lookupIdentity(doc extract.ExtractedDocument) (string, bool) {
	for _, key := range identityKeys[doc.Category] {
		if v, ok := doc.Fields[key].(string); ok && NormalizeID(v) != "" {
			return v, true
		}
	}
	return "", false
}
