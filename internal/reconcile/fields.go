package reconcile

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/transmeralda/fleetdocs/constants"
	"github.com/transmeralda/fleetdocs/internal/entity"
)

var (
	reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDigits  = regexp.MustCompile(`\d`)
)

// fieldSpec describes one reconcilable driver field: where its evidence
// comes from, how a candidate value is validated, and how it is read
// from and written to the driver record.
type fieldSpec struct {
	Name      string
	Sources   []constants.Category
	Keys      []string
	Immutable bool
	Validate  func(any) bool
	Get       func(*entity.Driver) any
	Set       func(*entity.Driver, any)
}

func validName(v any) bool {
	s, ok := v.(string)
	return ok && len(strings.TrimSpace(s)) >= 2
}

func validEmail(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	return len(s) >= 6 && strings.Count(s, "@") == 1 && !strings.HasPrefix(s, "@") && !strings.HasSuffix(s, "@")
}

func validPhone(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return len(reDigits.FindAllString(s, -1)) >= 7
}

func validIdentityNumber(v any) bool {
	s, ok := v.(string)
	return ok && len(NormalizeID(s)) >= 7
}

func validDate(v any) bool {
	s, ok := v.(string)
	return ok && reISODate.MatchString(s)
}

func validEnum(values []string) func(any) bool {
	return func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		for _, allowed := range values {
			if s == allowed {
				return true
			}
		}
		return false
	}
}

func validSalary(v any) bool {
	f, ok := toFloat(v)
	return ok && f > 0
}

func validFreeText(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func strGetter(get func(*entity.Driver) string) func(*entity.Driver) any {
	return func(d *entity.Driver) any { return get(d) }
}

func strSetter(set func(*entity.Driver, string)) func(*entity.Driver, any) {
	return func(d *entity.Driver, v any) {
		if s, ok := v.(string); ok {
			set(d, strings.TrimSpace(s))
		}
	}
}

// fieldSpecs is the reconciliation registry. Order matters only for
// delta readability; each field is resolved independently.
func fieldSpecs() []fieldSpec {
	identity := []constants.Category{constants.Identity}
	contract := []constants.Category{constants.Contract}
	contactSources := []constants.Category{constants.Identity, constants.Contract}

	return []fieldSpec{
		{
			Name: "first_name", Sources: identity, Keys: []string{"first_name"},
			Validate: validName,
			Get:      strGetter(func(d *entity.Driver) string { return d.FirstName }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.FirstName = s }),
		},
		{
			Name: "last_name", Sources: identity, Keys: []string{"last_name"},
			Validate: validName,
			Get:      strGetter(func(d *entity.Driver) string { return d.LastName }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.LastName = s }),
		},
		{
			Name: "id_type", Sources: identity, Keys: []string{"id_type"},
			Validate: validEnum(constants.IDTypes),
			Get:      strGetter(func(d *entity.Driver) string { return d.IDType }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.IDType = s }),
		},
		{
			Name: "identity_number", Sources: identity,
			Keys:      []string{"identity_number", "document_number", "id_number"},
			Immutable: true,
			Validate:  validIdentityNumber,
			Get:       strGetter(func(d *entity.Driver) string { return d.IdentityNumber }),
			Set:       strSetter(func(d *entity.Driver, s string) { d.IdentityNumber = s }),
		},
		{
			Name: "birth_date", Sources: identity, Keys: []string{"birth_date"},
			Validate: validDate,
			Get:      strGetter(func(d *entity.Driver) string { return d.BirthDate }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.BirthDate = s }),
		},
		{
			Name: "gender", Sources: identity, Keys: []string{"gender"},
			Validate: validEnum(constants.Genders),
			Get:      strGetter(func(d *entity.Driver) string { return d.Gender }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.Gender = s }),
		},
		{
			Name: "blood_type", Sources: identity, Keys: []string{"blood_type"},
			Validate: validEnum(constants.BloodTypes),
			Get:      strGetter(func(d *entity.Driver) string { return d.BloodType }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.BloodType = s }),
		},
		{
			Name: "address", Sources: identity, Keys: []string{"address"},
			Validate: validFreeText,
			Get:      strGetter(func(d *entity.Driver) string { return d.Address }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.Address = s }),
		},
		{
			Name: "email", Sources: contactSources, Keys: []string{"email"},
			Validate: validEmail,
			Get:      strGetter(func(d *entity.Driver) string { return d.Email }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.Email = s }),
		},
		{
			Name: "phone", Sources: contactSources, Keys: []string{"phone"},
			Validate: validPhone,
			Get:      strGetter(func(d *entity.Driver) string { return d.Phone }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.Phone = s }),
		},
		{
			Name: "hire_date", Sources: contract, Keys: []string{"hire_date"},
			Validate: validDate,
			Get:      strGetter(func(d *entity.Driver) string { return d.HireDate }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.HireDate = s }),
		},
		{
			Name: "base_salary", Sources: contract, Keys: []string{"base_salary"},
			Validate: validSalary,
			Get:      func(d *entity.Driver) any { return d.BaseSalary },
			Set: func(d *entity.Driver, v any) {
				if f, ok := toFloat(v); ok {
					d.BaseSalary = f
				}
			},
		},
		{
			Name: "contract_term", Sources: contract, Keys: []string{"contract_term"},
			Validate: validEnum(constants.ContractTerms),
			Get:      strGetter(func(d *entity.Driver) string { return d.ContractTerm }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.ContractTerm = s }),
		},
		{
			Name: "termination_date", Sources: contract, Keys: []string{"termination_date"},
			Validate: validDate,
			Get:      strGetter(func(d *entity.Driver) string { return d.TerminationDate }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.TerminationDate = s }),
		},
		{
			Name: "work_site", Sources: contract, Keys: []string{"work_site"},
			Validate: validEnum(constants.WorkSites),
			Get:      strGetter(func(d *entity.Driver) string { return d.WorkSite }),
			Set:      strSetter(func(d *entity.Driver, s string) { d.WorkSite = s }),
		},
	}
}

// RequiredFields must be populated after reconciliation for a driver
// record to be persisted on the create path.
var RequiredFields = []string{"first_name", "last_name", "id_type", "identity_number"}

// MissingRequired lists the required fields still empty on the record.
func MissingRequired(d *entity.Driver) []string {
	var missing []string
	if strings.TrimSpace(d.FirstName) == "" {
		missing = append(missing, "first_name")
	}
	if strings.TrimSpace(d.LastName) == "" {
		missing = append(missing, "last_name")
	}
	if strings.TrimSpace(d.IDType) == "" {
		missing = append(missing, "id_type")
	}
	if strings.TrimSpace(d.IdentityNumber) == "" {
		missing = append(missing, "identity_number")
	}
	return missing
}
