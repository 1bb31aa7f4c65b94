package entity

import (
	"time"

	"github.com/google/uuid"
)

// Driver represents a driver record for data transfer between layers.
// Date fields use the YYYY-MM-DD wire format throughout the pipeline; the
// repository layer maps them to DATE columns.
type Driver struct {
	ID              uuid.UUID `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	IDType          string    `json:"id_type"`
	IdentityNumber  string    `json:"identity_number"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	BirthDate       string    `json:"birth_date,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	BloodType       string    `json:"blood_type,omitempty"`
	Address         string    `json:"address,omitempty"`
	HireDate        string    `json:"hire_date,omitempty"`
	BaseSalary      float64   `json:"base_salary,omitempty"`
	ContractTerm    string    `json:"contract_term,omitempty"`
	TerminationDate string    `json:"termination_date,omitempty"`
	WorkSite        string    `json:"work_site,omitempty"`
	Permit          *Permit   `json:"permit,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedBy       uuid.UUID `json:"created_by"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Permit holds the driving permit block stored as JSONB on the driver row.
type Permit struct {
	Number       string        `json:"number"`
	IssuedOn     string        `json:"issued_on,omitempty"`
	Issuer       string        `json:"issuer,omitempty"`
	Restrictions string        `json:"restrictions,omitempty"`
	Classes      []PermitClass `json:"classes,omitempty"`
}

// PermitClass is one licensed class with its expiry.
type PermitClass struct {
	Class      string `json:"class"`
	ValidUntil string `json:"valid_until,omitempty"`
}

// Clone returns a deep copy. Snapshots taken at job start must not alias
// the merged output.
func (d *Driver) Clone() *Driver {
	if d == nil {
		return nil
	}
	out := *d
	if d.Permit != nil {
		p := *d.Permit
		p.Classes = make([]PermitClass, len(d.Permit.Classes))
		copy(p.Classes, d.Permit.Classes)
		out.Permit = &p
	}
	return &out
}
