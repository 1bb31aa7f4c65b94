package constants

// Allowed values for enumerated driver fields. These mirror the fleet's
// operational vocabulary; the reconciliation engine rejects anything else.

var (
	Genders       = []string{"M", "F"}
	BloodTypes    = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	WorkSites     = []string{"YOPAL", "VILLANUEVA", "TAURAMENA"}
	ContractTerms = []string{"INDEFINITE", "FIXED", "TEMPORARY"}
	IDTypes       = []string{"CC", "TI", "CE"}

	// PermitClasses are the recognized driving permit categories.
	PermitClasses = []string{"A1", "A2", "B1", "B2", "B3", "C1", "C2", "C3"}
)

// DriverStatus values for the driver row itself.
const (
	DriverAvailable = "available"
	DriverInactive  = "inactive"
)
