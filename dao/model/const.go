// Constants mapped to database columns.
// Gin rejects zero values on fields tagged `required`, so enum constants
// start from iota + 1 to keep the zero value out of the valid range.
package model

// User role in the platform.
type Role uint8

const (
	RoleGuest           Role = iota + 1 // not signed in / no privileges
	RoleUser                            // regular employee, submits requests and consultations
	RoleUnitReviewer                    // first-tier approver, scoped to one unit
	RoleCentralReviewer                 // second-tier approver, organization-wide
	RoleAdmin                           // platform administrator
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleUser:
		return "user"
	case RoleUnitReviewer:
		return "unit_reviewer"
	case RoleCentralReviewer:
		return "central_reviewer"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// IsReviewer reports whether the role belongs to the review hierarchy.
func (r Role) IsReviewer() bool {
	return r == RoleUnitReviewer || r == RoleCentralReviewer
}

// User account status
type Status uint8

const (
	StatusPending  Status = iota + 1 // Pending status, not yet activated
	StatusActive                     // Active status
	StatusInactive                   // Inactive status
)
