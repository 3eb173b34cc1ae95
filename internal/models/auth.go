package models

// Role is the caller's role as carried in the JWT "role" claim.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
	RoleAdmin    Role = "ADMIN"
)

// CanAdvanceTracking reports whether the role may advance an order's
// tracking status. Customers have no write access to tracking.
func (r Role) CanAdvanceTracking() bool {
	return r == RoleStaff || r == RoleAdmin
}
