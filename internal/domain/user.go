package domain

// Role of a clinic user
type Role string

const (
	RolePatient Role = "patient"
	RoleDentist Role = "dentist"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// IsBackOffice returns true for roles that manage any booking
func (r Role) IsBackOffice() bool {
	return r == RoleStaff || r == RoleAdmin
}
