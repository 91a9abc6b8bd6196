package domain

// Account roles. Each role gets its own dashboard in the web client.
const (
	RolePatient  = "patient"
	RoleDriver   = "driver"
	RoleHospital = "hospital"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch role {
	case RolePatient, RoleDriver, RoleHospital, RoleAdmin:
		return true
	}
	return false
}
