package aggregate

// UserRole is the role carried in dashboard access tokens.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleTeamLead UserRole = "TEAM_LEAD"
	RoleStaff    UserRole = "STAFF"
)
