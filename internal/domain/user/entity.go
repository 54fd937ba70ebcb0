package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Can enroll faces and review attendance
	RoleEmployee Role = "employee" // Regular employee
	RoleKiosk    Role = "kiosk"    // Attendance terminal
)
