package user

type Permission string

const (
	// Face Management
	PermissionFaceView   Permission = "face.view"
	PermissionFaceEnroll Permission = "face.enroll"
	PermissionFaceDelete Permission = "face.delete"

	// Attendance
	PermissionAttendanceViewAll Permission = "attendance.view_all"

	// Visitors
	PermissionVisitorView Permission = "visitor.view"

	// Kiosk Devices
	PermissionKioskManage Permission = "kiosk.manage"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionFaceView,
		PermissionFaceEnroll,
		PermissionFaceDelete,
		PermissionAttendanceViewAll,
		PermissionVisitorView,
		PermissionKioskManage,
	},
	RoleManager: {
		PermissionFaceView,
		PermissionFaceEnroll,
		PermissionFaceDelete,
		PermissionAttendanceViewAll,
		PermissionVisitorView,
	},
	RoleEmployee: {
		// Employees interact only through kiosks
	},
	RoleKiosk: {
		// Kiosks record attendance only through their own session
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
