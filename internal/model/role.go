package model

// Role names carried in the JWT "role" claim.
const (
	RoleClient     = "CLIENT"
	RoleOwner      = "OWNER"
	RoleSupervisor = "SUPERVISOR"
	RoleHost       = "HOST"
	RoleWaiter     = "WAITER"
)

// StaffRoles lists every role that works the dining room.
var StaffRoles = []string{RoleOwner, RoleSupervisor, RoleHost, RoleWaiter}

// Actor is the resolved identity performing an operation.
type Actor struct {
	UserID uint64
	Role   string
}

// IsStaff reports whether the actor works for the restaurant.
func (a Actor) IsStaff() bool {
	for _, r := range StaffRoles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// CanDecide reports whether the actor may approve or reject reservations.
func (a Actor) CanDecide() bool {
	return a.Role == RoleOwner || a.Role == RoleSupervisor
}

// CanCheckReserved reports whether the actor may ask if a table is reserved
// right now.  This is the host's job; managers may do it as well.
func (a Actor) CanCheckReserved() bool {
	return a.Role == RoleHost || a.CanDecide()
}
