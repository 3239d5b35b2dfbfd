package permissions

// Role is the closed set of account roles.
type Role string

const (
	// RoleAdmin always resolves to the entire catalog.
	RoleAdmin Role = "admin"
	// RoleEmployee resolves to the employee defaults plus per-user overrides.
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// employeeDefaults is the configured default subset for the employee role.
// Inventory visibility is granted per user, not by default.
var employeeDefaults = []Key{
	ViewDashboard,
	ViewSchedule,
	SetAvailability,
	ViewReminders,
	SetReminders,
}

// DefaultsFor returns the role-default key set. The admin set is derived from
// the live catalog at call time, never a snapshot, so permissions added to
// the catalog automatically reach every admin.
func (c *Catalog) DefaultsFor(role Role) Set {
	switch role {
	case RoleAdmin:
		return c.Keys()
	case RoleEmployee:
		set := make(Set, len(employeeDefaults))
		for _, k := range employeeDefaults {
			if c.Contains(k) {
				set[k] = struct{}{}
			}
		}
		return set
	default:
		return Set{}
	}
}
