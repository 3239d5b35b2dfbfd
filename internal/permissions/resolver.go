package permissions

// Grant is the snapshot of the stored fields an authorization decision
// depends on. Consumers build a fresh Grant from the persisted record for
// every check; the resolver holds no per-user state.
type Grant struct {
	Role      Role
	Active    bool
	Overrides []Key
}

// AdminGrant builds the grant for an active admin account.
func AdminGrant() Grant {
	return Grant{Role: RoleAdmin, Active: true}
}

// EmployeeGrant builds the grant for an active employee with overrides.
func EmployeeGrant(overrides ...Key) Grant {
	return Grant{Role: RoleEmployee, Active: true, Overrides: overrides}
}

// Resolve computes the effective capability set for a grant. It is a pure
// function of its inputs and never fails: inactive accounts and unknown
// roles resolve to the empty set, admins to the full catalog, employees to
// the role defaults united with the overrides still present in the catalog.
// Stale override keys referencing removed permissions are dropped silently.
func (c *Catalog) Resolve(g Grant) Set {
	if !g.Active {
		return Set{}
	}
	switch g.Role {
	case RoleAdmin:
		return c.Keys()
	case RoleEmployee:
		set := c.DefaultsFor(RoleEmployee)
		for _, k := range g.Overrides {
			if c.Contains(k) {
				set[k] = struct{}{}
			}
		}
		return set
	default:
		return Set{}
	}
}

// Has reports whether the grant resolves to a set containing key.
func (c *Catalog) Has(g Grant, key Key) bool {
	return c.Resolve(g).Contains(key)
}
