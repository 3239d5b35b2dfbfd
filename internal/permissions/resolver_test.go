package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveInactiveAccountIsEmpty(t *testing.T) {
	catalog := NewCatalog()

	for _, g := range []Grant{
		{Role: RoleAdmin, Active: false},
		{Role: RoleEmployee, Active: false, Overrides: []Key{EditFinancials}},
	} {
		set := catalog.Resolve(g)
		if len(set) != 0 {
			t.Fatalf("inactive %s resolved to %v, want empty set", g.Role, set.Keys())
		}
	}
}

func TestResolveAdminIgnoresOverrides(t *testing.T) {
	catalog := NewCatalog()

	full := catalog.Resolve(AdminGrant())
	require.Len(t, full, 18)

	withOverrides := catalog.Resolve(Grant{Role: RoleAdmin, Active: true, Overrides: []Key{ViewDashboard}})
	require.Equal(t, full.Keys(), withOverrides.Keys())
}

func TestResolveEmployeeUnionsDefaultsAndOverrides(t *testing.T) {
	catalog := NewCatalog()

	base := catalog.Resolve(EmployeeGrant())
	require.Equal(t, catalog.DefaultsFor(RoleEmployee).Keys(), base.Keys())
	require.False(t, base.Contains(ViewInventory))
	require.False(t, base.Contains(EditInventory))

	withInventory := catalog.Resolve(EmployeeGrant(ViewInventory))
	require.True(t, withInventory.Contains(ViewInventory))

	granted := catalog.Resolve(EmployeeGrant(EditInventory, ViewFinancials))
	require.True(t, granted.Contains(EditInventory))
	require.True(t, granted.Contains(ViewFinancials))

	// Overrides only ever widen the default set.
	for k := range base {
		require.True(t, granted.Contains(k), "override dropped default key %q", k)
	}
}

func TestResolveDropsStaleOverrideKeys(t *testing.T) {
	catalog := NewCatalog()

	set := catalog.Resolve(EmployeeGrant(Key("retired_capability"), EditSchedule))
	require.False(t, set.Contains(Key("retired_capability")))
	require.True(t, set.Contains(EditSchedule))
}

func TestResolveIsIdempotent(t *testing.T) {
	catalog := NewCatalog()
	g := EmployeeGrant(EditInventory)

	first := catalog.Resolve(g)
	second := catalog.Resolve(g)
	require.Equal(t, first.Keys(), second.Keys())
}

func TestResolveUnknownRoleIsEmpty(t *testing.T) {
	catalog := NewCatalog()
	set := catalog.Resolve(Grant{Role: Role("superuser"), Active: true})
	require.Empty(t, set)
}

func TestAdminTracksCatalogAdditions(t *testing.T) {
	grown := build(append(append([]Permission{}, builtin...), Permission{
		Key:      Key("export_reports"),
		Category: "Financials",
		Label:    "Export Reports",
	}))

	set := grown.Resolve(AdminGrant())
	require.True(t, set.Contains(Key("export_reports")))
	require.Len(t, set, 19)

	// Employees do not pick up new keys without an explicit override.
	require.False(t, grown.Resolve(EmployeeGrant()).Contains(Key("export_reports")))
}

func TestHas(t *testing.T) {
	catalog := NewCatalog()
	require.True(t, catalog.Has(AdminGrant(), ManagePermissions))
	require.False(t, catalog.Has(EmployeeGrant(), ManagePermissions))
	require.True(t, catalog.Has(EmployeeGrant(ManagePermissions), ManagePermissions))
}

func TestNavigationFiltersByGrantedSet(t *testing.T) {
	catalog := NewCatalog()

	all := Navigation(catalog.Resolve(AdminGrant()))
	require.Len(t, all, len(navEntries))

	employee := Navigation(catalog.Resolve(EmployeeGrant()))
	var labels []string
	for _, e := range employee {
		labels = append(labels, e.Label)
	}
	require.Contains(t, labels, "Dashboard")
	require.NotContains(t, labels, "Financials")

	none := Navigation(Set{})
	require.Empty(t, none)
}
