package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogContainsEveryNavigationKey(t *testing.T) {
	catalog := NewCatalog()
	for _, entry := range navEntries {
		require.True(t, catalog.Contains(entry.Key), "nav entry %q references unknown key", entry.Key)
	}
}

func TestCatalogKeysAreUnique(t *testing.T) {
	catalog := NewCatalog()
	require.Len(t, catalog.All(), 18)
	require.Len(t, catalog.Keys(), 18)
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	perms := []Permission{
		{Key: ViewDashboard, Category: "Dashboard"},
		{Key: ViewDashboard, Category: "Dashboard"},
	}
	require.Panics(t, func() { build(perms) })
}

func TestByCategoryGroupsInRegistrationOrder(t *testing.T) {
	catalog := NewCatalog()
	groups := catalog.ByCategory()
	require.Len(t, groups, 7)
	require.Equal(t, "Dashboard", groups[0].Category)
	require.Equal(t, "Business", groups[6].Category)

	var total int
	for _, group := range groups {
		total += len(group.Permissions)
		for _, p := range group.Permissions {
			require.Equal(t, group.Category, p.Category)
		}
	}
	require.Equal(t, 18, total)
}

func TestGetReturnsMetadata(t *testing.T) {
	catalog := NewCatalog()
	p, ok := catalog.Get(ManagePermissions)
	require.True(t, ok)
	require.Equal(t, "Employees", p.Category)
	require.Equal(t, "Manage User Permissions", p.Label)

	_, ok = catalog.Get(Key("no_such_key"))
	require.False(t, ok)
}
