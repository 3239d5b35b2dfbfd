// Package permissions implements the capability catalog and the effective
// permission resolution used by every authorization decision in opsdeck.
package permissions

import (
	"fmt"
	"sort"
)

// Key identifies a single capability.
type Key string

// Capability keys. The catalog below is the single source of truth for
// which keys are valid; these constants exist so call sites stay typo-proof.
const (
	ViewDashboard Key = "view_dashboard"
	EditDashboard Key = "edit_dashboard"

	ViewInventory  Key = "view_inventory"
	EditInventory  Key = "edit_inventory"
	GenerateOrders Key = "generate_orders"

	ViewEmployees     Key = "view_employees"
	EditEmployees     Key = "edit_employees"
	ManagePermissions Key = "manage_permissions"

	ViewSchedule     Key = "view_schedule"
	EditSchedule     Key = "edit_schedule"
	GenerateSchedule Key = "generate_schedule"
	SetAvailability  Key = "set_availability"

	ViewFinancials Key = "view_financials"
	EditFinancials Key = "edit_financials"

	ViewReminders Key = "view_reminders"
	EditReminders Key = "edit_reminders"
	SetReminders  Key = "set_reminders"

	EditBusiness Key = "edit_business"
)

// Permission describes an atomic capability with its display metadata.
type Permission struct {
	Key         Key
	Category    string
	Label       string
	Description string
}

// Catalog is the immutable registry of all capabilities. It is built once at
// process start and never mutated afterwards, so reads need no locking.
type Catalog struct {
	ordered []Permission
	byKey   map[Key]Permission
}

// NewCatalog builds the deploy-time catalog. Duplicate keys indicate a
// programming error and panic at startup.
func NewCatalog() *Catalog {
	return build(builtin)
}

func build(perms []Permission) *Catalog {
	c := &Catalog{
		ordered: make([]Permission, 0, len(perms)),
		byKey:   make(map[Key]Permission, len(perms)),
	}
	for _, p := range perms {
		if _, dup := c.byKey[p.Key]; dup {
			panic(fmt.Sprintf("permissions: duplicate catalog key %q", p.Key))
		}
		c.byKey[p.Key] = p
		c.ordered = append(c.ordered, p)
	}
	return c
}

// All returns every permission in registration order.
func (c *Catalog) All() []Permission {
	out := make([]Permission, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Keys returns the full key set.
func (c *Catalog) Keys() Set {
	set := make(Set, len(c.ordered))
	for _, p := range c.ordered {
		set[p.Key] = struct{}{}
	}
	return set
}

// Contains reports whether key is registered.
func (c *Catalog) Contains(key Key) bool {
	_, ok := c.byKey[key]
	return ok
}

// Get returns the permission for key.
func (c *Catalog) Get(key Key) (Permission, bool) {
	p, ok := c.byKey[key]
	return p, ok
}

// ByCategory groups permissions for display, categories sorted by first
// appearance and permissions kept in registration order.
func (c *Catalog) ByCategory() []CategoryGroup {
	index := make(map[string]int)
	var groups []CategoryGroup
	for _, p := range c.ordered {
		i, ok := index[p.Category]
		if !ok {
			i = len(groups)
			index[p.Category] = i
			groups = append(groups, CategoryGroup{Category: p.Category})
		}
		groups[i].Permissions = append(groups[i].Permissions, p)
	}
	return groups
}

// CategoryGroup is one display category and its permissions.
type CategoryGroup struct {
	Category    string
	Permissions []Permission
}

// Set is an unordered collection of capability keys.
type Set map[Key]struct{}

// NewSet builds a Set from keys.
func NewSet(keys ...Key) Set {
	set := make(Set, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s Set) Contains(key Key) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the sorted members, convenient for JSON payloads and tests.
func (s Set) Keys() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

var builtin = []Permission{
	{Key: ViewDashboard, Category: "Dashboard", Label: "View Dashboard", Description: "View dashboard and statistics"},
	{Key: EditDashboard, Category: "Dashboard", Label: "Edit Dashboard", Description: "Edit dashboard settings"},
	{Key: ViewInventory, Category: "Inventory", Label: "View Inventory", Description: "View inventory items"},
	{Key: EditInventory, Category: "Inventory", Label: "Edit Inventory", Description: "Add, edit, and delete inventory items"},
	{Key: GenerateOrders, Category: "Inventory", Label: "Generate Orders", Description: "Generate AI-powered inventory orders"},
	{Key: ViewEmployees, Category: "Employees", Label: "View Employees", Description: "View employee list"},
	{Key: EditEmployees, Category: "Employees", Label: "Edit Employees", Description: "Add, edit, and delete employees"},
	{Key: ManagePermissions, Category: "Employees", Label: "Manage User Permissions", Description: "Manage user roles and permissions"},
	{Key: ViewSchedule, Category: "Schedule", Label: "View Schedule", Description: "View work schedules"},
	{Key: EditSchedule, Category: "Schedule", Label: "Edit Schedule", Description: "Create and edit schedules"},
	{Key: GenerateSchedule, Category: "Schedule", Label: "Generate AI Schedule", Description: "Generate AI-powered schedules"},
	{Key: SetAvailability, Category: "Schedule", Label: "Set Own Availability", Description: "Set own availability"},
	{Key: ViewFinancials, Category: "Financials", Label: "View Financials", Description: "View financial data"},
	{Key: EditFinancials, Category: "Financials", Label: "Edit Financials", Description: "Edit financial transactions"},
	{Key: ViewReminders, Category: "Reminders", Label: "View Reminders", Description: "View reminders"},
	{Key: EditReminders, Category: "Reminders", Label: "Edit Reminders", Description: "Create and edit reminders"},
	{Key: SetReminders, Category: "Reminders", Label: "Set Personal Reminders", Description: "Set personal reminders"},
	{Key: EditBusiness, Category: "Business", Label: "Edit Business Settings", Description: "Edit business settings and branding"},
}
