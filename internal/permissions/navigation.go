package permissions

// NavEntry is one gated entry in the console navigation shell.
type NavEntry struct {
	Path  string `json:"path"`
	Label string `json:"label"`
	Key   Key    `json:"key"`
}

// navEntries lists the console surfaces and the capability gating each one.
// This filtering is advisory layout only; the authorization boundary is the
// middleware, which re-fetches the persisted record per request.
var navEntries = []NavEntry{
	{Path: "/dashboard", Label: "Dashboard", Key: ViewDashboard},
	{Path: "/inventory", Label: "Inventory", Key: ViewInventory},
	{Path: "/employees", Label: "Employees", Key: ViewEmployees},
	{Path: "/schedule", Label: "Schedule", Key: ViewSchedule},
	{Path: "/financials", Label: "Financials", Key: ViewFinancials},
	{Path: "/reminders", Label: "Reminders", Key: ViewReminders},
	{Path: "/admin/permissions", Label: "Permissions", Key: ManagePermissions},
	{Path: "/settings/business", Label: "Business Settings", Key: EditBusiness},
}

// Navigation returns the nav entries visible to the resolved set.
func Navigation(granted Set) []NavEntry {
	visible := make([]NavEntry, 0, len(navEntries))
	for _, entry := range navEntries {
		if granted.Contains(entry.Key) {
			visible = append(visible, entry)
		}
	}
	return visible
}
