package policy

// Table is a static department to permission mapping.
type Table map[Department]map[Permission]struct{}

// NewTable builds a Table from department grants.
func NewTable(grants map[Department][]Permission) Table {
	t := make(Table, len(grants))
	for dept, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		t[dept] = set
	}
	return t
}

var defaultTable = NewTable(map[Department][]Permission{
	DepartmentGestion: {
		CanManageUsers,
		CanListUsers,
		CanModifyAllContracts,
		CanAssignSupport,
		CanModifyAllEvents,
		CanFilterEvents,
		CanFilterContracts,
	},
	DepartmentCommercial: {
		CanCreateClients,
		CanModifyOwnClients,
		CanModifyOwnContracts,
		CanCreateEvents,
		CanFilterContracts,
	},
	DepartmentSupport: {
		CanModifyOwnEvents,
		CanFilterEvents,
	},
})

// Default returns the production permission table.
func Default() Table {
	return defaultTable
}

// HasPermission reports whether department holds permission.
// Unknown departments and unknown permissions both resolve to false.
func (t Table) HasPermission(department Department, permission Permission) bool {
	perms, ok := t[department]
	if !ok {
		return false
	}
	_, ok = perms[permission]
	return ok
}

// Permissions returns the catalog-ordered permissions granted to department.
func (t Table) Permissions(department Department) []Permission {
	var out []Permission
	for _, p := range Catalog() {
		if t.HasPermission(department, p) {
			out = append(out, p)
		}
	}
	return out
}

// Granted returns the subset of requested that p grants to department,
// preserving the requested order and dropping duplicates.
func Granted(p Policy, department Department, requested ...Permission) []Permission {
	granted := make([]Permission, 0, len(requested))
	seen := make(map[Permission]struct{}, len(requested))
	for _, perm := range requested {
		if _, dup := seen[perm]; dup {
			continue
		}
		seen[perm] = struct{}{}
		if p.HasPermission(department, perm) {
			granted = append(granted, perm)
		}
	}
	return granted
}
