package policy

// Department names a user's department. It is the only input to permission decisions.
type Department string

const (
	DepartmentGestion    Department = "Gestion"
	DepartmentCommercial Department = "Commercial"
	DepartmentSupport    Department = "Support"
)

// Departments lists the fixed set of departments seeded at schema bootstrap.
func Departments() []Department {
	return []Department{DepartmentGestion, DepartmentCommercial, DepartmentSupport}
}

// Valid reports whether d is one of the fixed departments.
func (d Department) Valid() bool {
	switch d {
	case DepartmentGestion, DepartmentCommercial, DepartmentSupport:
		return true
	}
	return false
}

// Permission is a named capability from the permission catalog.
type Permission string

const (
	CanManageUsers        Permission = "can_manage_users"
	CanListUsers          Permission = "can_list_users"
	CanCreateClients      Permission = "can_create_clients"
	CanModifyOwnClients   Permission = "can_modify_own_clients"
	CanModifyAllClients   Permission = "can_modify_all_clients"
	CanCreateContracts    Permission = "can_create_contracts"
	CanModifyOwnContracts Permission = "can_modify_own_contracts"
	CanModifyAllContracts Permission = "can_modify_all_contracts"
	CanFilterContracts    Permission = "can_filter_contracts"
	CanCreateEvents       Permission = "can_create_events"
	CanModifyOwnEvents    Permission = "can_modify_own_events"
	CanModifyAllEvents    Permission = "can_modify_all_events"
	CanAssignSupport      Permission = "can_assign_support"
	CanFilterEvents       Permission = "can_filter_events"
)

// Catalog returns every permission name the system knows about.
func Catalog() []Permission {
	return []Permission{
		CanManageUsers,
		CanListUsers,
		CanCreateClients,
		CanModifyOwnClients,
		CanModifyAllClients,
		CanCreateContracts,
		CanModifyOwnContracts,
		CanModifyAllContracts,
		CanFilterContracts,
		CanCreateEvents,
		CanModifyOwnEvents,
		CanModifyAllEvents,
		CanAssignSupport,
		CanFilterEvents,
	}
}

// ParsePermission resolves a catalog name. Unknown names report false.
func ParsePermission(name string) (Permission, bool) {
	for _, p := range Catalog() {
		if string(p) == name {
			return p, true
		}
	}
	return "", false
}

// Policy answers whether a department holds a permission.
type Policy interface {
	HasPermission(department Department, permission Permission) bool
}
