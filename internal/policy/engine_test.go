package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTable_MatchesDepartmentGrants(t *testing.T) {
	expected := map[Department][]Permission{
		DepartmentGestion: {
			CanManageUsers, CanListUsers, CanModifyAllContracts, CanAssignSupport,
			CanModifyAllEvents, CanFilterEvents, CanFilterContracts,
		},
		DepartmentCommercial: {
			CanCreateClients, CanModifyOwnClients, CanModifyOwnContracts,
			CanCreateEvents, CanFilterContracts,
		},
		DepartmentSupport: {
			CanModifyOwnEvents, CanFilterEvents,
		},
	}

	table := Default()
	for dept, granted := range expected {
		allowed := make(map[Permission]bool, len(granted))
		for _, p := range granted {
			allowed[p] = true
		}
		for _, p := range Catalog() {
			assert.Equal(t, allowed[p], table.HasPermission(dept, p), "%s / %s", dept, p)
		}
	}
}

func TestTable_HasPermission_Unknowns(t *testing.T) {
	table := Default()

	assert.False(t, table.HasPermission("Marketing", CanListUsers))
	assert.False(t, table.HasPermission("", CanListUsers))
	assert.False(t, table.HasPermission(DepartmentGestion, "can_launch_rockets"))
	assert.False(t, table.HasPermission(DepartmentGestion, ""))
}

func TestTable_Permissions(t *testing.T) {
	assert.Equal(t, []Permission{CanModifyOwnEvents, CanFilterEvents}, Default().Permissions(DepartmentSupport))
	assert.Empty(t, Default().Permissions("Marketing"))
}

func TestGranted(t *testing.T) {
	table := Default()

	t.Run("returns the granted subset in request order", func(t *testing.T) {
		got := Granted(table, DepartmentCommercial, CanModifyAllContracts, CanModifyOwnContracts)
		assert.Equal(t, []Permission{CanModifyOwnContracts}, got)
	})

	t.Run("empty when nothing granted", func(t *testing.T) {
		got := Granted(table, DepartmentSupport, CanManageUsers, CanAssignSupport)
		assert.Empty(t, got)
	})

	t.Run("deduplicates", func(t *testing.T) {
		got := Granted(table, DepartmentGestion, CanAssignSupport, CanAssignSupport)
		assert.Equal(t, []Permission{CanAssignSupport}, got)
	})
}

func TestCustomTable(t *testing.T) {
	table := NewTable(map[Department][]Permission{
		DepartmentGestion: {CanCreateContracts},
	})

	var p Policy = table
	assert.True(t, p.HasPermission(DepartmentGestion, CanCreateContracts))
	assert.False(t, p.HasPermission(DepartmentGestion, CanManageUsers))
	// The default table is untouched.
	assert.False(t, Default().HasPermission(DepartmentGestion, CanCreateContracts))
}

func TestParsePermission(t *testing.T) {
	p, ok := ParsePermission("can_assign_support")
	assert.True(t, ok)
	assert.Equal(t, CanAssignSupport, p)

	_, ok = ParsePermission("can_fly")
	assert.False(t, ok)
}

func TestDepartment_Valid(t *testing.T) {
	for _, d := range Departments() {
		assert.True(t, d.Valid())
	}
	assert.False(t, Department("gestion").Valid())
}
