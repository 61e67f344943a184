package ownership

import (
	"testing"

	"github.com/epicevents/crm/models"
	"github.com/stretchr/testify/assert"
)

func TestForClient(t *testing.T) {
	r := ForClient(&models.Client{ID: 3, SalesContactID: 10})

	assert.Equal(t, KindClient, r.Kind)
	assert.True(t, IsOwner(10, r))
	assert.False(t, IsOwner(11, r))
}

func TestForContract_UsesClientSalesContact(t *testing.T) {
	// The stored sales contact is stale; the client's current one owns the contract.
	c := &models.Contract{ID: 5, SalesContactID: 10, ClientSalesContactID: 12}
	r := ForContract(c)

	assert.Equal(t, KindContract, r.Kind)
	assert.True(t, IsOwner(12, r))
	assert.False(t, IsOwner(10, r))
}

func TestForEvent(t *testing.T) {
	t.Run("unassigned event has no owner", func(t *testing.T) {
		r := ForEvent(&models.Event{ID: 1})
		assert.Nil(t, r.OwnerID)
		assert.False(t, IsOwner(0, r))
	})

	t.Run("support contact owns the event", func(t *testing.T) {
		support := int64(21)
		r := ForEvent(&models.Event{ID: 1, SupportContactID: &support})
		assert.True(t, IsOwner(21, r))
		assert.False(t, IsOwner(22, r))
	})

	t.Run("record does not alias the event", func(t *testing.T) {
		support := int64(21)
		e := &models.Event{ID: 1, SupportContactID: &support}
		r := ForEvent(e)
		*e.SupportContactID = 99
		assert.True(t, IsOwner(21, r))
	})
}

func TestPermits(t *testing.T) {
	r := ForClient(&models.Client{ID: 3, SalesContactID: 10})

	assert.True(t, Permits(10, false, r))
	assert.False(t, Permits(11, false, r))
	assert.True(t, Permits(11, true, r))
}
