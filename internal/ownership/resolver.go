// Package ownership decides whether an actor is the responsible contact for
// a client, contract or event.
package ownership

import "github.com/epicevents/crm/models"

// Kind tags which owner field a Record was built from.
type Kind string

const (
	KindClient   Kind = "client"
	KindContract Kind = "contract"
	KindEvent    Kind = "event"
)

// Record is the owner view of an entity. OwnerID is nil when nobody owns it,
// which happens for events without an assigned support contact.
type Record struct {
	Kind    Kind
	ID      int64
	OwnerID *int64
}

// ForClient owns a client through its sales contact.
func ForClient(c *models.Client) Record {
	owner := c.SalesContactID
	return Record{Kind: KindClient, ID: c.ID, OwnerID: &owner}
}

// ForContract owns a contract through its client's sales contact.
func ForContract(c *models.Contract) Record {
	owner := c.ClientSalesContactID
	return Record{Kind: KindContract, ID: c.ID, OwnerID: &owner}
}

// ForEvent owns an event through its support contact.
func ForEvent(e *models.Event) Record {
	r := Record{Kind: KindEvent, ID: e.ID}
	if e.SupportContactID != nil {
		owner := *e.SupportContactID
		r.OwnerID = &owner
	}
	return r
}

// IsOwner reports whether actorID is the record's owner.
func IsOwner(actorID int64, r Record) bool {
	return r.OwnerID != nil && *r.OwnerID == actorID
}

// Permits combines the scope of a granted permission with ownership: an
// "all" grant covers every record, an "own" grant only the actor's records.
func Permits(actorID int64, all bool, r Record) bool {
	return all || IsOwner(actorID, r)
}
