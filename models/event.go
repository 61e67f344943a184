package models

import "time"

// Event is the single event organised under a signed contract.
// SupportContactID stays nil until a Support collaborator is assigned.
type Event struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	ContractID       int64     `json:"contract_id" db:"contract_id"`
	SupportContactID *int64    `json:"support_contact_id,omitempty" db:"support_contact_id"`
	StartDate        time.Time `json:"start_date" db:"start_date"`
	EndDate          time.Time `json:"end_date" db:"end_date"`
	Location         string    `json:"location" db:"location"`
	Attendees        int       `json:"attendees" db:"attendees"`
	Notes            string    `json:"notes" db:"notes"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Event model
func (Event) TableName() string {
	return "events"
}

// HasEnded reports whether the event's end lies strictly before now.
func (e *Event) HasEnded(now time.Time) bool {
	return e.EndDate.Before(now)
}

// HasSupport reports whether a support contact is assigned.
func (e *Event) HasSupport() bool {
	return e.SupportContactID != nil
}
