package models

import "time"

// Client is a customer account owned by a Commercial collaborator.
type Client struct {
	ID             int64     `json:"id" db:"id"`
	FullName       string    `json:"full_name" db:"full_name"`
	Email          string    `json:"email" db:"email"`
	Phone          string    `json:"phone" db:"phone"`
	CompanyName    string    `json:"company_name" db:"company_name"`
	SalesContactID int64     `json:"sales_contact_id" db:"sales_contact_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Client model
func (Client) TableName() string {
	return "clients"
}
