package models

import "time"

// ContractStatus is the lifecycle state of a contract.
type ContractStatus string

const (
	ContractUnsigned ContractStatus = "unsigned"
	ContractSigned   ContractStatus = "signed"
)

// Contract binds a client to an amount. SalesContactID is copied from the
// client when the contract is created. ClientSalesContactID is the client's
// current sales contact, loaded alongside the contract for ownership checks.
type Contract struct {
	ID                   int64     `json:"id" db:"id"`
	ClientID             int64     `json:"client_id" db:"client_id"`
	SalesContactID       int64     `json:"sales_contact_id" db:"sales_contact_id"`
	Signed               bool      `json:"signed" db:"signed"`
	Amount               Money     `json:"amount" db:"amount"`
	RemainingAmount      Money     `json:"remaining_amount" db:"remaining_amount"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
	ClientSalesContactID int64     `json:"-" db:"client_sales_contact_id"`
}

// TableName returns the table name for the Contract model
func (Contract) TableName() string {
	return "contracts"
}

// Status returns the contract's lifecycle state.
func (c *Contract) Status() ContractStatus {
	if c.Signed {
		return ContractSigned
	}
	return ContractUnsigned
}

// IsPaid reports whether nothing remains to be paid.
func (c *Contract) IsPaid() bool {
	return c.RemainingAmount == 0
}
