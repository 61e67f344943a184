package models

import "time"

// CreateUserInput carries the fields needed to create a collaborator.
type CreateUserInput struct {
	Username   string `json:"username" validate:"required,min=3,max=50"`
	Password   string `json:"password" validate:"required,min=8,max=128"`
	FullName   string `json:"full_name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Phone      string `json:"phone" validate:"max=20"`
	Department string `json:"department" validate:"required,oneof=Gestion Commercial Support"`
}

// UpdateUserInput carries optional user changes. Nil fields are left untouched.
type UpdateUserInput struct {
	FullName   *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=100"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Department *string `json:"department,omitempty" validate:"omitempty,oneof=Gestion Commercial Support"`
	Password   *string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
}

// CreateClientInput carries the fields needed to create a client.
type CreateClientInput struct {
	FullName    string `json:"full_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Phone       string `json:"phone" validate:"max=20"`
	CompanyName string `json:"company_name" validate:"max=100"`
}

// UpdateClientInput carries optional client changes.
type UpdateClientInput struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,min=1,max=100"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,max=100"`
}

// CreateContractInput carries the fields needed to create a contract.
// The sales contact is never supplied by the caller.
type CreateContractInput struct {
	ClientID        int64 `json:"client_id" validate:"required,gt=0"`
	Amount          Money `json:"amount" validate:"gte=0"`
	RemainingAmount Money `json:"remaining_amount" validate:"gte=0"`
	Signed          bool  `json:"signed"`
}

// UpdateContractInput carries optional contract changes.
type UpdateContractInput struct {
	Amount          *Money `json:"amount,omitempty" validate:"omitempty,gte=0"`
	RemainingAmount *Money `json:"remaining_amount,omitempty" validate:"omitempty,gte=0"`
	Signed          *bool  `json:"signed,omitempty"`
}

// Empty reports whether the update changes nothing.
func (in UpdateContractInput) Empty() bool {
	return in.Amount == nil && in.RemainingAmount == nil && in.Signed == nil
}

// CreateEventInput carries the fields needed to create an event.
type CreateEventInput struct {
	ContractID int64     `json:"contract_id" validate:"required,gt=0"`
	Name       string    `json:"name" validate:"required,max=100"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required"`
	Location   string    `json:"location" validate:"max=255"`
	Attendees  int       `json:"attendees" validate:"gte=0"`
	Notes      string    `json:"notes" validate:"max=2000"`
}

// UpdateEventInput carries optional event changes. The support contact is
// changed through support assignment only.
type UpdateEventInput struct {
	Name      *string    `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Location  *string    `json:"location,omitempty" validate:"omitempty,max=255"`
	Attendees *int       `json:"attendees,omitempty" validate:"omitempty,gte=0"`
	Notes     *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Empty reports whether the update changes nothing.
func (in UpdateEventInput) Empty() bool {
	return in.Name == nil && in.StartDate == nil && in.EndDate == nil &&
		in.Location == nil && in.Attendees == nil && in.Notes == nil
}
