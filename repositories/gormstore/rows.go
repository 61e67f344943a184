package gormstore

import (
	"time"

	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/google/uuid"
)

// Row types carry the gorm mapping so the domain models stay free of
// storage tags. Association fields exist only to declare foreign keys.

type departmentRow struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:50;not null;uniqueIndex"`
}

func (departmentRow) TableName() string { return "departments" }

type userRow struct {
	ID           int64          `gorm:"primaryKey"`
	Username     string         `gorm:"size:50;not null;uniqueIndex:users_username_key"`
	PasswordHash string         `gorm:"size:255;not null"`
	FullName     string         `gorm:"size:100;not null"`
	Email        string         `gorm:"size:255;not null;uniqueIndex:users_email_key"`
	Phone        string         `gorm:"size:20;not null;default:''"`
	DepartmentID int64          `gorm:"not null;index"`
	Department   *departmentRow `gorm:"foreignKey:DepartmentID;constraint:OnDelete:RESTRICT"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type clientRow struct {
	ID             int64    `gorm:"primaryKey"`
	FullName       string   `gorm:"size:100;not null"`
	Email          string   `gorm:"size:255;not null;uniqueIndex:clients_email_key"`
	Phone          string   `gorm:"size:20;not null;default:''"`
	CompanyName    string   `gorm:"size:100;not null;default:''"`
	SalesContactID int64    `gorm:"not null;index"`
	SalesContact   *userRow `gorm:"foreignKey:SalesContactID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (clientRow) TableName() string { return "clients" }

type contractRow struct {
	ID             int64      `gorm:"primaryKey"`
	ClientID       int64      `gorm:"not null;index"`
	Client         *clientRow `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
	SalesContactID int64      `gorm:"not null;index"`
	SalesContact   *userRow   `gorm:"foreignKey:SalesContactID;constraint:OnDelete:CASCADE"`
	Signed         bool       `gorm:"not null;default:false"`
	AmountCents    int64      `gorm:"not null;check:amount_cents >= 0"`
	RemainingCents int64      `gorm:"not null;check:remaining_cents >= 0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (contractRow) TableName() string { return "contracts" }

// contractView is a contract joined with its client's current sales contact.
type contractView struct {
	contractRow
	ClientSalesContactID int64
}

type eventRow struct {
	ID               int64        `gorm:"primaryKey"`
	Name             string       `gorm:"size:100;not null"`
	ContractID       int64        `gorm:"not null;uniqueIndex:events_contract_id_key"`
	Contract         *contractRow `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
	SupportContactID *int64       `gorm:"index"`
	SupportContact   *userRow     `gorm:"foreignKey:SupportContactID;constraint:OnDelete:SET NULL"`
	StartDate        time.Time    `gorm:"not null"`
	EndDate          time.Time    `gorm:"not null"`
	Location         string       `gorm:"size:255;not null;default:''"`
	Attendees        int          `gorm:"not null;default:0"`
	Notes            string       `gorm:"not null;default:''"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (eventRow) TableName() string { return "events" }

type auditLogRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	ActorID      *int64 `gorm:"index"`
	Action       string `gorm:"size:100;not null"`
	ResourceType string `gorm:"size:50;not null;index:idx_audit_logs_resource"`
	ResourceID   *int64 `gorm:"index:idx_audit_logs_resource"`
	Details      []byte
	CreatedAt    time.Time
}

func (auditLogRow) TableName() string { return "audit_logs" }

type loginAttemptRow struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Username    string    `gorm:"size:50;not null;index:idx_login_attempts_username"`
	AttemptedAt time.Time `gorm:"not null;index:idx_login_attempts_username"`
}

func (loginAttemptRow) TableName() string { return "login_attempts" }

// allRows lists the tables in dependency order for AutoMigrate.
func allRows() []interface{} {
	return []interface{}{
		&departmentRow{}, &userRow{}, &clientRow{}, &contractRow{}, &eventRow{},
		&auditLogRow{}, &loginAttemptRow{},
	}
}

func toUser(r *userRow) *models.User {
	u := &models.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		FullName:     r.FullName,
		Email:        r.Email,
		Phone:        r.Phone,
		DepartmentID: r.DepartmentID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Department != nil {
		u.Department = policy.Department(r.Department.Name)
	}
	return u
}

func fromUser(u *models.User) *userRow {
	return &userRow{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		Email:        u.Email,
		Phone:        u.Phone,
		DepartmentID: u.DepartmentID,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toClient(r *clientRow) *models.Client {
	return &models.Client{
		ID:             r.ID,
		FullName:       r.FullName,
		Email:          r.Email,
		Phone:          r.Phone,
		CompanyName:    r.CompanyName,
		SalesContactID: r.SalesContactID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func fromClient(c *models.Client) *clientRow {
	return &clientRow{
		ID:             c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		Phone:          c.Phone,
		CompanyName:    c.CompanyName,
		SalesContactID: c.SalesContactID,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toContract(v *contractView) *models.Contract {
	return &models.Contract{
		ID:                   v.ID,
		ClientID:             v.ClientID,
		SalesContactID:       v.SalesContactID,
		Signed:               v.Signed,
		Amount:               models.Money(v.AmountCents),
		RemainingAmount:      models.Money(v.RemainingCents),
		CreatedAt:            v.CreatedAt,
		UpdatedAt:            v.UpdatedAt,
		ClientSalesContactID: v.ClientSalesContactID,
	}
}

func fromContract(c *models.Contract) *contractRow {
	return &contractRow{
		ID:             c.ID,
		ClientID:       c.ClientID,
		SalesContactID: c.SalesContactID,
		Signed:         c.Signed,
		AmountCents:    int64(c.Amount),
		RemainingCents: int64(c.RemainingAmount),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toEvent(r *eventRow) *models.Event {
	e := &models.Event{
		ID:         r.ID,
		Name:       r.Name,
		ContractID: r.ContractID,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		Location:   r.Location,
		Attendees:  r.Attendees,
		Notes:      r.Notes,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.SupportContactID != nil {
		id := *r.SupportContactID
		e.SupportContactID = &id
	}
	return e
}

func fromEvent(e *models.Event) *eventRow {
	r := &eventRow{
		ID:         e.ID,
		Name:       e.Name,
		ContractID: e.ContractID,
		StartDate:  e.StartDate,
		EndDate:    e.EndDate,
		Location:   e.Location,
		Attendees:  e.Attendees,
		Notes:      e.Notes,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
	if e.SupportContactID != nil {
		id := *e.SupportContactID
		r.SupportContactID = &id
	}
	return r
}

func toAuditLog(r *auditLogRow) (*models.AuditLog, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	return &models.AuditLog{
		ID:           id,
		ActorID:      r.ActorID,
		Action:       models.AuditAction(r.Action),
		ResourceType: r.ResourceType,
		ResourceID:   r.ResourceID,
		Details:      r.Details,
		CreatedAt:    r.CreatedAt,
	}, nil
}
