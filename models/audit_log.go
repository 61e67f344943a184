package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionUserCreated     AuditAction = "user_created"
	AuditActionUserUpdated     AuditAction = "user_updated"
	AuditActionUserDeleted     AuditAction = "user_deleted"
	AuditActionClientCreated   AuditAction = "client_created"
	AuditActionClientUpdated   AuditAction = "client_updated"
	AuditActionContractCreated AuditAction = "contract_created"
	AuditActionContractUpdated AuditAction = "contract_updated"
	AuditActionContractSigned  AuditAction = "contract_signed"
	AuditActionContractDeleted AuditAction = "contract_deleted"
	AuditActionEventCreated    AuditAction = "event_created"
	AuditActionEventUpdated    AuditAction = "event_updated"
	AuditActionSupportAssigned AuditAction = "support_assigned"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ActorID      *int64          `json:"actor_id,omitempty" db:"actor_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // user, client, contract, event
	ResourceID   *int64          `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		CreatedAt:    time.Now().UTC(),
	}
}

// WithActor sets the acting user
func (a *AuditLog) WithActor(actorID int64) *AuditLog {
	a.ActorID = &actorID
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID int64) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}
