package audit

import "github.com/epicevents/crm/models"

// Builders for the entries the domain services record.

func UserCreated(actorID int64, u *models.User) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionUserCreated, "user").
		WithActor(actorID).
		WithResource(u.ID).
		WithDetails(map[string]interface{}{
			"username":   u.Username,
			"department": u.Department,
		})
}

func UserUpdated(actorID int64, u *models.User, changes []string) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionUserUpdated, "user").
		WithActor(actorID).
		WithResource(u.ID).
		WithDetails(map[string]interface{}{"changes": changes})
}

func UserDeleted(actorID int64, u *models.User, holdings *models.UserHoldings) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionUserDeleted, "user").
		WithActor(actorID).
		WithResource(u.ID).
		WithDetails(map[string]interface{}{
			"username": u.Username,
			"holdings": holdings,
		})
}

func ClientCreated(actorID int64, c *models.Client) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionClientCreated, "client").
		WithActor(actorID).
		WithResource(c.ID).
		WithDetails(map[string]interface{}{"email": c.Email})
}

func ClientUpdated(actorID int64, c *models.Client, changes []string) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionClientUpdated, "client").
		WithActor(actorID).
		WithResource(c.ID).
		WithDetails(map[string]interface{}{"changes": changes})
}

func ContractCreated(actorID int64, c *models.Contract) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionContractCreated, "contract").
		WithActor(actorID).
		WithResource(c.ID).
		WithDetails(map[string]interface{}{
			"client_id": c.ClientID,
			"amount":    c.Amount.String(),
			"signed":    c.Signed,
		})
}

func ContractUpdated(actorID int64, c *models.Contract, changes []string) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionContractUpdated, "contract").
		WithActor(actorID).
		WithResource(c.ID).
		WithDetails(map[string]interface{}{"changes": changes})
}

func ContractSigned(actorID int64, c *models.Contract) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionContractSigned, "contract").
		WithActor(actorID).
		WithResource(c.ID).
		WithDetails(map[string]interface{}{"amount": c.Amount.String()})
}

func ContractDeleted(actorID int64, c *models.Contract) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionContractDeleted, "contract").
		WithActor(actorID).
		WithResource(c.ID).
		WithDetails(map[string]interface{}{"client_id": c.ClientID})
}

func EventCreated(actorID int64, e *models.Event) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionEventCreated, "event").
		WithActor(actorID).
		WithResource(e.ID).
		WithDetails(map[string]interface{}{"contract_id": e.ContractID})
}

func EventUpdated(actorID int64, e *models.Event, changes []string) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionEventUpdated, "event").
		WithActor(actorID).
		WithResource(e.ID).
		WithDetails(map[string]interface{}{"changes": changes})
}

func SupportAssigned(actorID int64, e *models.Event, supportID int64) *models.AuditLog {
	return models.NewAuditLog(models.AuditActionSupportAssigned, "event").
		WithActor(actorID).
		WithResource(e.ID).
		WithDetails(map[string]interface{}{"support_contact_id": supportID})
}
