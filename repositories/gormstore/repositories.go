package gormstore

import (
	"context"
	"time"

	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DepartmentRepository implements repositories.DepartmentRepository
type DepartmentRepository struct {
	store *Store
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*models.Department, error) {
	var row departmentRow
	if err := r.store.conn(ctx).First(&row, id).Error; err != nil {
		return nil, translate("get department", err)
	}
	return &models.Department{ID: row.ID, Name: policy.Department(row.Name)}, nil
}

func (r *DepartmentRepository) GetByName(ctx context.Context, name policy.Department) (*models.Department, error) {
	var row departmentRow
	if err := r.store.conn(ctx).Where("name = ?", string(name)).First(&row).Error; err != nil {
		return nil, translate("get department by name", err)
	}
	return &models.Department{ID: row.ID, Name: policy.Department(row.Name)}, nil
}

func (r *DepartmentRepository) List(ctx context.Context) ([]*models.Department, error) {
	var rows []departmentRow
	if err := r.store.conn(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, translate("list departments", err)
	}
	depts := make([]*models.Department, 0, len(rows))
	for _, row := range rows {
		depts = append(depts, &models.Department{ID: row.ID, Name: policy.Department(row.Name)})
	}
	return depts, nil
}

// UserRepository implements repositories.UserRepository
type UserRepository struct {
	store *Store
}

func (r *UserRepository) users(ctx context.Context) *gorm.DB {
	return r.store.conn(ctx).Joins("Department")
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	row := fromUser(user)
	if err := r.store.conn(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return translate("create user", err)
	}
	user.ID = row.ID
	r.store.logger.Debug("user created", zap.Int64("id", user.ID), zap.String("username", user.Username))
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, op string, query string, arg interface{}) (*models.User, error) {
	var row userRow
	if err := r.users(ctx).Where(query, arg).First(&row).Error; err != nil {
		return nil, translate(op, err)
	}
	return toUser(&row), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "get user", "users.id = ?", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "get user by username", "users.username = ?", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "get user by email", "users.email = ?", email)
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	result := r.store.conn(ctx).Model(&userRow{ID: user.ID}).Updates(map[string]interface{}{
		"password_hash": user.PasswordHash,
		"full_name":     user.FullName,
		"email":         user.Email,
		"phone":         user.Phone,
		"department_id": user.DepartmentID,
		"updated_at":    user.UpdatedAt,
	})
	return affected("update user", result)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return affected("delete user", r.store.conn(ctx).Delete(&userRow{}, id))
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	var rows []userRow
	if err := r.users(ctx).Order("users.id").Find(&rows).Error; err != nil {
		return nil, translate("list users", err)
	}
	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		users = append(users, toUser(&rows[i]))
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.store.conn(ctx).Model(&userRow{}).Count(&n).Error; err != nil {
		return 0, translate("count users", err)
	}
	return int(n), nil
}

func (r *UserRepository) Holdings(ctx context.Context, id int64) (*models.UserHoldings, error) {
	db := r.store.conn(ctx)
	var clients, contracts, events int64
	if err := db.Model(&clientRow{}).Where("sales_contact_id = ?", id).Count(&clients).Error; err != nil {
		return nil, translate("count user holdings", err)
	}
	if err := db.Model(&contractRow{}).Where("sales_contact_id = ?", id).Count(&contracts).Error; err != nil {
		return nil, translate("count user holdings", err)
	}
	if err := db.Model(&eventRow{}).Where("support_contact_id = ?", id).Count(&events).Error; err != nil {
		return nil, translate("count user holdings", err)
	}
	return &models.UserHoldings{Clients: int(clients), Contracts: int(contracts), Events: int(events)}, nil
}

// ClientRepository implements repositories.ClientRepository
type ClientRepository struct {
	store *Store
}

func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	row := fromClient(client)
	if err := r.store.conn(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return translate("create client", err)
	}
	client.ID = row.ID
	r.store.logger.Debug("client created", zap.Int64("id", client.ID))
	return nil
}

func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	var row clientRow
	if err := r.store.conn(ctx).First(&row, id).Error; err != nil {
		return nil, translate("get client", err)
	}
	return toClient(&row), nil
}

func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	result := r.store.conn(ctx).Model(&clientRow{ID: client.ID}).Updates(map[string]interface{}{
		"full_name":    client.FullName,
		"email":        client.Email,
		"phone":        client.Phone,
		"company_name": client.CompanyName,
		"updated_at":   client.UpdatedAt,
	})
	return affected("update client", result)
}

func (r *ClientRepository) List(ctx context.Context) ([]*models.Client, error) {
	return r.find(ctx, r.store.conn(ctx))
}

func (r *ClientRepository) ListBySalesContact(ctx context.Context, salesContactID int64) ([]*models.Client, error) {
	return r.find(ctx, r.store.conn(ctx).Where("sales_contact_id = ?", salesContactID))
}

func (r *ClientRepository) find(_ context.Context, db *gorm.DB) ([]*models.Client, error) {
	var rows []clientRow
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, translate("list clients", err)
	}
	clients := make([]*models.Client, 0, len(rows))
	for i := range rows {
		clients = append(clients, toClient(&rows[i]))
	}
	return clients, nil
}

// ContractRepository implements repositories.ContractRepository
type ContractRepository struct {
	store *Store
}

func (r *ContractRepository) contracts(ctx context.Context) *gorm.DB {
	return r.store.conn(ctx).
		Table("contracts").
		Select("contracts.*, clients.sales_contact_id AS client_sales_contact_id").
		Joins("JOIN clients ON clients.id = contracts.client_id")
}

func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	row := fromContract(contract)
	if err := r.store.conn(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return translate("create contract", err)
	}
	contract.ID = row.ID
	r.store.logger.Debug("contract created", zap.Int64("id", contract.ID))
	return nil
}

func (r *ContractRepository) GetByID(ctx context.Context, id int64) (*models.Contract, error) {
	return r.getOne(r.contracts(ctx), "get contract", id)
}

// GetByIDForUpdate asks for a row lock. SQLite ignores the clause; its
// single connection already serializes writers.
func (r *ContractRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Contract, error) {
	return r.getOne(r.contracts(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "lock contract", id)
}

func (r *ContractRepository) getOne(db *gorm.DB, op string, id int64) (*models.Contract, error) {
	var views []contractView
	if err := db.Where("contracts.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, translate(op, err)
	}
	if len(views) == 0 {
		return nil, translate(op, gorm.ErrRecordNotFound)
	}
	return toContract(&views[0]), nil
}

func (r *ContractRepository) Update(ctx context.Context, contract *models.Contract) error {
	result := r.store.conn(ctx).Model(&contractRow{ID: contract.ID}).Updates(map[string]interface{}{
		"signed":          contract.Signed,
		"amount_cents":    int64(contract.Amount),
		"remaining_cents": int64(contract.RemainingAmount),
		"updated_at":      contract.UpdatedAt,
	})
	return affected("update contract", result)
}

func (r *ContractRepository) Delete(ctx context.Context, id int64) error {
	return affected("delete contract", r.store.conn(ctx).Delete(&contractRow{}, id))
}

func (r *ContractRepository) List(ctx context.Context, filter repositories.ContractFilter) ([]*models.Contract, error) {
	db := r.contracts(ctx)
	if filter.ClientID != 0 {
		db = db.Where("contracts.client_id = ?", filter.ClientID)
	}
	if filter.SalesContactID != 0 {
		db = db.Where("clients.sales_contact_id = ?", filter.SalesContactID)
	}
	if filter.Signed != nil {
		db = db.Where("contracts.signed = ?", *filter.Signed)
	}
	if filter.UnpaidOnly {
		db = db.Where("contracts.remaining_cents > 0")
	}

	var views []contractView
	if err := db.Order("contracts.id").Scan(&views).Error; err != nil {
		return nil, translate("list contracts", err)
	}
	contracts := make([]*models.Contract, 0, len(views))
	for i := range views {
		contracts = append(contracts, toContract(&views[i]))
	}
	return contracts, nil
}

func (r *ContractRepository) ListByClient(ctx context.Context, clientID int64) ([]*models.Contract, error) {
	return r.List(ctx, repositories.ContractFilter{ClientID: clientID})
}

// EventRepository implements repositories.EventRepository
type EventRepository struct {
	store *Store
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	row := fromEvent(event)
	if err := r.store.conn(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return translate("create event", err)
	}
	event.ID = row.ID
	r.store.logger.Debug("event created", zap.Int64("id", event.ID), zap.Int64("contract_id", event.ContractID))
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	return r.getOne(r.store.conn(ctx).Where("id = ?", id), "get event")
}

func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Event, error) {
	return r.getOne(r.store.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id), "lock event")
}

func (r *EventRepository) GetByContractID(ctx context.Context, contractID int64) (*models.Event, error) {
	return r.getOne(r.store.conn(ctx).Where("contract_id = ?", contractID), "get event by contract")
}

func (r *EventRepository) getOne(db *gorm.DB, op string) (*models.Event, error) {
	var row eventRow
	if err := db.First(&row).Error; err != nil {
		return nil, translate(op, err)
	}
	return toEvent(&row), nil
}

func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	result := r.store.conn(ctx).Model(&eventRow{ID: event.ID}).Updates(map[string]interface{}{
		"name":               event.Name,
		"support_contact_id": event.SupportContactID,
		"start_date":         event.StartDate,
		"end_date":           event.EndDate,
		"location":           event.Location,
		"attendees":          event.Attendees,
		"notes":              event.Notes,
		"updated_at":         event.UpdatedAt,
	})
	return affected("update event", result)
}

func (r *EventRepository) List(ctx context.Context, filter repositories.EventFilter) ([]*models.Event, error) {
	db := r.store.conn(ctx)
	if filter.ContractID != 0 {
		db = db.Where("contract_id = ?", filter.ContractID)
	}
	if filter.SupportContactID != 0 {
		db = db.Where("support_contact_id = ?", filter.SupportContactID)
	}
	if filter.WithoutSupport {
		db = db.Where("support_contact_id IS NULL")
	}

	var rows []eventRow
	if err := db.Order("start_date, id").Find(&rows).Error; err != nil {
		return nil, translate("list events", err)
	}
	events := make([]*models.Event, 0, len(rows))
	for i := range rows {
		events = append(events, toEvent(&rows[i]))
	}
	return events, nil
}

func (r *EventRepository) ListBySupportContact(ctx context.Context, supportContactID int64) ([]*models.Event, error) {
	return r.List(ctx, repositories.EventFilter{SupportContactID: supportContactID})
}

// AuditRepository implements repositories.AuditRepository
type AuditRepository struct {
	store *Store
}

func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	row := &auditLogRow{
		ID:           log.ID.String(),
		ActorID:      log.ActorID,
		Action:       string(log.Action),
		ResourceType: log.ResourceType,
		ResourceID:   log.ResourceID,
		Details:      log.Details,
		CreatedAt:    log.CreatedAt,
	}
	if err := r.store.conn(ctx).Create(row).Error; err != nil {
		return translate("insert audit log", err)
	}
	return nil
}

func (r *AuditRepository) ListByResource(ctx context.Context, resourceType string, resourceID int64, limit int) ([]*models.AuditLog, error) {
	return r.find(r.store.conn(ctx).Where("resource_type = ? AND resource_id = ?", resourceType, resourceID), limit)
}

func (r *AuditRepository) ListByActor(ctx context.Context, actorID int64, limit int) ([]*models.AuditLog, error) {
	return r.find(r.store.conn(ctx).Where("actor_id = ?", actorID), limit)
}

func (r *AuditRepository) find(db *gorm.DB, limit int) ([]*models.AuditLog, error) {
	var rows []auditLogRow
	if err := db.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translate("list audit logs", err)
	}
	logs := make([]*models.AuditLog, 0, len(rows))
	for i := range rows {
		log, err := toAuditLog(&rows[i])
		if err != nil {
			return nil, translate("list audit logs", err)
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// LoginAttemptRepository implements repositories.LoginAttemptRepository
type LoginAttemptRepository struct {
	store *Store
}

func (r *LoginAttemptRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {
	row := &loginAttemptRow{ID: attempt.ID.String(), Username: attempt.Username, AttemptedAt: attempt.AttemptedAt}
	if err := r.store.conn(ctx).Create(row).Error; err != nil {
		return translate("record login attempt", err)
	}
	return nil
}

func (r *LoginAttemptRepository) CountSince(ctx context.Context, username string, since time.Time) (int, error) {
	var n int64
	err := r.store.conn(ctx).Model(&loginAttemptRow{}).
		Where("username = ? AND attempted_at >= ?", username, since.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, translate("count login attempts", err)
	}
	return int(n), nil
}

func (r *LoginAttemptRepository) DeleteByUsername(ctx context.Context, username string) error {
	if err := r.store.conn(ctx).Where("username = ?", username).Delete(&loginAttemptRow{}).Error; err != nil {
		return translate("clear login attempts", err)
	}
	return nil
}

func (r *LoginAttemptRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.store.conn(ctx).Where("attempted_at < ?", before.UTC()).Delete(&loginAttemptRow{})
	if result.Error != nil {
		return 0, translate("purge login attempts", result.Error)
	}
	return result.RowsAffected, nil
}

// affected turns a write that touched no row into ErrNotFound.
func affected(op string, result *gorm.DB) error {
	if result.Error != nil {
		return translate(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return translate(op, gorm.ErrRecordNotFound)
	}
	return nil
}
