package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
)

const eventSelect = `
	SELECT id, name, contract_id, support_contact_id, start_date, end_date, location, attendees, notes,
		created_at, updated_at
	FROM events
`

// EventRepository implements the repositories.EventRepository interface
type EventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB, logger *zap.Logger) repositories.EventRepository {
	return &EventRepository{db: db, logger: logger}
}

// Create creates a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (name, contract_id, support_contact_id, start_date, end_date, location, attendees, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		event.Name,
		event.ContractID,
		nullableID(event.SupportContactID),
		event.StartDate,
		event.EndDate,
		event.Location,
		event.Attendees,
		event.Notes,
		event.CreatedAt,
		event.UpdatedAt,
	).Scan(&event.ID)
	if err != nil {
		return translate("create event", err)
	}

	r.logger.Debug("event created", zap.Int64("id", event.ID), zap.Int64("contract_id", event.ContractID))
	return nil
}

// GetByID retrieves an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	return r.getOne(ctx, "get event", eventSelect+` WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves an event and locks its row
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Event, error) {
	return r.getOne(ctx, "lock event", eventSelect+` WHERE id = $1 FOR UPDATE`, id)
}

// GetByContractID retrieves the event of a contract
func (r *EventRepository) GetByContractID(ctx context.Context, contractID int64) (*models.Event, error) {
	return r.getOne(ctx, "get event by contract", eventSelect+` WHERE contract_id = $1`, contractID)
}

func (r *EventRepository) getOne(ctx context.Context, op, query string, id int64) (*models.Event, error) {
	executor := GetExecutor(ctx, r.db)
	event, err := scanEvent(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(op, err)
	}
	return event, nil
}

// Update updates an event including its support contact
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET name = $2, support_contact_id = $3, start_date = $4, end_date = $5, location = $6,
			attendees = $7, notes = $8, updated_at = $9
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		event.ID,
		event.Name,
		nullableID(event.SupportContactID),
		event.StartDate,
		event.EndDate,
		event.Location,
		event.Attendees,
		event.Notes,
		event.UpdatedAt,
	)
	if err != nil {
		return translate("update event", err)
	}
	if err := requireRow(result, "update event"); err != nil {
		return err
	}

	r.logger.Debug("event updated", zap.Int64("id", event.ID))
	return nil
}

// List retrieves events matching the filter
func (r *EventRepository) List(ctx context.Context, filter repositories.EventFilter) ([]*models.Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ContractID != 0 {
		args = append(args, filter.ContractID)
		conds = append(conds, fmt.Sprintf("contract_id = $%d", len(args)))
	}
	if filter.SupportContactID != 0 {
		args = append(args, filter.SupportContactID)
		conds = append(conds, fmt.Sprintf("support_contact_id = $%d", len(args)))
	}
	if filter.WithoutSupport {
		conds = append(conds, "support_contact_id IS NULL")
	}

	query := eventSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY start_date, id"

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("list events", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// ListBySupportContact retrieves the events assigned to a support contact
func (r *EventRepository) ListBySupportContact(ctx context.Context, supportContactID int64) ([]*models.Event, error) {
	return r.List(ctx, repositories.EventFilter{SupportContactID: supportContactID})
}

func scanEvent(s scanner) (*models.Event, error) {
	event := &models.Event{}
	var support sql.NullInt64
	err := s.Scan(
		&event.ID,
		&event.Name,
		&event.ContractID,
		&support,
		&event.StartDate,
		&event.EndDate,
		&event.Location,
		&event.Attendees,
		&event.Notes,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if support.Valid {
		id := support.Int64
		event.SupportContactID = &id
	}
	return event, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
