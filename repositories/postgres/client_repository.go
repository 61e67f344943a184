package postgres

import (
	"context"
	"fmt"

	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
)

const clientSelect = `
	SELECT id, full_name, email, phone, company_name, sales_contact_id, created_at, updated_at
	FROM clients
`

// ClientRepository implements the repositories.ClientRepository interface
type ClientRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *DB, logger *zap.Logger) repositories.ClientRepository {
	return &ClientRepository{db: db, logger: logger}
}

// Create creates a new client
func (r *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (full_name, email, phone, company_name, sales_contact_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		client.FullName,
		client.Email,
		client.Phone,
		client.CompanyName,
		client.SalesContactID,
		client.CreatedAt,
		client.UpdatedAt,
	).Scan(&client.ID)
	if err != nil {
		return translate("create client", err)
	}

	r.logger.Debug("client created", zap.Int64("id", client.ID), zap.Int64("sales_contact_id", client.SalesContactID))
	return nil
}

// GetByID retrieves a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	executor := GetExecutor(ctx, r.db)
	client, err := scanClient(executor.QueryRowContext(ctx, clientSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get client", err)
	}
	return client, nil
}

// Update updates a client. The sales contact is not changed here.
func (r *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients
		SET full_name = $2, email = $3, phone = $4, company_name = $5, updated_at = $6
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		client.ID,
		client.FullName,
		client.Email,
		client.Phone,
		client.CompanyName,
		client.UpdatedAt,
	)
	if err != nil {
		return translate("update client", err)
	}
	if err := requireRow(result, "update client"); err != nil {
		return err
	}

	r.logger.Debug("client updated", zap.Int64("id", client.ID))
	return nil
}

// List retrieves all clients
func (r *ClientRepository) List(ctx context.Context) ([]*models.Client, error) {
	return r.list(ctx, clientSelect+` ORDER BY id`)
}

// ListBySalesContact retrieves the clients owned by a sales contact
func (r *ClientRepository) ListBySalesContact(ctx context.Context, salesContactID int64) ([]*models.Client, error) {
	return r.list(ctx, clientSelect+` WHERE sales_contact_id = $1 ORDER BY id`, salesContactID)
}

func (r *ClientRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Client, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("list clients", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}
	return clients, nil
}

func scanClient(s scanner) (*models.Client, error) {
	client := &models.Client{}
	err := s.Scan(
		&client.ID,
		&client.FullName,
		&client.Email,
		&client.Phone,
		&client.CompanyName,
		&client.SalesContactID,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}
