package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
)

const contractSelect = `
	SELECT c.id, c.client_id, c.sales_contact_id, c.signed, c.amount_cents, c.remaining_cents,
		c.created_at, c.updated_at, cl.sales_contact_id
	FROM contracts c
	JOIN clients cl ON cl.id = c.client_id
`

// ContractRepository implements the repositories.ContractRepository interface
type ContractRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *DB, logger *zap.Logger) repositories.ContractRepository {
	return &ContractRepository{db: db, logger: logger}
}

// Create creates a new contract
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	query := `
		INSERT INTO contracts (client_id, sales_contact_id, signed, amount_cents, remaining_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		contract.ClientID,
		contract.SalesContactID,
		contract.Signed,
		contract.Amount,
		contract.RemainingAmount,
		contract.CreatedAt,
		contract.UpdatedAt,
	).Scan(&contract.ID)
	if err != nil {
		return translate("create contract", err)
	}

	r.logger.Debug("contract created", zap.Int64("id", contract.ID), zap.Int64("client_id", contract.ClientID))
	return nil
}

// GetByID retrieves a contract by ID
func (r *ContractRepository) GetByID(ctx context.Context, id int64) (*models.Contract, error) {
	return r.getOne(ctx, "get contract", contractSelect+` WHERE c.id = $1`, id)
}

// GetByIDForUpdate retrieves a contract and locks its row
func (r *ContractRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Contract, error) {
	return r.getOne(ctx, "lock contract", contractSelect+` WHERE c.id = $1 FOR UPDATE OF c`, id)
}

func (r *ContractRepository) getOne(ctx context.Context, op, query string, id int64) (*models.Contract, error) {
	executor := GetExecutor(ctx, r.db)
	contract, err := scanContract(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(op, err)
	}
	return contract, nil
}

// Update updates a contract's amounts and signed flag
func (r *ContractRepository) Update(ctx context.Context, contract *models.Contract) error {
	query := `
		UPDATE contracts
		SET signed = $2, amount_cents = $3, remaining_cents = $4, updated_at = $5
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		contract.ID,
		contract.Signed,
		contract.Amount,
		contract.RemainingAmount,
		contract.UpdatedAt,
	)
	if err != nil {
		return translate("update contract", err)
	}
	if err := requireRow(result, "update contract"); err != nil {
		return err
	}

	r.logger.Debug("contract updated", zap.Int64("id", contract.ID), zap.Bool("signed", contract.Signed))
	return nil
}

// Delete deletes a contract
func (r *ContractRepository) Delete(ctx context.Context, id int64) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return translate("delete contract", err)
	}
	if err := requireRow(result, "delete contract"); err != nil {
		return err
	}

	r.logger.Debug("contract deleted", zap.Int64("id", id))
	return nil
}

// List retrieves contracts matching the filter
func (r *ContractRepository) List(ctx context.Context, filter repositories.ContractFilter) ([]*models.Contract, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ClientID != 0 {
		args = append(args, filter.ClientID)
		conds = append(conds, fmt.Sprintf("c.client_id = $%d", len(args)))
	}
	if filter.SalesContactID != 0 {
		args = append(args, filter.SalesContactID)
		conds = append(conds, fmt.Sprintf("cl.sales_contact_id = $%d", len(args)))
	}
	if filter.Signed != nil {
		args = append(args, *filter.Signed)
		conds = append(conds, fmt.Sprintf("c.signed = $%d", len(args)))
	}
	if filter.UnpaidOnly {
		conds = append(conds, "c.remaining_cents > 0")
	}

	query := contractSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY c.id"

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("list contracts", err)
	}
	defer rows.Close()

	var contracts []*models.Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, contract)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contracts: %w", err)
	}
	return contracts, nil
}

// ListByClient retrieves the contracts of a client
func (r *ContractRepository) ListByClient(ctx context.Context, clientID int64) ([]*models.Contract, error) {
	return r.List(ctx, repositories.ContractFilter{ClientID: clientID})
}

func scanContract(s scanner) (*models.Contract, error) {
	contract := &models.Contract{}
	err := s.Scan(
		&contract.ID,
		&contract.ClientID,
		&contract.SalesContactID,
		&contract.Signed,
		&contract.Amount,
		&contract.RemainingAmount,
		&contract.CreatedAt,
		&contract.UpdatedAt,
		&contract.ClientSalesContactID,
	)
	if err != nil {
		return nil, err
	}
	return contract, nil
}
