package postgres

import (
	"context"
	"fmt"

	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
)

const userColumns = `
	u.id, u.username, u.password_hash, u.full_name, u.email, u.phone,
	u.department_id, d.name, u.created_at, u.updated_at
`

const userSelect = `SELECT` + userColumns + `FROM users u JOIN departments d ON d.id = u.department_id`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, full_name, email, phone, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.FullName,
		user.Email,
		user.Phone,
		user.DepartmentID,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		return translate("create user", err)
	}

	r.logger.Debug("user created", zap.Int64("id", user.ID), zap.String("username", user.Username))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "get user", userSelect+` WHERE u.id = $1`, id)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "get user by username", userSelect+` WHERE u.username = $1`, username)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, "get user by email", userSelect+` WHERE u.email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, op, query string, arg interface{}) (*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, translate(op, err)
	}
	return user, nil
}

// Update updates a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET password_hash = $2, full_name = $3, email = $4, phone = $5, department_id = $6, updated_at = $7
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		user.ID,
		user.PasswordHash,
		user.FullName,
		user.Email,
		user.Phone,
		user.DepartmentID,
		user.UpdatedAt,
	)
	if err != nil {
		return translate("update user", err)
	}
	if err := requireRow(result, "update user"); err != nil {
		return err
	}

	r.logger.Debug("user updated", zap.Int64("id", user.ID))
	return nil
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate("delete user", err)
	}
	if err := requireRow(result, "delete user"); err != nil {
		return err
	}

	r.logger.Debug("user deleted", zap.Int64("id", id))
	return nil
}

// List retrieves all users ordered by ID
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, userSelect+` ORDER BY u.id`)
	if err != nil {
		return nil, translate("list users", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	executor := GetExecutor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, translate("count users", err)
	}
	return count, nil
}

// Holdings counts the clients and contracts a user owns and the events it supports
func (r *UserRepository) Holdings(ctx context.Context, id int64) (*models.UserHoldings, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM clients WHERE sales_contact_id = $1),
			(SELECT COUNT(*) FROM contracts WHERE sales_contact_id = $1),
			(SELECT COUNT(*) FROM events WHERE support_contact_id = $1)
	`

	h := &models.UserHoldings{}
	executor := GetExecutor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, query, id).Scan(&h.Clients, &h.Contracts, &h.Events); err != nil {
		return nil, translate("count user holdings", err)
	}
	return h, nil
}

func scanUser(s scanner) (*models.User, error) {
	user := &models.User{}
	err := s.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.FullName,
		&user.Email,
		&user.Phone,
		&user.DepartmentID,
		&user.Department,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
