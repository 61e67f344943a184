package postgres

import (
	"context"
	"fmt"

	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
)

// DepartmentRepository implements the repositories.DepartmentRepository interface
type DepartmentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *DB, logger *zap.Logger) repositories.DepartmentRepository {
	return &DepartmentRepository{db: db, logger: logger}
}

// GetByID retrieves a department by ID
func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*models.Department, error) {
	dept := &models.Department{}
	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, `SELECT id, name FROM departments WHERE id = $1`, id).Scan(&dept.ID, &dept.Name)
	if err != nil {
		return nil, translate("get department", err)
	}
	return dept, nil
}

// GetByName retrieves a department by name
func (r *DepartmentRepository) GetByName(ctx context.Context, name policy.Department) (*models.Department, error) {
	dept := &models.Department{}
	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, `SELECT id, name FROM departments WHERE name = $1`, name).Scan(&dept.ID, &dept.Name)
	if err != nil {
		return nil, translate("get department by name", err)
	}
	return dept, nil
}

// List retrieves all departments
func (r *DepartmentRepository) List(ctx context.Context) ([]*models.Department, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, `SELECT id, name FROM departments ORDER BY id`)
	if err != nil {
		return nil, translate("list departments", err)
	}
	defer rows.Close()

	var depts []*models.Department
	for rows.Next() {
		dept := &models.Department{}
		if err := rows.Scan(&dept.ID, &dept.Name); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		depts = append(depts, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating departments: %w", err)
	}
	return depts, nil
}
