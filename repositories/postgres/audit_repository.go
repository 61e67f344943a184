package postgres

import (
	"context"
	"fmt"

	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
)

const auditSelect = `
	SELECT id, actor_id, action, resource_type, resource_id, details, created_at
	FROM audit_logs
`

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, actor_id, action, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var details []byte
	if len(log.Details) > 0 {
		details = log.Details
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.ActorID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		details,
		log.CreatedAt,
	)
	if err != nil {
		return translate("insert audit log", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// ListByResource retrieves the audit trail of one record, newest first
func (r *AuditRepository) ListByResource(ctx context.Context, resourceType string, resourceID int64, limit int) ([]*models.AuditLog, error) {
	query := auditSelect + `
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	return r.list(ctx, query, resourceType, resourceID, limit)
}

// ListByActor retrieves the audit logs written for one actor, newest first
func (r *AuditRepository) ListByActor(ctx context.Context, actorID int64, limit int) ([]*models.AuditLog, error) {
	query := auditSelect + `
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, actorID, limit)
}

func (r *AuditRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.AuditLog, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("list audit logs", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var details []byte
		if err := rows.Scan(
			&log.ID,
			&log.ActorID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&details,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if len(details) > 0 {
			log.Details = append([]byte(nil), details...)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return logs, nil
}
