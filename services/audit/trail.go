package audit

import (
	"context"

	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"github.com/epicevents/crm/services"
	"go.uber.org/zap"
)

const (
	DefaultTrailLimit = 50
	MaxTrailLimit     = 500
)

var resourceTypes = map[string]bool{"user": true, "client": true, "contract": true, "event": true}

// TrailQuery selects either the history of one record (ResourceType and
// ResourceID) or what one collaborator did (ActorID).
type TrailQuery struct {
	ResourceType string
	ResourceID   int64
	ActorID      int64
	Limit        int
}

// Trail reads the audit log back. Only collaborators who manage users may
// read it.
type Trail struct {
	repo   repositories.AuditRepository
	gate   services.Authorizer
	logger *zap.Logger
}

// NewTrail creates a reader over the audit repository
func NewTrail(repo repositories.AuditRepository, gate services.Authorizer, logger *zap.Logger) *Trail {
	return &Trail{repo: repo, gate: gate, logger: logger}
}

// History returns the matching entries, newest first
func (t *Trail) History(ctx context.Context, token string, q TrailQuery) ([]*models.AuditLog, error) {
	if _, err := services.Authorize(t.gate, token, policy.CanManageUsers); err != nil {
		return nil, err
	}

	limit, err := trailLimit(q.Limit)
	if err != nil {
		return nil, err
	}

	byResource := q.ResourceType != "" || q.ResourceID != 0
	byActor := q.ActorID != 0
	if byResource == byActor {
		return nil, services.NewValidationError("query either a resource or an actor")
	}

	var logs []*models.AuditLog
	if byActor {
		if q.ActorID < 0 {
			return nil, services.NewValidationError("invalid actor id").WithDetail("actor_id", q.ActorID)
		}
		logs, err = t.repo.ListByActor(ctx, q.ActorID, limit)
	} else {
		if !resourceTypes[q.ResourceType] {
			return nil, services.NewValidationError("unknown resource type").WithDetail("resource", q.ResourceType)
		}
		if q.ResourceID <= 0 {
			return nil, services.NewValidationError("invalid resource id").WithDetail("id", q.ResourceID)
		}
		logs, err = t.repo.ListByResource(ctx, q.ResourceType, q.ResourceID, limit)
	}
	if err != nil {
		t.logger.Error("failed to read audit trail", zap.Error(err))
		return nil, services.WrapInternal("failed to read audit trail", err)
	}
	return logs, nil
}

func trailLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultTrailLimit, nil
	case limit < 0 || limit > MaxTrailLimit:
		return 0, services.NewValidationError("limit out of range").
			WithDetail("limit", limit).
			WithDetail("max", MaxTrailLimit)
	default:
		return limit, nil
	}
}
