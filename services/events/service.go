// Package events implements the event rules: one event per signed contract,
// created by the contract's sales contact, scheduled at least a day ahead
// and frozen once it has ended.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/epicevents/crm/auth"
	"github.com/epicevents/crm/internal/ownership"
	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"github.com/epicevents/crm/services"
	"github.com/epicevents/crm/services/audit"
	"go.uber.org/zap"
)

// MinLeadTime is how far ahead of now an event must start.
const MinLeadTime = 24 * time.Hour

// Deps holds what the event service is built from.
type Deps struct {
	Events    repositories.EventRepository
	Contracts repositories.ContractRepository
	Users     repositories.UserRepository
	TxManager repositories.TransactionManager
	Gate      services.Authorizer
	Audit     audit.Recorder
	Logger    *zap.Logger
	Clock     func() time.Time
}

// FilterOptions narrows a filtered event listing.
type FilterOptions struct {
	// WithoutSupport keeps only events nobody supports yet
	WithoutSupport bool
	// Mine keeps only the events supported by the caller
	Mine bool
}

// Service handles events
type Service struct {
	events    repositories.EventRepository
	contracts repositories.ContractRepository
	users     repositories.UserRepository
	txMgr     repositories.TransactionManager
	gate      services.Authorizer
	audit     audit.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new event service
func NewService(d Deps) *Service {
	s := &Service{
		events:    d.Events,
		contracts: d.Contracts,
		users:     d.Users,
		txMgr:     d.TxManager,
		gate:      d.Gate,
		audit:     d.Audit,
		logger:    d.Logger,
		now:       d.Clock,
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

var (
	errUnsignedContract = services.NewBusinessRuleError("events can only be created for signed contracts")
	errEventExists      = services.NewBusinessRuleError("this contract already has an event")
	errEventEnded       = services.NewBusinessRuleError("event has ended and can no longer be modified")
	errEndBeforeStart   = services.NewBusinessRuleError("event end must be after its start")
)

func errTooSoon(earliest time.Time) error {
	return services.NewBusinessRuleError("event must start at or after " + earliest.Format(time.RFC3339))
}

// checkSchedule enforces the lead time on start and the ordering of the dates.
func checkSchedule(now, start, end time.Time) error {
	if earliest := now.Add(MinLeadTime); start.Before(earliest) {
		return errTooSoon(earliest)
	}
	if !end.After(start) {
		return errEndBeforeStart
	}
	return nil
}

// Create schedules the event of a signed contract. Checks run in a fixed
// order: the contract must exist and belong to the caller before its state,
// the existing event and the dates are looked at.
func (s *Service) Create(ctx context.Context, token string, input models.CreateEventInput) (*models.Event, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanCreateEvents)
	if err != nil {
		return nil, err
	}
	if err := services.ValidateInput(&input); err != nil {
		return nil, err
	}

	event, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Event, error) {
		contract, err := s.contracts.GetByIDForUpdate(ctx, input.ContractID)
		if err != nil {
			return nil, services.FromRepository("contract", input.ContractID, err)
		}
		if !ownership.IsOwner(authz.ActorID(), ownership.ForContract(contract)) {
			return nil, services.NewOwnershipError("contract", contract.ID)
		}
		if !contract.Signed {
			return nil, errUnsignedContract
		}

		existing, err := s.events.GetByContractID(ctx, contract.ID)
		switch {
		case err == nil && existing != nil:
			return nil, errEventExists
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return nil, services.FromRepository("event", contract.ID, err)
		}

		now := s.now().UTC()
		if err := checkSchedule(now, input.StartDate, input.EndDate); err != nil {
			return nil, err
		}

		event := &models.Event{
			Name:       input.Name,
			ContractID: contract.ID,
			StartDate:  input.StartDate.UTC(),
			EndDate:    input.EndDate.UTC(),
			Location:   input.Location,
			Attendees:  input.Attendees,
			Notes:      input.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.events.Create(ctx, event); err != nil {
			// lost a race with a concurrent create on the same contract
			if _, dup := repositories.IsDuplicate(err); dup {
				return nil, errEventExists
			}
			return nil, services.FromRepository("event", contract.ID, err)
		}
		return event, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.EventCreated(authz.ActorID(), event))
	s.logger.Info("event created",
		zap.Int64("actor_id", authz.ActorID()),
		zap.Int64("event_id", event.ID),
		zap.Int64("contract_id", event.ContractID))
	return event, nil
}

// lockOpen reads the event under a row lock and rejects events that ended.
func (s *Service) lockOpen(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, services.FromRepository("event", id, err)
	}
	if event.HasEnded(s.now()) {
		return nil, errEventEnded
	}
	return event, nil
}

// Update edits an event that has not ended yet.
func (s *Service) Update(ctx context.Context, token string, id int64, input models.UpdateEventInput) (*models.Event, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanModifyOwnEvents, policy.CanModifyAllEvents)
	if err != nil {
		return nil, err
	}
	if input.Empty() {
		return nil, services.NewValidationError("nothing to update")
	}
	if err := services.ValidateInput(&input); err != nil {
		return nil, err
	}

	var changes []string
	event, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Event, error) {
		event, err := s.events.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, services.FromRepository("event", id, err)
		}
		if !ownership.Permits(authz.ActorID(), authz.Has(policy.CanModifyAllEvents), ownership.ForEvent(event)) {
			return nil, services.NewOwnershipError("event", id)
		}
		now := s.now().UTC()
		if event.HasEnded(now) {
			return nil, errEventEnded
		}

		if input.StartDate != nil && !input.StartDate.Equal(event.StartDate) {
			if earliest := now.Add(MinLeadTime); input.StartDate.Before(earliest) {
				return nil, errTooSoon(earliest)
			}
			event.StartDate = input.StartDate.UTC()
			changes = append(changes, "start_date")
		}
		if input.EndDate != nil {
			event.EndDate = input.EndDate.UTC()
			changes = append(changes, "end_date")
		}
		if !event.EndDate.After(event.StartDate) {
			return nil, errEndBeforeStart
		}
		if input.Name != nil {
			event.Name = *input.Name
			changes = append(changes, "name")
		}
		if input.Location != nil {
			event.Location = *input.Location
			changes = append(changes, "location")
		}
		if input.Attendees != nil {
			event.Attendees = *input.Attendees
			changes = append(changes, "attendees")
		}
		if input.Notes != nil {
			event.Notes = *input.Notes
			changes = append(changes, "notes")
		}
		if len(changes) == 0 {
			return nil, services.NewValidationError("nothing to update")
		}

		event.UpdatedAt = now
		if err := s.events.Update(ctx, event); err != nil {
			return nil, services.FromRepository("event", id, err)
		}
		return event, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.EventUpdated(authz.ActorID(), event, changes))
	return event, nil
}

// AssignSupport makes a Support collaborator responsible for an event.
func (s *Service) AssignSupport(ctx context.Context, token string, eventID, supportID int64) (*models.Event, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanAssignSupport)
	if err != nil {
		return nil, err
	}

	event, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Event, error) {
		event, err := s.lockOpen(ctx, eventID)
		if err != nil {
			return nil, err
		}

		user, err := s.users.GetByID(ctx, supportID)
		if err != nil {
			return nil, services.FromRepository("user", supportID, err)
		}
		if !user.InDepartment(policy.DepartmentSupport) {
			return nil, services.NewBusinessRuleError(user.Username + " is not in the Support department").
				WithDetail("department", string(user.Department))
		}

		event.SupportContactID = &user.ID
		event.UpdatedAt = s.now().UTC()
		if err := s.events.Update(ctx, event); err != nil {
			return nil, services.FromRepository("event", eventID, err)
		}
		return event, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.SupportAssigned(authz.ActorID(), event, supportID))
	s.logger.Info("support assigned",
		zap.Int64("actor_id", authz.ActorID()),
		zap.Int64("event_id", eventID),
		zap.Int64("support_contact_id", supportID))
	return event, nil
}

// List returns every event to any authenticated collaborator
func (s *Service) List(ctx context.Context, token string) ([]*models.Event, error) {
	if _, err := services.Authenticate(s.gate, token); err != nil {
		return nil, err
	}
	events, err := s.events.List(ctx, repositories.EventFilter{})
	if err != nil {
		return nil, services.FromRepository("event", "list", err)
	}
	return events, nil
}

// Get returns one event
func (s *Service) Get(ctx context.Context, token string, id int64) (*models.Event, error) {
	if _, err := services.Authenticate(s.gate, token); err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository("event", id, err)
	}
	return event, nil
}

// Filter lists events for holders of can_filter_events. Callers who may
// modify every event see all of them; everyone else sees only the events
// they support.
func (s *Service) Filter(ctx context.Context, token string, opts FilterOptions) ([]*models.Event, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanFilterEvents, policy.CanModifyAllEvents)
	if err != nil {
		return nil, err
	}
	if !authz.Has(policy.CanFilterEvents) {
		return nil, forbidden(authz)
	}

	filter := repositories.EventFilter{WithoutSupport: opts.WithoutSupport}
	if opts.Mine || !authz.Has(policy.CanModifyAllEvents) {
		filter.SupportContactID = authz.ActorID()
		filter.WithoutSupport = false
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, services.FromRepository("event", "filter", err)
	}
	return events, nil
}

func forbidden(authz *auth.Authorization) error {
	return services.NewDomainError(services.ErrorTypeForbidden, services.ErrForbidden.Message, auth.ErrForbidden).
		WithDetail("department", string(authz.Claims.Department))
}
