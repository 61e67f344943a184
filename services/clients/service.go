// Package clients holds the rules for creating and editing client accounts.
package clients

import (
	"context"
	"time"

	"github.com/epicevents/crm/internal/ownership"
	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"github.com/epicevents/crm/services"
	"github.com/epicevents/crm/services/audit"
	"go.uber.org/zap"
)

// Deps holds what the client service is built from.
type Deps struct {
	Clients   repositories.ClientRepository
	TxManager repositories.TransactionManager
	Gate      services.Authorizer
	Audit     audit.Recorder
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Service handles client accounts
type Service struct {
	clients repositories.ClientRepository
	txMgr   repositories.TransactionManager
	gate    services.Authorizer
	audit   audit.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new client service
func NewService(d Deps) *Service {
	s := &Service{
		clients: d.Clients,
		txMgr:   d.TxManager,
		gate:    d.Gate,
		audit:   d.Audit,
		logger:  d.Logger,
		now:     d.Clock,
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create registers a client owned by the calling sales contact
func (s *Service) Create(ctx context.Context, token string, input models.CreateClientInput) (*models.Client, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanCreateClients)
	if err != nil {
		return nil, err
	}
	if err := services.ValidateInput(&input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	client := &models.Client{
		FullName:       input.FullName,
		Email:          input.Email,
		Phone:          input.Phone,
		CompanyName:    input.CompanyName,
		SalesContactID: authz.ActorID(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, services.FromRepository("client", input.Email, err)
	}

	s.audit.Record(audit.ClientCreated(authz.ActorID(), client))
	s.logger.Info("client created",
		zap.Int64("actor_id", authz.ActorID()),
		zap.Int64("client_id", client.ID))
	return client, nil
}

// Update edits a client. Holders of the "own" permission may only edit the
// clients they are the sales contact of.
func (s *Service) Update(ctx context.Context, token string, id int64, input models.UpdateClientInput) (*models.Client, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanModifyOwnClients, policy.CanModifyAllClients)
	if err != nil {
		return nil, err
	}
	if err := services.ValidateInput(&input); err != nil {
		return nil, err
	}

	var changes []string
	client, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Client, error) {
		client, err := s.clients.GetByID(ctx, id)
		if err != nil {
			return nil, services.FromRepository("client", id, err)
		}
		if !ownership.Permits(authz.ActorID(), authz.Has(policy.CanModifyAllClients), ownership.ForClient(client)) {
			return nil, services.NewOwnershipError("client", id)
		}

		if input.FullName != nil {
			client.FullName = *input.FullName
			changes = append(changes, "full_name")
		}
		if input.Email != nil {
			client.Email = *input.Email
			changes = append(changes, "email")
		}
		if input.Phone != nil {
			client.Phone = *input.Phone
			changes = append(changes, "phone")
		}
		if input.CompanyName != nil {
			client.CompanyName = *input.CompanyName
			changes = append(changes, "company_name")
		}
		if len(changes) == 0 {
			return nil, services.NewValidationError("nothing to update")
		}

		client.UpdatedAt = s.now().UTC()
		if err := s.clients.Update(ctx, client); err != nil {
			return nil, services.FromRepository("client", id, err)
		}
		return client, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.ClientUpdated(authz.ActorID(), client, changes))
	return client, nil
}

// List returns all clients to any authenticated collaborator
func (s *Service) List(ctx context.Context, token string) ([]*models.Client, error) {
	if _, err := services.Authenticate(s.gate, token); err != nil {
		return nil, err
	}
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, services.FromRepository("client", "list", err)
	}
	return clients, nil
}

// ListMine returns the clients the caller is the sales contact of
func (s *Service) ListMine(ctx context.Context, token string) ([]*models.Client, error) {
	claims, err := services.Authenticate(s.gate, token)
	if err != nil {
		return nil, err
	}
	clients, err := s.clients.ListBySalesContact(ctx, claims.UserID)
	if err != nil {
		return nil, services.FromRepository("client", "list", err)
	}
	return clients, nil
}

// Get returns one client
func (s *Service) Get(ctx context.Context, token string, id int64) (*models.Client, error) {
	if _, err := services.Authenticate(s.gate, token); err != nil {
		return nil, err
	}
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository("client", id, err)
	}
	return client, nil
}
