// Package contracts implements the contract lifecycle. A contract starts
// unsigned and becomes signed once fully paid; after that it can no longer
// be edited or deleted.
package contracts

import (
	"context"
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

// Deps holds what the contract service is built from.
type Deps struct {
	Contracts repositories.ContractRepository
	Clients   repositories.ClientRepository
	TxManager repositories.TransactionManager
	Gate      services.Authorizer
	Audit     audit.Recorder
	Logger    *zap.Logger
	Clock     func() time.Time
}

// FilterOptions narrows a filtered contract listing.
type FilterOptions struct {
	Unsigned bool
	Unpaid   bool
	Mine     bool
}

// Service handles contracts
type Service struct {
	contracts repositories.ContractRepository
	clients   repositories.ClientRepository
	txMgr     repositories.TransactionManager
	gate      services.Authorizer
	audit     audit.Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a new contract service
func NewService(d Deps) *Service {
	s := &Service{
		contracts: d.Contracts,
		clients:   d.Clients,
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

var errRemainingExceedsAmount = services.NewBusinessRuleError("remaining amount cannot exceed the total amount")

func errSignedWithBalance(remaining models.Money) error {
	return services.NewBusinessRuleError("contract cannot be signed while " + remaining.String() + " remains to be paid")
}

// Create opens a contract for a client. The sales contact is copied from the
// client; it is never taken from the caller.
func (s *Service) Create(ctx context.Context, token string, input models.CreateContractInput) (*models.Contract, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanCreateContracts, policy.CanModifyAllContracts)
	if err != nil {
		return nil, err
	}
	if err := services.ValidateInput(&input); err != nil {
		return nil, err
	}
	if input.RemainingAmount > input.Amount {
		return nil, errRemainingExceedsAmount
	}
	if input.Signed && input.RemainingAmount != 0 {
		return nil, errSignedWithBalance(input.RemainingAmount)
	}

	contract, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Contract, error) {
		client, err := s.clients.GetByID(ctx, input.ClientID)
		if err != nil {
			return nil, services.FromRepository("client", input.ClientID, err)
		}

		now := s.now().UTC()
		contract := &models.Contract{
			ClientID:             client.ID,
			SalesContactID:       client.SalesContactID,
			ClientSalesContactID: client.SalesContactID,
			Signed:               input.Signed,
			Amount:               input.Amount,
			RemainingAmount:      input.RemainingAmount,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := s.contracts.Create(ctx, contract); err != nil {
			return nil, services.FromRepository("contract", input.ClientID, err)
		}
		return contract, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.ContractCreated(authz.ActorID(), contract))
	s.logger.Info("contract created",
		zap.Int64("actor_id", authz.ActorID()),
		zap.Int64("contract_id", contract.ID),
		zap.Int64("client_id", contract.ClientID),
		zap.Bool("signed", contract.Signed))
	return contract, nil
}

// lockOwned reads the contract under a row lock and checks the caller may act on it.
func (s *Service) lockOwned(ctx context.Context, authz *auth.Authorization, id int64) (*models.Contract, error) {
	contract, err := s.contracts.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, services.FromRepository("contract", id, err)
	}
	if !ownership.Permits(authz.ActorID(), authz.Has(policy.CanModifyAllContracts), ownership.ForContract(contract)) {
		return nil, services.NewOwnershipError("contract", id)
	}
	return contract, nil
}

// Update edits an unsigned contract. Setting signed is allowed only when
// nothing remains to be paid.
func (s *Service) Update(ctx context.Context, token string, id int64, input models.UpdateContractInput) (*models.Contract, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanModifyOwnContracts, policy.CanModifyAllContracts)
	if err != nil {
		return nil, err
	}
	if input.Empty() {
		return nil, services.NewValidationError("nothing to update")
	}
	if err := services.ValidateInput(&input); err != nil {
		return nil, err
	}

	var (
		changes   []string
		newlySign bool
	)
	contract, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Contract, error) {
		contract, err := s.lockOwned(ctx, authz, id)
		if err != nil {
			return nil, err
		}
		if contract.Signed {
			return nil, services.NewBusinessRuleError("signed contracts cannot be modified")
		}

		if input.Amount != nil {
			contract.Amount = *input.Amount
			changes = append(changes, "amount")
		}
		if input.RemainingAmount != nil {
			contract.RemainingAmount = *input.RemainingAmount
			changes = append(changes, "remaining_amount")
		}
		if contract.RemainingAmount > contract.Amount {
			return nil, errRemainingExceedsAmount
		}
		if input.Signed != nil && *input.Signed {
			if !contract.IsPaid() {
				return nil, errSignedWithBalance(contract.RemainingAmount)
			}
			contract.Signed = true
			newlySign = true
			changes = append(changes, "signed")
		}
		if len(changes) == 0 {
			return nil, services.NewValidationError("nothing to update")
		}

		contract.UpdatedAt = s.now().UTC()
		if err := s.contracts.Update(ctx, contract); err != nil {
			return nil, services.FromRepository("contract", id, err)
		}
		return contract, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.ContractUpdated(authz.ActorID(), contract, changes))
	if newlySign {
		s.audit.Record(audit.ContractSigned(authz.ActorID(), contract))
	}
	return contract, nil
}

// Sign moves a fully paid contract to the signed state.
func (s *Service) Sign(ctx context.Context, token string, id int64) (*models.Contract, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanModifyOwnContracts, policy.CanModifyAllContracts)
	if err != nil {
		return nil, err
	}

	contract, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.Contract, error) {
		contract, err := s.lockOwned(ctx, authz, id)
		if err != nil {
			return nil, err
		}
		if contract.Signed {
			return nil, services.NewBusinessRuleError("contract is already signed")
		}
		if !contract.IsPaid() {
			return nil, errSignedWithBalance(contract.RemainingAmount)
		}

		contract.Signed = true
		contract.UpdatedAt = s.now().UTC()
		if err := s.contracts.Update(ctx, contract); err != nil {
			return nil, services.FromRepository("contract", id, err)
		}
		return contract, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.ContractSigned(authz.ActorID(), contract))
	s.logger.Info("contract signed",
		zap.Int64("actor_id", authz.ActorID()),
		zap.Int64("contract_id", contract.ID))
	return contract, nil
}

// Delete removes an unsigned contract.
func (s *Service) Delete(ctx context.Context, token string, id int64) error {
	authz, err := services.Authorize(s.gate, token, policy.CanModifyOwnContracts, policy.CanModifyAllContracts)
	if err != nil {
		return err
	}

	var deleted *models.Contract
	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		contract, err := s.lockOwned(ctx, authz, id)
		if err != nil {
			return err
		}
		if contract.Signed {
			return services.NewBusinessRuleError("signed contracts cannot be deleted")
		}
		if err := s.contracts.Delete(ctx, id); err != nil {
			return services.FromRepository("contract", id, err)
		}
		deleted = contract
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(audit.ContractDeleted(authz.ActorID(), deleted))
	s.logger.Info("contract deleted",
		zap.Int64("actor_id", authz.ActorID()),
		zap.Int64("contract_id", id))
	return nil
}

// List returns every contract to any authenticated collaborator
func (s *Service) List(ctx context.Context, token string) ([]*models.Contract, error) {
	if _, err := services.Authenticate(s.gate, token); err != nil {
		return nil, err
	}
	contracts, err := s.contracts.List(ctx, repositories.ContractFilter{})
	if err != nil {
		return nil, services.FromRepository("contract", "list", err)
	}
	return contracts, nil
}

// ListByClient returns the contracts of one client
func (s *Service) ListByClient(ctx context.Context, token string, clientID int64) ([]*models.Contract, error) {
	if _, err := services.Authenticate(s.gate, token); err != nil {
		return nil, err
	}
	contracts, err := s.contracts.ListByClient(ctx, clientID)
	if err != nil {
		return nil, services.FromRepository("contract", "list", err)
	}
	return contracts, nil
}

// Get returns one contract
func (s *Service) Get(ctx context.Context, token string, id int64) (*models.Contract, error) {
	if _, err := services.Authenticate(s.gate, token); err != nil {
		return nil, err
	}
	contract, err := s.contracts.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository("contract", id, err)
	}
	return contract, nil
}

// Filter lists contracts matching opts. Mine restricts the listing to the
// clients the caller is the sales contact of.
func (s *Service) Filter(ctx context.Context, token string, opts FilterOptions) ([]*models.Contract, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanFilterContracts)
	if err != nil {
		return nil, err
	}

	filter := repositories.ContractFilter{UnpaidOnly: opts.Unpaid}
	if opts.Unsigned {
		unsigned := false
		filter.Signed = &unsigned
	}
	if opts.Mine {
		filter.SalesContactID = authz.ActorID()
	}

	contracts, err := s.contracts.List(ctx, filter)
	if err != nil {
		return nil, services.FromRepository("contract", "filter", err)
	}
	return contracts, nil
}
