package repositories

import (
	"context"
	"time"

	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
)

// TransactionManager manages database transactions. Repositories called with
// the context handed to fn run inside the transaction.
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// DepartmentRepository reads the fixed set of departments
type DepartmentRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Department, error)
	GetByName(ctx context.Context, name policy.Department) (*models.Department, error)
	List(ctx context.Context) ([]*models.Department, error)
}

// UserRepository handles collaborator data operations.
// Lookups return ErrNotFound when no user matches.
type UserRepository interface {
	// Create inserts the user and sets its ID
	Create(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update persists every mutable field of the user
	Update(ctx context.Context, user *models.User) error

	// Delete removes the user. Owned clients and contracts go with it and
	// supported events lose their support contact.
	Delete(ctx context.Context, id int64) error

	List(ctx context.Context) ([]*models.User, error)

	// Count returns the number of users, used to detect an empty store
	Count(ctx context.Context) (int, error)

	// Holdings counts the records the user is responsible for
	Holdings(ctx context.Context, id int64) (*models.UserHoldings, error)
}

// ClientRepository handles client data operations
type ClientRepository interface {
	// Create inserts the client and sets its ID
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id int64) (*models.Client, error)
	Update(ctx context.Context, client *models.Client) error
	List(ctx context.Context) ([]*models.Client, error)

	// ListBySalesContact returns the clients owned by a sales contact
	ListBySalesContact(ctx context.Context, salesContactID int64) ([]*models.Client, error)
}

// ContractFilter narrows contract listings. Zero fields do not filter.
type ContractFilter struct {
	ClientID       int64
	SalesContactID int64 // matches the client's current sales contact
	Signed         *bool
	UnpaidOnly     bool
}

// ContractRepository handles contract data operations.
// Contracts are always read with their client's current sales contact.
type ContractRepository interface {
	// Create inserts the contract and sets its ID
	Create(ctx context.Context, contract *models.Contract) error
	GetByID(ctx context.Context, id int64) (*models.Contract, error)

	// GetByIDForUpdate reads the contract and locks its row until the
	// surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Contract, error)

	Update(ctx context.Context, contract *models.Contract) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ContractFilter) ([]*models.Contract, error)
	ListByClient(ctx context.Context, clientID int64) ([]*models.Contract, error)
}

// EventFilter narrows event listings. Zero fields do not filter.
type EventFilter struct {
	ContractID       int64
	SupportContactID int64
	WithoutSupport   bool
}

// EventRepository handles event data operations
type EventRepository interface {
	// Create inserts the event and sets its ID. A second event for the same
	// contract fails with a DuplicateError.
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)

	// GetByIDForUpdate reads the event and locks its row until the
	// surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Event, error)

	GetByContractID(ctx context.Context, contractID int64) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	List(ctx context.Context, filter EventFilter) ([]*models.Event, error)
	ListBySupportContact(ctx context.Context, supportContactID int64) ([]*models.Event, error)
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// ListByResource returns the trail of one record, newest first
	ListByResource(ctx context.Context, resourceType string, resourceID int64, limit int) ([]*models.AuditLog, error)

	// ListByActor returns what one user did, newest first
	ListByActor(ctx context.Context, actorID int64, limit int) ([]*models.AuditLog, error)
}

// LoginAttemptRepository stores failed logins for the login throttle
type LoginAttemptRepository interface {
	Insert(ctx context.Context, attempt *models.LoginAttempt) error

	// CountSince counts attempts for username at or after since
	CountSince(ctx context.Context, username string, since time.Time) (int, error)

	// DeleteByUsername clears the attempts of one user after a good login
	DeleteByUsername(ctx context.Context, username string) error

	// DeleteBefore purges attempts older than before and returns how many went
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Departments   DepartmentRepository
	Users         UserRepository
	Clients       ClientRepository
	Contracts     ContractRepository
	Events        EventRepository
	AuditLogs     AuditRepository
	LoginAttempts LoginAttemptRepository
}
