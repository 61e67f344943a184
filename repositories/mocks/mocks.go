// Package mocks provides testify mocks of the repository interfaces for
// service tests.
package mocks

import (
	"context"
	"time"

	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"github.com/stretchr/testify/mock"
)

type txKey struct{}

// TransactionManager is a mock implementation of repositories.TransactionManager.
// InTransaction drives Begin, Commit and Rollback so expectations can be set
// on those calls.
type TransactionManager struct {
	mock.Mock
}

func (m *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx.Context(), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Transaction is a mock implementation of repositories.Transaction
type Transaction struct {
	mock.Mock
	Committed  bool
	RolledBack bool
	ctx        context.Context
}

// NewTransaction returns a transaction whose Context carries a marker that
// InTx detects.
func NewTransaction(parent context.Context) *Transaction {
	tx := &Transaction{}
	tx.ctx = context.WithValue(parent, txKey{}, tx)
	return tx
}

func (m *Transaction) Commit() error {
	args := m.Called()
	m.Committed = true
	return args.Error(0)
}

func (m *Transaction) Rollback() error {
	args := m.Called()
	m.RolledBack = true
	return args.Error(0)
}

func (m *Transaction) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// InTx is a mock argument matcher for contexts carrying a mock transaction.
var InTx = mock.MatchedBy(func(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*Transaction)
	return ok
})

// NewPassingTransactionManager returns a manager whose transactions begin
// and commit or roll back without error.
func NewPassingTransactionManager() (*TransactionManager, *Transaction) {
	tm := new(TransactionManager)
	tx := NewTransaction(context.Background())
	tm.On("Begin", mock.Anything).Return(tx, nil)
	tx.On("Commit").Return(nil).Maybe()
	tx.On("Rollback").Return(nil).Maybe()
	return tm, tx
}

// DepartmentRepository is a mock implementation of repositories.DepartmentRepository
type DepartmentRepository struct {
	mock.Mock
}

func (m *DepartmentRepository) GetByID(ctx context.Context, id int64) (*models.Department, error) {
	args := m.Called(ctx, id)
	if d := args.Get(0); d != nil {
		return d.(*models.Department), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DepartmentRepository) GetByName(ctx context.Context, name policy.Department) (*models.Department, error) {
	args := m.Called(ctx, name)
	if d := args.Get(0); d != nil {
		return d.(*models.Department), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DepartmentRepository) List(ctx context.Context) ([]*models.Department, error) {
	args := m.Called(ctx)
	if d := args.Get(0); d != nil {
		return d.([]*models.Department), args.Error(1)
	}
	return nil, args.Error(1)
}

// UserRepository is a mock implementation of repositories.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *UserRepository) Holdings(ctx context.Context, id int64) (*models.UserHoldings, error) {
	args := m.Called(ctx, id)
	if h := args.Get(0); h != nil {
		return h.(*models.UserHoldings), args.Error(1)
	}
	return nil, args.Error(1)
}

// ClientRepository is a mock implementation of repositories.ClientRepository
type ClientRepository struct {
	mock.Mock
}

func (m *ClientRepository) Create(ctx context.Context, client *models.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *ClientRepository) GetByID(ctx context.Context, id int64) (*models.Client, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRepository) Update(ctx context.Context, client *models.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *ClientRepository) List(ctx context.Context) ([]*models.Client, error) {
	args := m.Called(ctx)
	if c := args.Get(0); c != nil {
		return c.([]*models.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ClientRepository) ListBySalesContact(ctx context.Context, salesContactID int64) ([]*models.Client, error) {
	args := m.Called(ctx, salesContactID)
	if c := args.Get(0); c != nil {
		return c.([]*models.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

// ContractRepository is a mock implementation of repositories.ContractRepository
type ContractRepository struct {
	mock.Mock
}

func (m *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *ContractRepository) GetByID(ctx context.Context, id int64) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.Contract), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ContractRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.Contract), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ContractRepository) Update(ctx context.Context, contract *models.Contract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *ContractRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ContractRepository) List(ctx context.Context, filter repositories.ContractFilter) ([]*models.Contract, error) {
	args := m.Called(ctx, filter)
	if c := args.Get(0); c != nil {
		return c.([]*models.Contract), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ContractRepository) ListByClient(ctx context.Context, clientID int64) ([]*models.Contract, error) {
	args := m.Called(ctx, clientID)
	if c := args.Get(0); c != nil {
		return c.([]*models.Contract), args.Error(1)
	}
	return nil, args.Error(1)
}

// EventRepository is a mock implementation of repositories.EventRepository
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) Create(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(ctx, id)
	if e := args.Get(0); e != nil {
		return e.(*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Event, error) {
	args := m.Called(ctx, id)
	if e := args.Get(0); e != nil {
		return e.(*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) GetByContractID(ctx context.Context, contractID int64) (*models.Event, error) {
	args := m.Called(ctx, contractID)
	if e := args.Get(0); e != nil {
		return e.(*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) Update(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *EventRepository) List(ctx context.Context, filter repositories.EventFilter) ([]*models.Event, error) {
	args := m.Called(ctx, filter)
	if e := args.Get(0); e != nil {
		return e.([]*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EventRepository) ListBySupportContact(ctx context.Context, supportContactID int64) ([]*models.Event, error) {
	args := m.Called(ctx, supportContactID)
	if e := args.Get(0); e != nil {
		return e.([]*models.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

// AuditRepository is a mock implementation of repositories.AuditRepository
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepository) ListByResource(ctx context.Context, resourceType string, resourceID int64, limit int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, resourceType, resourceID, limit)
	if l := args.Get(0); l != nil {
		return l.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuditRepository) ListByActor(ctx context.Context, actorID int64, limit int) ([]*models.AuditLog, error) {
	args := m.Called(ctx, actorID, limit)
	if l := args.Get(0); l != nil {
		return l.([]*models.AuditLog), args.Error(1)
	}
	return nil, args.Error(1)
}

// LoginAttemptRepository is a mock implementation of repositories.LoginAttemptRepository
type LoginAttemptRepository struct {
	mock.Mock
}

func (m *LoginAttemptRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *LoginAttemptRepository) CountSince(ctx context.Context, username string, since time.Time) (int, error) {
	args := m.Called(ctx, username, since)
	return args.Int(0), args.Error(1)
}

func (m *LoginAttemptRepository) DeleteByUsername(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *LoginAttemptRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
