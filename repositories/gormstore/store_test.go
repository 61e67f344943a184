package gormstore

import (
	"context"
	"testing"
	"time"

	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepos(t *testing.T) (*Store, *repositories.Repositories) {
	t.Helper()
	store, err := Open("file:"+t.Name()+"?mode=memory&cache=shared", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store, store.NewRepositories()
}

func seedUser(t *testing.T, repos *repositories.Repositories, username string, dept policy.Department) *models.User {
	t.Helper()
	ctx := context.Background()
	d, err := repos.Departments.GetByName(ctx, dept)
	require.NoError(t, err)
	user := models.NewUser(username, "hash", username, username+"@epic.test", "", d)
	require.NoError(t, repos.Users.Create(ctx, user))
	return user
}

func seedClient(t *testing.T, repos *repositories.Repositories, owner *models.User, email string) *models.Client {
	t.Helper()
	now := time.Now().UTC()
	client := &models.Client{FullName: "Kevin Casey", Email: email, SalesContactID: owner.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repos.Clients.Create(context.Background(), client))
	return client
}

func seedContract(t *testing.T, repos *repositories.Repositories, client *models.Client, signed bool, remaining models.Money) *models.Contract {
	t.Helper()
	now := time.Now().UTC()
	contract := &models.Contract{
		ClientID: client.ID, SalesContactID: client.SalesContactID, Signed: signed,
		Amount: 100000, RemainingAmount: remaining, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repos.Contracts.Create(context.Background(), contract))
	return contract
}

func TestMigrate_SeedsDepartments(t *testing.T) {
	store, repos := newTestRepos(t)
	ctx := context.Background()

	// Running twice keeps a single row per department.
	require.NoError(t, store.Migrate(ctx))

	depts, err := repos.Departments.List(ctx)
	require.NoError(t, err)
	require.Len(t, depts, 3)
	assert.Equal(t, policy.DepartmentGestion, depts[0].Name)

	_, err = repos.Departments.GetByName(ctx, "Marketing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.NoError(t, store.HealthCheck(ctx))
}

func TestUserRepository(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	alice := seedUser(t, repos, "alice", policy.DepartmentCommercial)
	assert.NotZero(t, alice.ID)

	t.Run("lookups join the department", func(t *testing.T) {
		got, err := repos.Users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, policy.DepartmentCommercial, got.Department)

		got, err = repos.Users.GetByEmail(ctx, "alice@epic.test")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)

		_, err = repos.Users.GetByID(ctx, 999)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("duplicate username is reported with its field", func(t *testing.T) {
		d, err := repos.Departments.GetByName(ctx, policy.DepartmentSupport)
		require.NoError(t, err)
		err = repos.Users.Create(ctx, models.NewUser("alice", "h", "Other", "other@epic.test", "", d))
		dup, ok := repositories.IsDuplicate(err)
		require.True(t, ok)
		assert.Equal(t, "username", dup.Field)
	})

	t.Run("update and count", func(t *testing.T) {
		alice.Phone = "0611111111"
		alice.UpdatedAt = time.Now().UTC()
		require.NoError(t, repos.Users.Update(ctx, alice))

		got, err := repos.Users.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "0611111111", got.Phone)

		n, err := repos.Users.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		assert.ErrorIs(t, repos.Users.Update(ctx, &models.User{ID: 999, DepartmentID: 1}), repositories.ErrNotFound)
	})
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	sales := seedUser(t, repos, "sales", policy.DepartmentCommercial)
	support := seedUser(t, repos, "support", policy.DepartmentSupport)
	client := seedClient(t, repos, sales, "client@corp.test")
	contract := seedContract(t, repos, client, true, 0)

	supportID := support.ID
	start := time.Now().UTC().Add(72 * time.Hour)
	event := &models.Event{Name: "Gala", ContractID: contract.ID, SupportContactID: &supportID, StartDate: start, EndDate: start.Add(4 * time.Hour)}
	require.NoError(t, repos.Events.Create(ctx, event))

	h, err := repos.Users.Holdings(ctx, sales.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserHoldings{Clients: 1, Contracts: 1}, *h)

	h, err = repos.Users.Holdings(ctx, support.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserHoldings{Events: 1}, *h)

	// Deleting the support contact unassigns the event.
	require.NoError(t, repos.Users.Delete(ctx, support.ID))
	got, err := repos.Events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SupportContactID)

	// Deleting the sales contact removes the client, contract and event.
	require.NoError(t, repos.Users.Delete(ctx, sales.ID))
	_, err = repos.Clients.GetByID(ctx, client.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repos.Contracts.GetByID(ctx, contract.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repos.Events.GetByID(ctx, event.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	assert.ErrorIs(t, repos.Users.Delete(ctx, sales.ID), repositories.ErrNotFound)
}

func TestContractRepository(t *testing.T) {
	store, repos := newTestRepos(t)
	ctx := context.Background()

	sales := seedUser(t, repos, "sales", policy.DepartmentCommercial)
	other := seedUser(t, repos, "other", policy.DepartmentCommercial)
	client := seedClient(t, repos, sales, "client@corp.test")
	unpaid := seedContract(t, repos, client, false, 2500)
	paid := seedContract(t, repos, client, true, 0)

	t.Run("reads carry the client's sales contact", func(t *testing.T) {
		got, err := repos.Contracts.GetByID(ctx, unpaid.ID)
		require.NoError(t, err)
		assert.Equal(t, sales.ID, got.ClientSalesContactID)
		assert.Equal(t, models.Money(2500), got.RemainingAmount)
		assert.False(t, got.Signed)
	})

	t.Run("filters", func(t *testing.T) {
		signed := false
		list, err := repos.Contracts.List(ctx, repositories.ContractFilter{Signed: &signed})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, unpaid.ID, list[0].ID)

		list, err = repos.Contracts.List(ctx, repositories.ContractFilter{UnpaidOnly: true})
		require.NoError(t, err)
		require.Len(t, list, 1)

		list, err = repos.Contracts.List(ctx, repositories.ContractFilter{SalesContactID: other.ID})
		require.NoError(t, err)
		assert.Empty(t, list)

		list, err = repos.Contracts.ListByClient(ctx, client.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("locked read and update inside a transaction", func(t *testing.T) {
		tm := store.GetTransactionManager()
		err := tm.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
			c, err := repos.Contracts.GetByIDForUpdate(txCtx, unpaid.ID)
			if err != nil {
				return err
			}
			c.RemainingAmount = 0
			c.Signed = true
			c.UpdatedAt = time.Now().UTC()
			return repos.Contracts.Update(txCtx, c)
		})
		require.NoError(t, err)

		got, err := repos.Contracts.GetByID(ctx, unpaid.ID)
		require.NoError(t, err)
		assert.True(t, got.Signed)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repos.Contracts.Delete(ctx, paid.ID))
		assert.ErrorIs(t, repos.Contracts.Delete(ctx, paid.ID), repositories.ErrNotFound)
	})
}

func TestTransactionManager_Rollback(t *testing.T) {
	store, repos := newTestRepos(t)
	ctx := context.Background()
	sales := seedUser(t, repos, "sales", policy.DepartmentCommercial)

	err := store.GetTransactionManager().InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		now := time.Now().UTC()
		if err := repos.Clients.Create(txCtx, &models.Client{FullName: "A", Email: "a@corp.test", SalesContactID: sales.ID, CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	clients, err := repos.Clients.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestEventRepository(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	sales := seedUser(t, repos, "sales", policy.DepartmentCommercial)
	support := seedUser(t, repos, "support", policy.DepartmentSupport)
	client := seedClient(t, repos, sales, "client@corp.test")
	contract := seedContract(t, repos, client, true, 0)
	start := time.Now().UTC().Add(48 * time.Hour)

	event := &models.Event{Name: "Launch", ContractID: contract.ID, StartDate: start, EndDate: start.Add(8 * time.Hour), Attendees: 75}
	require.NoError(t, repos.Events.Create(ctx, event))

	t.Run("one event per contract", func(t *testing.T) {
		err := repos.Events.Create(ctx, &models.Event{Name: "Again", ContractID: contract.ID, StartDate: start, EndDate: start.Add(time.Hour)})
		dup, ok := repositories.IsDuplicate(err)
		require.True(t, ok)
		assert.Equal(t, "contract_id", dup.Field)
	})

	t.Run("lookup by contract", func(t *testing.T) {
		got, err := repos.Events.GetByContractID(ctx, contract.ID)
		require.NoError(t, err)
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, 75, got.Attendees)
	})

	t.Run("assign support and filter", func(t *testing.T) {
		list, err := repos.Events.List(ctx, repositories.EventFilter{WithoutSupport: true})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		supportID := support.ID
		got, err := repos.Events.GetByIDForUpdate(ctx, event.ID)
		require.NoError(t, err)
		got.SupportContactID = &supportID
		require.NoError(t, repos.Events.Update(ctx, got))

		list, err = repos.Events.ListBySupportContact(ctx, support.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, support.ID, *list[0].SupportContactID)

		list, err = repos.Events.List(ctx, repositories.EventFilter{WithoutSupport: true})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestAuditAndLoginAttempts(t *testing.T) {
	_, repos := newTestRepos(t)
	ctx := context.Background()

	entry := models.NewAuditLog(models.AuditActionClientCreated, "client").WithActor(1).WithResource(9).
		WithDetails(map[string]string{"email": "c@corp.test"})
	require.NoError(t, repos.AuditLogs.Insert(ctx, entry))

	logs, err := repos.AuditLogs.ListByResource(ctx, "client", 9, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entry.ID, logs[0].ID)
	assert.JSONEq(t, `{"email":"c@corp.test"}`, string(logs[0].Details))

	logs, err = repos.AuditLogs.ListByActor(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	now := time.Now().UTC()
	require.NoError(t, repos.LoginAttempts.Insert(ctx, models.NewLoginAttempt("alice", now.Add(-time.Hour))))
	require.NoError(t, repos.LoginAttempts.Insert(ctx, models.NewLoginAttempt("alice", now.Add(-time.Minute))))

	n, err := repos.LoginAttempts.CountSince(ctx, "alice", now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := repos.LoginAttempts.DeleteBefore(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	require.NoError(t, repos.LoginAttempts.DeleteByUsername(ctx, "alice"))
	n, err = repos.LoginAttempts.CountSince(ctx, "alice", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUniqueField(t *testing.T) {
	assert.Equal(t, "email", uniqueField("UNIQUE constraint failed: users.email"))
	assert.Equal(t, "contract_id", uniqueField("UNIQUE constraint failed: events.contract_id"))
	assert.Equal(t, "", uniqueField("NOT NULL constraint failed: users.email"))
}
