package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/epicevents/crm/auth"
	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories/gormstore"
	"github.com/epicevents/crm/services"
	"github.com/epicevents/crm/services/clients"
	"github.com/epicevents/crm/services/contracts"
	"github.com/epicevents/crm/services/events"
	"github.com/epicevents/crm/services/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type crm struct {
	users     *users.Service
	clients   *clients.Service
	contracts *contracts.Service
	events    *events.Service
}

func newCRM(t *testing.T, now time.Time) *crm {
	t.Helper()
	logger := zap.NewNop()
	store, err := gormstore.Open("file:"+t.Name()+"?mode=memory&cache=shared", logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	repos := store.NewRepositories()
	txMgr := store.GetTransactionManager()
	tokens, err := auth.NewTokenService("scenario-secret", 30*time.Minute)
	require.NoError(t, err)
	gate := auth.NewGate(tokens, policy.Default())
	clock := func() time.Time { return now }

	return &crm{
		users: users.NewService(users.Deps{
			Users: repos.Users, Departments: repos.Departments, TxManager: txMgr, Gate: gate,
			Hasher: auth.NewArgon2Hasher(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}),
			Tokens: tokens, Logger: logger, Clock: clock,
		}),
		clients: clients.NewService(clients.Deps{
			Clients: repos.Clients, TxManager: txMgr, Gate: gate, Logger: logger, Clock: clock,
		}),
		contracts: contracts.NewService(contracts.Deps{
			Contracts: repos.Contracts, Clients: repos.Clients, TxManager: txMgr, Gate: gate, Logger: logger, Clock: clock,
		}),
		events: events.NewService(events.Deps{
			Events: repos.Events, Contracts: repos.Contracts, Users: repos.Users, TxManager: txMgr, Gate: gate, Logger: logger, Clock: clock,
		}),
	}
}

func (c *crm) login(t *testing.T, username string) string {
	t.Helper()
	session, err := c.users.Login(context.Background(), username, "correct-horse-battery")
	require.NoError(t, err)
	return session.Token
}

func (c *crm) hire(t *testing.T, adminToken, username string, dept policy.Department) *models.User {
	t.Helper()
	user, err := c.users.Create(context.Background(), adminToken, models.CreateUserInput{
		Username:   username,
		Password:   "correct-horse-battery",
		FullName:   username,
		Email:      username + "@epic.test",
		Department: string(dept),
	})
	require.NoError(t, err)
	return user
}

func TestEventLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	app := newCRM(t, now)

	_, err := app.users.Bootstrap(ctx, models.CreateUserInput{
		Username: "admin", Password: "correct-horse-battery", FullName: "Admin", Email: "admin@epic.test",
	})
	require.NoError(t, err)
	admin := app.login(t, "admin")

	app.hire(t, admin, "bob", policy.DepartmentCommercial)
	app.hire(t, admin, "carol", policy.DepartmentCommercial)
	kate := app.hire(t, admin, "kate", policy.DepartmentSupport)
	bob := app.login(t, "bob")
	carol := app.login(t, "carol")

	client, err := app.clients.Create(ctx, bob, models.CreateClientInput{FullName: "Kevin Casey", Email: "kevin@startup.io"})
	require.NoError(t, err)

	// An unpaid contract cannot be signed and stays unsigned.
	unpaid, err := app.contracts.Create(ctx, admin, models.CreateContractInput{ClientID: client.ID, Amount: 100000, RemainingAmount: 10000})
	require.NoError(t, err)
	_, err = app.contracts.Sign(ctx, bob, unpaid.ID)
	assert.True(t, services.IsBusinessRuleError(err))
	reloaded, err := app.contracts.Get(ctx, bob, unpaid.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Signed)

	paid, err := app.contracts.Create(ctx, admin, models.CreateContractInput{ClientID: client.ID, Amount: 100000})
	require.NoError(t, err)
	assert.Equal(t, client.SalesContactID, paid.SalesContactID)

	// Not yet signed: no event.
	start := now.Add(48 * time.Hour)
	input := models.CreateEventInput{ContractID: paid.ID, Name: "Launch party", StartDate: start, EndDate: start.Add(8 * time.Hour)}
	_, err = app.events.Create(ctx, bob, input)
	assert.True(t, services.IsBusinessRuleError(err))

	signed, err := app.contracts.Sign(ctx, bob, paid.ID)
	require.NoError(t, err)
	assert.True(t, signed.Signed)

	// A signed contract no longer changes.
	amount := models.Money(1)
	_, err = app.contracts.Update(ctx, admin, paid.ID, models.UpdateContractInput{Amount: &amount})
	assert.True(t, services.IsBusinessRuleError(err))
	assert.True(t, services.IsBusinessRuleError(app.contracts.Delete(ctx, admin, paid.ID)))

	event, err := app.events.Create(ctx, bob, input)
	require.NoError(t, err)
	assert.Equal(t, paid.ID, event.ContractID)

	_, err = app.events.Create(ctx, bob, input)
	assert.True(t, services.IsBusinessRuleError(err))

	// Rejected on ownership before the dates are looked at.
	input.StartDate = now
	_, err = app.events.Create(ctx, carol, input)
	assert.True(t, services.IsOwnershipError(err))

	bobUser, err := app.users.Me(ctx, bob)
	require.NoError(t, err)
	_, err = app.events.AssignSupport(ctx, admin, event.ID, bobUser.ID)
	assert.True(t, services.IsBusinessRuleError(err))

	assigned, err := app.events.AssignSupport(ctx, admin, event.ID, kate.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.SupportContactID)
	assert.Equal(t, kate.ID, *assigned.SupportContactID)

	kateToken := app.login(t, "kate")
	mine, err := app.events.Filter(ctx, kateToken, events.FilterOptions{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, event.ID, mine[0].ID)

	notes := "Client wants a live band"
	updated, err := app.events.Update(ctx, kateToken, event.ID, models.UpdateEventInput{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
}
