package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/epicevents/crm/auth"
	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"github.com/epicevents/crm/repositories/mocks"
	"github.com/epicevents/crm/services"
	"github.com/epicevents/crm/services/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	testNow    = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	testParams = auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

	gestionDept    = &models.Department{ID: 1, Name: policy.DepartmentGestion}
	commercialDept = &models.Department{ID: 2, Name: policy.DepartmentCommercial}
)

// memoryRecorder keeps audit entries in memory
type memoryRecorder struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (r *memoryRecorder) Record(log *models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
}

func (r *memoryRecorder) actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditAction, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

// fakeThrottle counts failures in memory
type fakeThrottle struct {
	limit    int
	failures map[string]int
}

func (f *fakeThrottle) Check(_ context.Context, username string) (*ratelimit.Result, error) {
	n := f.failures[models.NormalizeUsername(username)]
	return &ratelimit.Result{Allowed: n < f.limit, Attempts: n, RetryAfter: 15 * time.Minute}, nil
}

func (f *fakeThrottle) RecordFailure(_ context.Context, username string) error {
	f.failures[models.NormalizeUsername(username)]++
	return nil
}

func (f *fakeThrottle) Reset(_ context.Context, username string) error {
	delete(f.failures, models.NormalizeUsername(username))
	return nil
}

type fixture struct {
	svc      *Service
	users    *mocks.UserRepository
	depts    *mocks.DepartmentRepository
	tx       *mocks.Transaction
	tokens   *auth.TokenService
	hasher   *auth.Argon2Hasher
	throttle *fakeThrottle
	audit    *memoryRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := auth.NewTokenService("users-test-secret", 30*time.Minute,
		auth.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)

	txMgr, tx := mocks.NewPassingTransactionManager()
	f := &fixture{
		users:    new(mocks.UserRepository),
		depts:    new(mocks.DepartmentRepository),
		tx:       tx,
		tokens:   tokens,
		hasher:   auth.NewArgon2Hasher(testParams),
		throttle: &fakeThrottle{limit: 3, failures: map[string]int{}},
		audit:    &memoryRecorder{},
	}
	f.svc = NewService(Deps{
		Users:       f.users,
		Departments: f.depts,
		TxManager:   txMgr,
		Gate:        auth.NewGate(tokens, policy.Default()),
		Hasher:      f.hasher,
		Tokens:      tokens,
		Throttle:    f.throttle,
		Audit:       f.audit,
		Logger:      zap.NewNop(),
		Clock:       func() time.Time { return testNow },
	})
	return f
}

func (f *fixture) token(t *testing.T, id int64, dept policy.Department) string {
	t.Helper()
	token, err := f.tokens.Issue(auth.Identity{UserID: id, Username: fmt.Sprintf("user%d", id), Department: dept})
	require.NoError(t, err)
	return token
}

func (f *fixture) storedUser(t *testing.T, id int64, username, password string, dept *models.Department) *models.User {
	t.Helper()
	digest, err := f.hasher.Hash(password)
	require.NoError(t, err)
	u := models.NewUser(username, digest, "Some One", username+"@epic.test", "", dept)
	u.ID = id
	return u
}

func validCreateInput() models.CreateUserInput {
	return models.CreateUserInput{
		Username:   "carla",
		Password:   "s3cret-password",
		FullName:   "Carla Diaz",
		Email:      "carla@epic.test",
		Department: "Commercial",
	}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.storedUser(t, 7, "carla", "s3cret-password", commercialDept)
	f.throttle.failures["carla"] = 2

	f.users.On("GetByUsername", ctx, "carla").Return(user, nil)

	session, err := f.svc.Login(ctx, "carla", "s3cret-password")
	require.NoError(t, err)

	claims, err := f.tokens.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "carla", claims.Username)
	assert.Equal(t, policy.DepartmentCommercial, claims.Department)
	assert.Equal(t, testNow.Add(30*time.Minute), session.ExpiresAt)
	assert.Zero(t, f.throttle.failures["carla"])
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.storedUser(t, 7, "carla", "s3cret-password", commercialDept)

	f.users.On("GetByUsername", ctx, "carla").Return(user, nil)
	f.users.On("GetByUsername", ctx, "ghost").Return(nil, repositories.ErrNotFound)

	_, wrongPassword := f.svc.Login(ctx, "carla", "guess")
	_, unknownUser := f.svc.Login(ctx, "ghost", "guess")

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, services.ErrorTypeAuthentication, services.GetErrorType(wrongPassword))
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, 1, f.throttle.failures["carla"])
	assert.Equal(t, 1, f.throttle.failures["ghost"])
}

// countingHasher counts Verify calls on top of a real hasher
type countingHasher struct {
	*auth.Argon2Hasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(plaintext, digest string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.Argon2Hasher.Verify(plaintext, digest)
}

func TestLogin_UnknownUserStillVerifiesAPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hasher := &countingHasher{Argon2Hasher: f.hasher}
	svc := NewService(Deps{
		Users:    f.users,
		Hasher:   hasher,
		Tokens:   f.tokens,
		Throttle: f.throttle,
		Logger:   zap.NewNop(),
	})
	f.users.On("GetByUsername", ctx, "ghost").Return(nil, repositories.ErrNotFound)

	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, "ghost", "guess")
		require.True(t, services.IsAuthenticationError(err))
	}

	assert.Equal(t, 2, hasher.verifies)
	assert.NotEmpty(t, svc.decoyDigest)
}

func TestLogin_Throttled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.storedUser(t, 7, "carla", "s3cret-password", commercialDept)
	f.users.On("GetByUsername", ctx, "carla").Return(user, nil)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(ctx, "carla", "nope")
		require.True(t, services.IsAuthenticationError(err))
	}

	// Even the right password is refused while throttled
	_, err := f.svc.Login(ctx, "Carla", "s3cret-password")
	assert.True(t, services.IsRateLimitError(err))
	assert.Equal(t, "15m0s", services.GetErrorDetails(err)["retry_after"])
}

func TestLogin_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.users.On("GetByUsername", ctx, "carla").Return(nil, errors.New("connection refused"))

	_, err := f.svc.Login(ctx, "carla", "whatever")
	assert.True(t, services.IsInternalError(err))
	assert.Zero(t, f.throttle.failures["carla"])
}

func TestLogin_RehashesLegacyDigest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// accounts imported from the previous system carry bcrypt digests
	legacy, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.NewUser("legacy", string(legacy), "Old Timer", "old@epic.test", "", gestionDept)
	user.ID = 3

	f.users.On("GetByUsername", ctx, "legacy").Return(user, nil)
	f.users.On("Update", ctx, mock.MatchedBy(func(u *models.User) bool {
		return u.ID == 3 && !f.hasher.NeedsRehash(u.PasswordHash)
	})).Return(nil)

	_, err = f.svc.Login(ctx, "legacy", "password123")
	require.NoError(t, err)
	f.users.AssertExpectations(t)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.token(t, 1, policy.DepartmentGestion)

	f.depts.On("GetByName", mocks.InTx, policy.DepartmentCommercial).Return(commercialDept, nil)
	f.users.On("Create", mocks.InTx, mock.MatchedBy(func(u *models.User) bool {
		return u.Username == "carla" && u.DepartmentID == 2 && u.PasswordHash != "s3cret-password"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = 12
	}).Return(nil)

	user, err := f.svc.Create(ctx, admin, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, int64(12), user.ID)
	assert.True(t, f.hasher.Verify("s3cret-password", user.PasswordHash))
	assert.True(t, f.tx.Committed)
	assert.Equal(t, []models.AuditAction{models.AuditActionUserCreated}, f.audit.actions())
}

func TestCreate_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("commercial may not manage users", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.token(t, 4, policy.DepartmentCommercial), validCreateInput())
		assert.True(t, services.IsForbiddenError(err))
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, "garbage", validCreateInput())
		assert.Equal(t, services.ErrorTypeTokenInvalid, services.GetErrorType(err))
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)
		in := validCreateInput()
		in.Email = "nope"
		_, err := f.svc.Create(ctx, f.token(t, 1, policy.DepartmentGestion), in)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newFixture(t)
		f.depts.On("GetByName", mocks.InTx, policy.DepartmentCommercial).Return(commercialDept, nil)
		f.users.On("Create", mocks.InTx, mock.Anything).
			Return(fmt.Errorf("failed to create user: %w", &repositories.DuplicateError{Field: "email"}))

		_, err := f.svc.Create(ctx, f.token(t, 1, policy.DepartmentGestion), validCreateInput())
		assert.True(t, services.IsConflictError(err))
		assert.Equal(t, "user with this email already exists", services.PublicMessage(err))
		assert.True(t, f.tx.RolledBack)
		assert.Empty(t, f.audit.actions())
	})
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("first user becomes Gestion", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("Count", mocks.InTx).Return(0, nil)
		f.depts.On("GetByName", mocks.InTx, policy.DepartmentGestion).Return(gestionDept, nil)
		f.users.On("Create", mocks.InTx, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = 1
		}).Return(nil)

		in := validCreateInput()
		in.Department = "Support"
		user, err := f.svc.Bootstrap(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, policy.DepartmentGestion, user.Department)
	})

	t.Run("refused once users exist", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("Count", mocks.InTx).Return(2, nil)

		_, err := f.svc.Bootstrap(ctx, validCreateInput())
		assert.True(t, services.IsBusinessRuleError(err))
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.token(t, 1, policy.DepartmentGestion)
	user := f.storedUser(t, 5, "carla", "old-password", commercialDept)

	f.users.On("GetByID", mocks.InTx, int64(5)).Return(user, nil)
	f.depts.On("GetByName", mocks.InTx, policy.DepartmentGestion).Return(gestionDept, nil)
	f.users.On("Update", mocks.InTx, user).Return(nil)

	dept := "Gestion"
	password := "new-password-1"
	updated, err := f.svc.Update(ctx, admin, 5, models.UpdateUserInput{Department: &dept, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, policy.DepartmentGestion, updated.Department)
	assert.Equal(t, int64(1), updated.DepartmentID)
	assert.True(t, f.hasher.Verify("new-password-1", updated.PasswordHash))
	assert.Equal(t, testNow, updated.UpdatedAt)
}

func TestUpdate_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByID", mocks.InTx, int64(99)).Return(nil, repositories.ErrNotFound)
		name := "X"
		_, err := f.svc.Update(ctx, f.token(t, 1, policy.DepartmentGestion), 99, models.UpdateUserInput{FullName: &name})
		assert.True(t, services.IsNotFoundError(err))
	})

	t.Run("nothing to update", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByID", mocks.InTx, int64(5)).Return(f.storedUser(t, 5, "carla", "pw-pw-pw-pw", commercialDept), nil)
		_, err := f.svc.Update(ctx, f.token(t, 1, policy.DepartmentGestion), 5, models.UpdateUserInput{})
		assert.True(t, services.IsValidationError(err))
		f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown department", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByID", mocks.InTx, int64(5)).Return(f.storedUser(t, 5, "carla", "pw-pw-pw-pw", commercialDept), nil)
		f.depts.On("GetByName", mocks.InTx, policy.DepartmentSupport).Return(nil, repositories.ErrNotFound)
		dept := "Support"
		_, err := f.svc.Update(ctx, f.token(t, 1, policy.DepartmentGestion), 5, models.UpdateUserInput{Department: &dept})
		assert.True(t, services.IsValidationError(err))
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("user without holdings", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByID", mocks.InTx, int64(5)).Return(&models.User{ID: 5, Username: "sam"}, nil)
		f.users.On("Holdings", mocks.InTx, int64(5)).Return(&models.UserHoldings{}, nil)
		f.users.On("Delete", mocks.InTx, int64(5)).Return(nil)

		require.NoError(t, f.svc.Delete(ctx, f.token(t, 1, policy.DepartmentGestion), 5, false))
		assert.Equal(t, []models.AuditAction{models.AuditActionUserDeleted}, f.audit.actions())
	})

	t.Run("holdings block deletion without cascade", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByID", mocks.InTx, int64(5)).Return(&models.User{ID: 5}, nil)
		f.users.On("Holdings", mocks.InTx, int64(5)).Return(&models.UserHoldings{Clients: 2, Contracts: 1}, nil)

		err := f.svc.Delete(ctx, f.token(t, 1, policy.DepartmentGestion), 5, false)
		require.True(t, services.IsBusinessRuleError(err))
		assert.Equal(t, 2, services.GetErrorDetails(err)["clients"])
		f.users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("cascade deletes anyway", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByID", mocks.InTx, int64(5)).Return(&models.User{ID: 5}, nil)
		f.users.On("Holdings", mocks.InTx, int64(5)).Return(&models.UserHoldings{Events: 3}, nil)
		f.users.On("Delete", mocks.InTx, int64(5)).Return(nil)

		require.NoError(t, f.svc.Delete(ctx, f.token(t, 1, policy.DepartmentGestion), 5, true))
		f.users.AssertExpectations(t)
	})

	t.Run("cannot delete yourself", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Delete(ctx, f.token(t, 1, policy.DepartmentGestion), 1, true)
		assert.True(t, services.IsBusinessRuleError(err))
	})

	t.Run("support may not delete", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.Delete(ctx, f.token(t, 9, policy.DepartmentSupport), 5, true)
		assert.True(t, services.IsForbiddenError(err))
	})
}

func TestListGetMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	carla := &models.User{ID: 4, Username: "carla", Department: policy.DepartmentCommercial}

	f.users.On("List", ctx).Return([]*models.User{carla}, nil)
	f.users.On("GetByID", ctx, int64(4)).Return(carla, nil)

	users, err := f.svc.List(ctx, f.token(t, 1, policy.DepartmentGestion))
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = f.svc.List(ctx, f.token(t, 4, policy.DepartmentCommercial))
	assert.True(t, services.IsForbiddenError(err))

	got, err := f.svc.Get(ctx, f.token(t, 1, policy.DepartmentGestion), 4)
	require.NoError(t, err)
	assert.Equal(t, "carla", got.Username)

	me, err := f.svc.Me(ctx, f.token(t, 4, policy.DepartmentCommercial))
	require.NoError(t, err)
	assert.Same(t, carla, me)
}
