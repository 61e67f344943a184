// Package users administers collaborators and turns credentials into tokens.
package users

import (
	"context"
	"sync"
	"time"

	"github.com/epicevents/crm/auth"
	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"github.com/epicevents/crm/services"
	"github.com/epicevents/crm/services/audit"
	"github.com/epicevents/crm/services/ratelimit"
	"go.uber.org/zap"
)

// TokenIssuer issues login tokens with the service's fixed TTL.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
	TTL() time.Duration
}

// rehasher is implemented by hashers that can tell outdated digests apart.
type rehasher interface {
	NeedsRehash(digest string) bool
}

// Deps holds what the user service is built from.
type Deps struct {
	Users       repositories.UserRepository
	Departments repositories.DepartmentRepository
	TxManager   repositories.TransactionManager
	Gate        services.Authorizer
	Hasher      auth.Hasher
	Tokens      TokenIssuer
	Throttle    ratelimit.Throttle
	Audit       audit.Recorder
	Logger      *zap.Logger
	Clock       func() time.Time // defaults to time.Now
}

// Service handles user administration and login
type Service struct {
	users       repositories.UserRepository
	departments repositories.DepartmentRepository
	txMgr       repositories.TransactionManager
	gate        services.Authorizer
	hasher      auth.Hasher
	tokens      TokenIssuer
	throttle    ratelimit.Throttle
	audit       audit.Recorder
	logger      *zap.Logger
	now         func() time.Time

	decoyOnce   sync.Once
	decoyDigest string
}

// NewService creates a new user service
func NewService(d Deps) *Service {
	throttle := d.Throttle
	if throttle == nil {
		throttle = ratelimit.Disabled{}
	}
	recorder := d.Audit
	if recorder == nil {
		recorder = audit.Nop{}
	}
	now := d.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		users:       d.Users,
		departments: d.Departments,
		txMgr:       d.TxManager,
		gate:        d.Gate,
		hasher:      d.Hasher,
		tokens:      d.Tokens,
		throttle:    throttle,
		audit:       recorder,
		logger:      d.Logger,
		now:         now,
	}
}

// Session is the outcome of a successful login.
type Session struct {
	Token     string
	User      *models.User
	ExpiresAt time.Time
}

// Login checks username and password and issues a token. Unknown users and
// wrong passwords fail alike; the reason only reaches the log.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	check, err := s.throttle.Check(ctx, username)
	if err != nil {
		return nil, services.WrapInternal("login throttle unavailable", err)
	}
	if !check.Allowed {
		return nil, services.NewDomainError(services.ErrorTypeRateLimit, services.ErrTooManyAttempts.Message, nil).
			WithDetail("retry_after", check.RetryAfter.String())
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if repositories.IsNotFound(err) {
			s.verifyDecoy(password)
			s.loginFailed(ctx, username, "user_not_found")
			return nil, authenticationFailed()
		}
		return nil, services.FromRepository("user", username, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, username, "password_mismatch")
		return nil, authenticationFailed()
	}

	if err := s.throttle.Reset(ctx, username); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.String("username", username), zap.Error(err))
	}
	s.upgradeHash(ctx, user, password)

	token, err := s.tokens.Issue(auth.Identity{
		UserID:     user.ID,
		Username:   user.Username,
		Department: user.Department,
	})
	if err != nil {
		return nil, services.WrapInternal("failed to issue token", err)
	}

	s.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("department", string(user.Department)))

	return &Session{Token: token, User: user, ExpiresAt: s.now().Add(s.tokens.TTL())}, nil
}

func authenticationFailed() error {
	return services.NewDomainError(services.ErrorTypeAuthentication, services.ErrAuthenticationFailed.Message, nil)
}

// verifyDecoy spends the same hashing cost as a real password check so an
// unknown username takes as long to reject as a wrong password.
func (s *Service) verifyDecoy(password string) {
	s.decoyOnce.Do(func() {
		digest, err := s.hasher.Hash("decoy password for unknown users")
		if err != nil {
			s.logger.Warn("failed to prepare decoy digest", zap.Error(err))
			return
		}
		s.decoyDigest = digest
	})
	if s.decoyDigest != "" {
		s.hasher.Verify(password, s.decoyDigest)
	}
}

func (s *Service) loginFailed(ctx context.Context, username, reason string) {
	s.logger.Warn("login failed", zap.String("username", username), zap.String("reason", reason))
	if err := s.throttle.RecordFailure(ctx, username); err != nil {
		s.logger.Error("failed to record login attempt", zap.String("username", username), zap.Error(err))
	}
}

// upgradeHash re-hashes legacy or weaker digests after a good login.
func (s *Service) upgradeHash(ctx context.Context, user *models.User, password string) {
	r, ok := s.hasher.(rehasher)
	if !ok || !r.NeedsRehash(user.PasswordHash) {
		return
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("failed to rehash password", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = digest
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Warn("failed to store rehashed password", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}

// Create adds a collaborator
func (s *Service) Create(ctx context.Context, token string, input models.CreateUserInput) (*models.User, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanManageUsers)
	if err != nil {
		return nil, err
	}
	if err := services.ValidateInput(&input); err != nil {
		return nil, err
	}

	user, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.User, error) {
		return s.create(ctx, input)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.UserCreated(authz.ActorID(), user))
	s.logger.Info("user created",
		zap.Int64("actor_id", authz.ActorID()),
		zap.Int64("user_id", user.ID),
		zap.String("department", string(user.Department)))
	return user, nil
}

// Bootstrap creates the first Gestion collaborator of an empty store. It
// needs no token.
func (s *Service) Bootstrap(ctx context.Context, input models.CreateUserInput) (*models.User, error) {
	input.Department = string(policy.DepartmentGestion)
	if err := services.ValidateInput(&input); err != nil {
		return nil, err
	}

	user, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.User, error) {
		n, err := s.users.Count(ctx)
		if err != nil {
			return nil, services.FromRepository("user", "count", err)
		}
		if n > 0 {
			return nil, services.NewBusinessRuleError("users already exist; log in as a Gestion collaborator to add more")
		}
		return s.create(ctx, input)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.UserCreated(user.ID, user))
	s.logger.Info("bootstrap user created", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *Service) create(ctx context.Context, input models.CreateUserInput) (*models.User, error) {
	dept, err := s.department(ctx, input.Department)
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(input.Username, digest, input.FullName, input.Email, input.Phone, dept)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, services.FromRepository("user", input.Username, err)
	}
	return user, nil
}

func (s *Service) department(ctx context.Context, name string) (*models.Department, error) {
	dept, err := s.departments.GetByName(ctx, policy.Department(name))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, services.NewValidationError("unknown department " + name).WithDetail("department", name)
		}
		return nil, services.FromRepository("department", name, err)
	}
	return dept, nil
}

// Update changes a collaborator's profile, department or password
func (s *Service) Update(ctx context.Context, token string, id int64, input models.UpdateUserInput) (*models.User, error) {
	authz, err := services.Authorize(s.gate, token, policy.CanManageUsers)
	if err != nil {
		return nil, err
	}
	if err := services.ValidateInput(&input); err != nil {
		return nil, err
	}

	var changes []string
	user, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context) (*models.User, error) {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, services.FromRepository("user", id, err)
		}

		if input.FullName != nil {
			user.FullName = *input.FullName
			changes = append(changes, "full_name")
		}
		if input.Email != nil {
			user.Email = *input.Email
			changes = append(changes, "email")
		}
		if input.Phone != nil {
			user.Phone = *input.Phone
			changes = append(changes, "phone")
		}
		if input.Department != nil {
			dept, err := s.department(ctx, *input.Department)
			if err != nil {
				return nil, err
			}
			user.DepartmentID = dept.ID
			user.Department = dept.Name
			changes = append(changes, "department")
		}
		if input.Password != nil {
			digest, err := s.hasher.Hash(*input.Password)
			if err != nil {
				return nil, services.WrapInternal("failed to hash password", err)
			}
			user.PasswordHash = digest
			changes = append(changes, "password")
		}
		if len(changes) == 0 {
			return nil, services.NewValidationError("nothing to update")
		}

		user.UpdatedAt = s.now().UTC()
		if err := s.users.Update(ctx, user); err != nil {
			return nil, services.FromRepository("user", id, err)
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(audit.UserUpdated(authz.ActorID(), user, changes))
	return user, nil
}

// Delete removes a collaborator. A user still responsible for clients,
// contracts or events is only removed with cascade; the store then deletes
// their clients and contracts and unassigns their events.
func (s *Service) Delete(ctx context.Context, token string, id int64, cascade bool) error {
	authz, err := services.Authorize(s.gate, token, policy.CanManageUsers)
	if err != nil {
		return err
	}
	if id == authz.ActorID() {
		return services.NewBusinessRuleError("you cannot delete your own account")
	}

	var deleted *models.User
	var holdings *models.UserHoldings
	err = services.WithTransaction(ctx, s.txMgr, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return services.FromRepository("user", id, err)
		}
		holdings, err = s.users.Holdings(ctx, id)
		if err != nil {
			return services.FromRepository("user", id, err)
		}
		if !holdings.Empty() && !cascade {
			return services.NewBusinessRuleError("user still owns records; reassign them or delete with cascade").
				WithDetail("clients", holdings.Clients).
				WithDetail("contracts", holdings.Contracts).
				WithDetail("events", holdings.Events)
		}
		if err := s.users.Delete(ctx, id); err != nil {
			return services.FromRepository("user", id, err)
		}
		deleted = user
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(audit.UserDeleted(authz.ActorID(), deleted, holdings))
	s.logger.Info("user deleted",
		zap.Int64("actor_id", authz.ActorID()),
		zap.Int64("user_id", id),
		zap.Bool("cascade", cascade))
	return nil
}

// List returns every collaborator
func (s *Service) List(ctx context.Context, token string) ([]*models.User, error) {
	if _, err := services.Authorize(s.gate, token, policy.CanListUsers); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, services.FromRepository("user", "list", err)
	}
	return users, nil
}

// Get returns one collaborator
func (s *Service) Get(ctx context.Context, token string, id int64) (*models.User, error) {
	if _, err := services.Authorize(s.gate, token, policy.CanListUsers); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository("user", id, err)
	}
	return user, nil
}

// Me returns the collaborator the token belongs to
func (s *Service) Me(ctx context.Context, token string) (*models.User, error) {
	claims, err := services.Authenticate(s.gate, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, services.NewDomainError(services.ErrorTypeTokenInvalid, services.ErrInvalidToken.Message, err)
		}
		return nil, services.FromRepository("user", claims.UserID, err)
	}
	return user, nil
}
