package app

import (
	"context"
	"fmt"
	"time"

	"github.com/epicevents/crm/auth"
	"github.com/epicevents/crm/config"
	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/middleware"
	"github.com/epicevents/crm/repositories"
	"github.com/epicevents/crm/repositories/gormstore"
	"github.com/epicevents/crm/repositories/postgres"
	"github.com/epicevents/crm/services/audit"
	"github.com/epicevents/crm/services/clients"
	"github.com/epicevents/crm/services/contracts"
	"github.com/epicevents/crm/services/events"
	"github.com/epicevents/crm/services/ratelimit"
	"github.com/epicevents/crm/services/users"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// loginAttemptCleanupInterval is how often stale throttle rows are purged.
const loginAttemptCleanupInterval = 10 * time.Minute

// Store is a repository backend: postgres for shared installs, SQLite for a
// single operator.
type Store interface {
	Migrate(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Close() error
	NewRepositories() *repositories.Repositories
	GetTransactionManager() repositories.TransactionManager
}

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	Store  Store
	Redis  *redis.Client

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Auth
	Tokens *auth.TokenService
	Gate   *auth.Gate
	Hasher auth.Hasher

	// Supporting services
	Audit      *audit.AuditService
	AuditTrail *audit.Trail // reads the log back even when recording is disabled
	Throttle   ratelimit.Throttle

	// Domain services
	Users     *users.Service
	Clients   *clients.Service
	Contracts *contracts.Service
	Events    *events.Service

	// HTTP middleware
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware

	stopCleanup context.CancelFunc
}

// NewDependencies creates and wires up all application dependencies.
// The schema is not migrated here; run Migrate first on a fresh database.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStore(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.Repos = deps.Store.NewRepositories()
	deps.TxManager = deps.Store.GetTransactionManager()

	if err := deps.initAuth(cfg); err != nil {
		deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	if err := deps.initAudit(cfg); err != nil {
		deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize audit trail: %w", err)
	}

	if err := deps.initThrottle(ctx, cfg); err != nil {
		deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize login throttle: %w", err)
	}

	deps.initServices()

	deps.AuthMiddleware = middleware.NewAuthMiddleware(deps.Gate, logger)
	deps.PermissionMiddleware = middleware.NewPermissionMiddleware(deps.Gate, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initStore opens the configured repository backend
func (d *Dependencies) initStore(cfg *config.Config) error {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		store, err := gormstore.Open(cfg.Database.SQLitePath, d.Logger)
		if err != nil {
			return err
		}
		d.Store = store
	case config.DriverPostgres:
		factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
		if err != nil {
			return fmt.Errorf("failed to create repository factory: %w", err)
		}
		d.Store = &postgresStore{RepositoryFactory: factory}
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	tokens, err := auth.NewTokenService(cfg.Auth.SecretKey, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	d.Tokens = tokens
	d.Gate = auth.NewGate(tokens, policy.Default())
	d.Hasher = auth.NewArgon2Hasher(auth.DefaultArgon2Params)
	return nil
}

func (d *Dependencies) initAudit(cfg *config.Config) error {
	if !cfg.Audit.Enabled {
		d.Logger.Info("audit trail disabled")
		return nil
	}
	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	return d.Audit.Start()
}

func (d *Dependencies) initThrottle(ctx context.Context, cfg *config.Config) error {
	var store ratelimit.Store
	switch cfg.Throttle.Backend {
	case config.ThrottleBackendNone:
		d.Logger.Warn("login throttle disabled")
		d.Throttle = ratelimit.Disabled{}
		return nil
	case config.ThrottleBackendRedis:
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		d.Redis = client
		store = ratelimit.NewRedisStore(client, cfg.Throttle.Window)
	case config.ThrottleBackendPostgres:
		store = ratelimit.NewRepositoryStore(d.Repos.LoginAttempts)
	default:
		return fmt.Errorf("unsupported rate limit backend %q", cfg.Throttle.Backend)
	}

	throttle, err := ratelimit.NewLoginThrottle(store, ratelimit.Config{
		MaxAttempts: cfg.Throttle.MaxAttempts,
		Window:      cfg.Throttle.Window,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.Throttle = throttle

	// Redis expires its own keys
	if cfg.Throttle.Backend == config.ThrottleBackendPostgres {
		cleanupCtx, cancel := context.WithCancel(context.Background())
		d.stopCleanup = cancel
		go throttle.StartCleanupWorker(cleanupCtx, loginAttemptCleanupInterval)
	}

	d.Logger.Info("login throttle initialized",
		zap.String("backend", cfg.Throttle.Backend),
		zap.Int("max_attempts", cfg.Throttle.MaxAttempts),
		zap.Duration("window", cfg.Throttle.Window))
	return nil
}

func (d *Dependencies) initServices() {
	var recorder audit.Recorder = audit.Nop{}
	if d.Audit != nil {
		recorder = d.Audit
	}

	d.Users = users.NewService(users.Deps{
		Users:       d.Repos.Users,
		Departments: d.Repos.Departments,
		TxManager:   d.TxManager,
		Gate:        d.Gate,
		Hasher:      d.Hasher,
		Tokens:      d.Tokens,
		Throttle:    d.Throttle,
		Audit:       recorder,
		Logger:      d.Logger.Named("users"),
	})
	d.Clients = clients.NewService(clients.Deps{
		Clients:   d.Repos.Clients,
		TxManager: d.TxManager,
		Gate:      d.Gate,
		Audit:     recorder,
		Logger:    d.Logger.Named("clients"),
	})
	d.Contracts = contracts.NewService(contracts.Deps{
		Contracts: d.Repos.Contracts,
		Clients:   d.Repos.Clients,
		TxManager: d.TxManager,
		Gate:      d.Gate,
		Audit:     recorder,
		Logger:    d.Logger.Named("contracts"),
	})
	d.Events = events.NewService(events.Deps{
		Events:    d.Repos.Events,
		Contracts: d.Repos.Contracts,
		Users:     d.Repos.Users,
		TxManager: d.TxManager,
		Gate:      d.Gate,
		Audit:     recorder,
		Logger:    d.Logger.Named("events"),
	})
	d.AuditTrail = audit.NewTrail(d.Repos.AuditLogs, d.Gate, d.Logger.Named("audit"))
}

// Migrate creates the schema and seeds the departments
func (d *Dependencies) Migrate(ctx context.Context) error {
	return d.Store.Migrate(ctx)
}

// HealthCheck reports whether the store answers
func (d *Dependencies) HealthCheck(ctx context.Context) error {
	return d.Store.HealthCheck(ctx)
}

// Close gracefully shuts down all dependencies. The audit trail is drained
// before the store goes away.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.stopCleanup != nil {
		d.stopCleanup()
	}

	if d.Audit != nil {
		timeout := d.Config.Audit.StopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit trail: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}

// postgresStore adapts the postgres repository factory to Store
type postgresStore struct {
	*postgres.RepositoryFactory
}

func (s *postgresStore) Migrate(ctx context.Context) error {
	return s.GetDB().InitSchema(ctx)
}

func (s *postgresStore) HealthCheck(ctx context.Context) error {
	return s.GetDB().HealthCheck(ctx)
}
