// Package gormstore implements the repositories on gorm over SQLite. It
// backs single-operator installs and the integration tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/repositories"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store owns the gorm connection
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens the SQLite database at path with foreign keys enforced.
// path may be a file name or a "file:" URI.
func Open(path string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(withForeignKeys(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite has a single writer; one connection also serializes the
	// read-check-write sequences that postgres guards with row locks.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	log.Info("database connection established", zap.String("connection", "sqlite path="+path))
	return &Store{db: db, logger: log}, nil
}

func withForeignKeys(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Migrate creates the tables and seeds the fixed departments
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.AutoMigrate(allRows()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	for _, name := range policy.Departments() {
		row := departmentRow{Name: string(name)}
		if err := db.Where(departmentRow{Name: row.Name}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("failed to seed department %s: %w", name, err)
		}
	}
	s.logger.Info("database schema initialized successfully")
	return nil
}

// HealthCheck pings the underlying connection
func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.logger.Info("closing database connection")
	return sqlDB.Close()
}

// NewRepositories creates all repository instances
func (s *Store) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Departments:   &DepartmentRepository{store: s},
		Users:         &UserRepository{store: s},
		Clients:       &ClientRepository{store: s},
		Contracts:     &ContractRepository{store: s},
		Events:        &EventRepository{store: s},
		AuditLogs:     &AuditRepository{store: s},
		LoginAttempts: &LoginAttemptRepository{store: s},
	}
}

// GetTransactionManager returns a transaction manager
func (s *Store) GetTransactionManager() repositories.TransactionManager {
	return &TransactionManager{store: s}
}

// conn returns the transaction bound to ctx, or the pool.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(transactionContextKey{}).(*Transaction); ok {
		return tx.tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// translate maps gorm and sqlite errors onto the repository vocabulary.
func translate(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("failed to %s: %w", op, &repositories.DuplicateError{
			Field: uniqueField(sqliteErr.Error()),
			Err:   err,
		})
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// uniqueField extracts the column from "UNIQUE constraint failed: users.email".
func uniqueField(msg string) string {
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	col := msg[i+len(marker):]
	if j := strings.IndexAny(col, ", "); j >= 0 {
		col = col[:j]
	}
	if j := strings.LastIndex(col, "."); j >= 0 {
		col = col[j+1:]
	}
	return col
}
