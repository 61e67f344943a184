package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/epicevents/crm/repositories"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// translate maps driver errors onto the repository error vocabulary. op
// names the failed operation, e.g. "create user".
func translate(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("failed to %s: %w", op, &repositories.DuplicateError{
			Field: constraintField(pqErr.Constraint),
			Err:   err,
		})
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// constraintField recovers the column from postgres' default constraint
// names, e.g. users_email_key -> email.
func constraintField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	if i := strings.Index(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}
