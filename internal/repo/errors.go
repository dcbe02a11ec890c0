package repo

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrCodeTaken is returned when an invitation code collides with an existing one
	ErrCodeTaken = errors.New("invitation code already taken")
	// ErrAlreadyExists is returned when a profile for the user id already exists
	ErrAlreadyExists = errors.New("already exists")
)

const uniqueViolation = "23505"

// uniqueConstraint returns the violated constraint name if err is a Postgres unique violation.
func uniqueConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
