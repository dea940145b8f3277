package pg

import "errors"

var (
	ErrInvalidConnectionString = errors.New("invalid postgres connection string")
	ErrNotReady                = errors.New("postgres is not ready")
	ErrHealthcheckFailed       = errors.New("postgres healthcheck failed")
	ErrMigrationFailed         = errors.New("failed to apply migrations")
)
