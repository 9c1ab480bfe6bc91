package repository

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the idempotent DDL of the PostgreSQL store
//
//go:embed schema.sql
var Schema string

const (
	pgUniqueViolation = "23505"

	openPlateIndex   = "ux_parking_sessions_open_plate"
	tariffNameUnique = "ux_tariffs_name"
)

// uniqueViolation returns the violated constraint name, if err is a unique violation
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func storageError(action string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", action, domain.ErrStorage, err)
}
