package repository

import (
	"context"

	"github.com/carlosaltan18/Parkingit4-Data/pkg/database"
)

// PostgresTransactor runs service calls inside a PostgreSQL transaction.
// Failures to begin or commit are reported as storage errors; errors returned
// by fn pass through unchanged.
type PostgresTransactor struct {
	tx *database.Transactor
}

// NewPostgresTransactor creates a transactor over db
func NewPostgresTransactor(db database.TxBeginner) *PostgresTransactor {
	return &PostgresTransactor{tx: database.NewTransactor(db)}
}

func (t *PostgresTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	var fnErr error
	err := t.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		fnErr = fn(ctx)
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil {
		return fnErr
	}
	return storageError("run transaction", err)
}

var _ Transactor = (*PostgresTransactor)(nil)
