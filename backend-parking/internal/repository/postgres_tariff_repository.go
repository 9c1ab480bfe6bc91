package repository

import (
	"context"
	"errors"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/database"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresTariffRepository implements TariffRepository using PostgreSQL
type PostgresTariffRepository struct {
	db database.DBTX
}

// NewPostgresTariffRepository creates a new PostgresTariffRepository
func NewPostgresTariffRepository(db database.DBTX) *PostgresTariffRepository {
	return &PostgresTariffRepository{db: db}
}

const tariffColumns = `id, name, start_time, end_time, price_per_hour, active`

// Create stores a tariff and assigns its ID
func (r *PostgresTariffRepository) Create(ctx context.Context, t *domain.Tariff) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tariff.create")
	defer span.End()

	span.SetAttributes(attribute.String("tariff_name", t.Name))

	query := `
		INSERT INTO tariffs (name, start_time, end_time, price_per_hour, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := database.Conn(ctx, r.db).QueryRow(ctx, query,
		t.Name, toPgTime(t.StartTime), toPgTime(t.EndTime), t.PricePerHour, t.Active,
	).Scan(&t.ID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == tariffNameUnique {
			span.SetStatus(codes.Error, "duplicate name")
			return domain.ErrTariffNameExists
		}
		telemetry.RecordError(span, err)
		return storageError("create tariff", err)
	}

	span.SetAttributes(attribute.Int64("tariff_id", t.ID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a tariff by its ID
func (r *PostgresTariffRepository) GetByID(ctx context.Context, id int64) (*domain.Tariff, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tariff.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("tariff_id", id))

	query := `SELECT ` + tariffColumns + ` FROM tariffs WHERE id = $1`

	t, err := scanTariff(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrTariffNotFound
		}
		telemetry.RecordError(span, err)
		return nil, storageError("get tariff", err)
	}

	span.SetStatus(codes.Ok, "")
	return t, nil
}

// List returns one page of tariffs ordered by id
func (r *PostgresTariffRepository) List(ctx context.Context, page domain.Page) ([]*domain.Tariff, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tariff.list")
	defer span.End()

	conn := database.Conn(ctx, r.db)

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM tariffs`).Scan(&total); err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, storageError("count tariffs", err)
	}

	tariffs, err := r.query(ctx, `SELECT `+tariffColumns+` FROM tariffs ORDER BY id LIMIT $1 OFFSET $2`, page.Size, page.Offset())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, storageError("list tariffs", err)
	}

	span.SetAttributes(attribute.Int("count", len(tariffs)))
	span.SetStatus(codes.Ok, "")
	return tariffs, total, nil
}

// ListActive returns all active tariffs ordered by id ascending
func (r *PostgresTariffRepository) ListActive(ctx context.Context) ([]*domain.Tariff, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tariff.list_active")
	defer span.End()

	tariffs, err := r.query(ctx, `SELECT `+tariffColumns+` FROM tariffs WHERE active ORDER BY id`)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storageError("list active tariffs", err)
	}

	span.SetAttributes(attribute.Int("count", len(tariffs)))
	span.SetStatus(codes.Ok, "")
	return tariffs, nil
}

// Update updates an existing tariff
func (r *PostgresTariffRepository) Update(ctx context.Context, t *domain.Tariff) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tariff.update")
	defer span.End()

	span.SetAttributes(attribute.Int64("tariff_id", t.ID))

	query := `
		UPDATE tariffs SET
			name = $2,
			start_time = $3,
			end_time = $4,
			price_per_hour = $5,
			active = $6
		WHERE id = $1
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query,
		t.ID, t.Name, toPgTime(t.StartTime), toPgTime(t.EndTime), t.PricePerHour, t.Active,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == tariffNameUnique {
			span.SetStatus(codes.Error, "duplicate name")
			return domain.ErrTariffNameExists
		}
		telemetry.RecordError(span, err)
		return storageError("update tariff", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrTariffNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete deletes a tariff by its ID
func (r *PostgresTariffRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tariff.delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("tariff_id", id))

	result, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM tariffs WHERE id = $1`, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return storageError("delete tariff", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrTariffNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (r *PostgresTariffRepository) query(ctx context.Context, sql string, args ...any) ([]*domain.Tariff, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tariffs []*domain.Tariff
	for rows.Next() {
		t, err := scanTariff(rows)
		if err != nil {
			return nil, err
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, rows.Err()
}

func scanTariff(row pgx.Row) (*domain.Tariff, error) {
	var (
		t          domain.Tariff
		start, end pgtype.Time
	)
	if err := row.Scan(&t.ID, &t.Name, &start, &end, &t.PricePerHour, &t.Active); err != nil {
		return nil, err
	}
	t.StartTime = fromPgTime(start)
	t.EndTime = fromPgTime(end)
	return &t, nil
}

func toPgTime(tod domain.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(tod.Duration() / time.Microsecond), Valid: true}
}

func fromPgTime(t pgtype.Time) domain.TimeOfDay {
	return domain.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}

var _ TariffRepository = (*PostgresTariffRepository)(nil)
