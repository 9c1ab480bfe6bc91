package repository

import (
	"context"
	"errors"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/database"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresFacilityRepository implements FacilityRepository using PostgreSQL
type PostgresFacilityRepository struct {
	db database.DBTX
}

// NewPostgresFacilityRepository creates a new PostgresFacilityRepository
func NewPostgresFacilityRepository(db database.DBTX) *PostgresFacilityRepository {
	return &PostgresFacilityRepository{db: db}
}

// Create stores a facility and assigns its ID
func (r *PostgresFacilityRepository) Create(ctx context.Context, f *domain.Facility) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.facility.create")
	defer span.End()

	query := `
		INSERT INTO facilities (name, address, phone, spaces, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := database.Conn(ctx, r.db).QueryRow(ctx, query, f.Name, f.Address, f.Phone, f.Spaces, f.Active).Scan(&f.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return storageError("create facility", err)
	}

	span.SetAttributes(attribute.Int64("facility_id", f.ID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a facility by its ID
func (r *PostgresFacilityRepository) GetByID(ctx context.Context, id int64) (*domain.Facility, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.facility.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("facility_id", id))

	query := `SELECT id, name, address, phone, spaces, active FROM facilities WHERE id = $1`

	f, err := scanFacility(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrFacilityNotFound
		}
		telemetry.RecordError(span, err)
		return nil, storageError("get facility", err)
	}

	span.SetStatus(codes.Ok, "")
	return f, nil
}

// List returns one page of facilities ordered by id
func (r *PostgresFacilityRepository) List(ctx context.Context, page domain.Page) ([]*domain.Facility, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.facility.list")
	defer span.End()

	span.SetAttributes(attribute.Int("page", page.Number), attribute.Int("size", page.Size))

	conn := database.Conn(ctx, r.db)

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM facilities`).Scan(&total); err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, storageError("count facilities", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT id, name, address, phone, spaces, active
		FROM facilities
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, page.Size, page.Offset())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, storageError("list facilities", err)
	}
	defer rows.Close()

	facilities := make([]*domain.Facility, 0, page.Size)
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, 0, storageError("scan facility", err)
		}
		facilities = append(facilities, f)
	}
	if err := rows.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, storageError("iterate facilities", err)
	}

	span.SetAttributes(attribute.Int("count", len(facilities)))
	span.SetStatus(codes.Ok, "")
	return facilities, total, nil
}

// Update updates an existing facility
func (r *PostgresFacilityRepository) Update(ctx context.Context, f *domain.Facility) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.facility.update")
	defer span.End()

	span.SetAttributes(attribute.Int64("facility_id", f.ID))

	query := `
		UPDATE facilities SET
			name = $2,
			address = $3,
			phone = $4,
			spaces = $5,
			active = $6
		WHERE id = $1
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, f.ID, f.Name, f.Address, f.Phone, f.Spaces, f.Active)
	if err != nil {
		telemetry.RecordError(span, err)
		return storageError("update facility", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrFacilityNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete deletes a facility by its ID
func (r *PostgresFacilityRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.facility.delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("facility_id", id))

	result, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM facilities WHERE id = $1`, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return storageError("delete facility", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrFacilityNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func scanFacility(row pgx.Row) (*domain.Facility, error) {
	f := &domain.Facility{}
	if err := row.Scan(&f.ID, &f.Name, &f.Address, &f.Phone, &f.Spaces, &f.Active); err != nil {
		return nil, err
	}
	return f, nil
}

var _ FacilityRepository = (*PostgresFacilityRepository)(nil)
