package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/database"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresSessionRepository implements SessionRepository using PostgreSQL.
// The single-open-session rule is enforced by the partial unique index
// ux_parking_sessions_open_plate.
type PostgresSessionRepository struct {
	db database.DBTX
}

// NewPostgresSessionRepository creates a new PostgresSessionRepository
func NewPostgresSessionRepository(db database.DBTX) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

const sessionColumns = `id, plate, facility_id, tariff_id, start_time, end_time, total, status`

// Create stores a session and assigns its ID
func (r *PostgresSessionRepository) Create(ctx context.Context, s *domain.ParkingSession) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("plate", s.Plate),
		attribute.Int64("facility_id", s.FacilityID),
		attribute.String("status", s.Status.String()),
	)

	query := `
		INSERT INTO parking_sessions (plate, facility_id, tariff_id, start_time, end_time, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := database.Conn(ctx, r.db).QueryRow(ctx, query,
		s.Plate, s.FacilityID, s.TariffID, s.StartTime, s.EndTime, s.Total, s.Status.String(),
	).Scan(&s.ID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == openPlateIndex {
			span.SetStatus(codes.Error, "already open")
			return domain.ErrSessionAlreadyOpen
		}
		telemetry.RecordError(span, err)
		return storageError("create parking session", err)
	}

	span.SetAttributes(attribute.Int64("session_id", s.ID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a session by its ID
func (r *PostgresSessionRepository) GetByID(ctx context.Context, id int64) (*domain.ParkingSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("session_id", id))

	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`

	s, err := scanSession(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrSessionNotFound
		}
		telemetry.RecordError(span, err)
		return nil, storageError("get parking session", err)
	}

	span.SetStatus(codes.Ok, "")
	return s, nil
}

// List returns one filtered page of sessions ordered by id
func (r *PostgresSessionRepository) List(ctx context.Context, filter domain.SessionFilter, page domain.Page) ([]*domain.ParkingSession, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.list")
	defer span.End()

	var (
		conds []string
		args  []any
	)
	if filter.FacilityID > 0 {
		args = append(args, filter.FacilityID)
		conds = append(conds, fmt.Sprintf("facility_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status.String())
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Plate != "" {
		args = append(args, filter.Plate)
		conds = append(conds, fmt.Sprintf("plate = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	conn := database.Conn(ctx, r.db)

	var total int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM parking_sessions`+where, args...).Scan(&total); err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, storageError("count parking sessions", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM parking_sessions%s ORDER BY id LIMIT $%d OFFSET $%d`,
		sessionColumns, where, len(args)+1, len(args)+2)
	sessions, err := r.query(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, storageError("list parking sessions", err)
	}

	span.SetAttributes(attribute.Int("count", len(sessions)), attribute.Int64("total", total))
	span.SetStatus(codes.Ok, "")
	return sessions, total, nil
}

// Update replaces every field of an existing session
func (r *PostgresSessionRepository) Update(ctx context.Context, s *domain.ParkingSession) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.update")
	defer span.End()

	span.SetAttributes(attribute.Int64("session_id", s.ID))

	query := `
		UPDATE parking_sessions SET
			plate = $2,
			facility_id = $3,
			tariff_id = $4,
			start_time = $5,
			end_time = $6,
			total = $7,
			status = $8
		WHERE id = $1
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query,
		s.ID, s.Plate, s.FacilityID, s.TariffID, s.StartTime, s.EndTime, s.Total, s.Status.String(),
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == openPlateIndex {
			span.SetStatus(codes.Error, "already open")
			return domain.ErrSessionAlreadyOpen
		}
		telemetry.RecordError(span, err)
		return storageError("update parking session", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrSessionNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Delete deletes a session by its ID
func (r *PostgresSessionRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("session_id", id))

	result, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM parking_sessions WHERE id = $1`, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return storageError("delete parking session", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrSessionNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// FindOpenByPlate locks and returns the open session of plate
func (r *PostgresSessionRepository) FindOpenByPlate(ctx context.Context, plate string) (*domain.ParkingSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.find_open_by_plate")
	defer span.End()

	span.SetAttributes(attribute.String("plate", plate))

	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE plate = $1 AND status = 'open'`
	if database.InTx(ctx) {
		query += ` FOR UPDATE`
	}

	s, err := scanSession(database.Conn(ctx, r.db).QueryRow(ctx, query, plate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrNoOpenSession
		}
		telemetry.RecordError(span, err)
		return nil, storageError("find open parking session", err)
	}

	span.SetAttributes(attribute.Int64("session_id", s.ID))
	span.SetStatus(codes.Ok, "")
	return s, nil
}

// MarkClosed writes the closing fields, guarded on the session still being open
func (r *PostgresSessionRepository) MarkClosed(ctx context.Context, s *domain.ParkingSession) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.mark_closed")
	defer span.End()

	span.SetAttributes(attribute.Int64("session_id", s.ID))

	query := `
		UPDATE parking_sessions SET
			tariff_id = $2,
			end_time = $3,
			total = $4,
			status = 'closed'
		WHERE id = $1 AND status = 'open'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, s.ID, s.TariffID, s.EndTime, s.Total)
	if err != nil {
		telemetry.RecordError(span, err)
		return storageError("close parking session", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "already closed")
		return domain.ErrNoOpenSession
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// FindClosedByFacilityAndDateRange returns billed sessions that ended inside the range
func (r *PostgresSessionRepository) FindClosedByFacilityAndDateRange(ctx context.Context, facilityID int64, dateRange domain.DateRange) ([]*domain.ParkingSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.find_closed_by_facility")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("facility_id", facilityID),
		attribute.String("start", dateRange.Start.String()),
		attribute.String("end", dateRange.End.String()),
	)

	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions
		WHERE facility_id = $1
		  AND status = 'closed'
		  AND total > 0
		  AND end_time BETWEEN $2 AND $3
		ORDER BY end_time, id
	`

	sessions, err := r.query(ctx, query, facilityID, dateRange.Start, dateRange.End)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storageError("report parking sessions", err)
	}

	span.SetAttributes(attribute.Int("count", len(sessions)))
	span.SetStatus(codes.Ok, "")
	return sessions, nil
}

func (r *PostgresSessionRepository) query(ctx context.Context, sql string, args ...any) ([]*domain.ParkingSession, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*domain.ParkingSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*domain.ParkingSession, error) {
	var (
		s      domain.ParkingSession
		status string
	)
	err := row.Scan(&s.ID, &s.Plate, &s.FacilityID, &s.TariffID, &s.StartTime, &s.EndTime, &s.Total, &status)
	if err != nil {
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	return &s, nil
}

var _ SessionRepository = (*PostgresSessionRepository)(nil)
