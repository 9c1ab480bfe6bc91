package repository

import (
	"context"
	"encoding/json"
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

// PostgresAuditRepository implements AuditRepository using PostgreSQL
type PostgresAuditRepository struct {
	db database.DBTX
}

// NewPostgresAuditRepository creates a new PostgresAuditRepository
func NewPostgresAuditRepository(db database.DBTX) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

const auditColumns = `id, entity, description, operation, request, response, result, created_at`

// auditAppendLock is the advisory lock taken by every append. It is held until
// the surrounding transaction commits, so audit ids become visible in id order
// and ListAfter never skips a record that commits late.
const auditAppendLock int64 = 0x61756469745f6964

// Append stores an audit record. Inside a transaction the record commits with it.
func (r *PostgresAuditRepository) Append(ctx context.Context, rec *domain.AuditRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.audit.append")
	defer span.End()

	span.SetAttributes(
		attribute.String("entity", rec.Entity),
		attribute.String("operation", string(rec.Operation)),
		attribute.String("result", string(rec.Result)),
	)

	query := `
		WITH ordered AS (SELECT pg_advisory_xact_lock($7::bigint))
		INSERT INTO audit_records (entity, description, operation, request, response, result)
		SELECT $1::text, $2::text, $3::text, $4::jsonb, $5::jsonb, $6::text FROM ordered
		RETURNING id, created_at
	`

	err := database.Conn(ctx, r.db).QueryRow(ctx, query,
		rec.Entity, rec.Description, string(rec.Operation), jsonArg(rec.Request), jsonArg(rec.Response), string(rec.Result),
		auditAppendLock,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return storageError("append audit record", err)
	}

	span.SetAttributes(attribute.Int64("audit_id", rec.ID))
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves an audit record by its ID
func (r *PostgresAuditRepository) GetByID(ctx context.Context, id int64) (*domain.AuditRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.audit.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.Int64("audit_id", id))

	rec, err := scanAudit(database.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrAuditRecordNotFound
		}
		telemetry.RecordError(span, err)
		return nil, storageError("get audit record", err)
	}

	span.SetStatus(codes.Ok, "")
	return rec, nil
}

// Query returns one filtered page of audit records ordered by id
func (r *PostgresAuditRepository) Query(ctx context.Context, filter domain.AuditFilter, page domain.Page) ([]*domain.AuditRecord, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.audit.query")
	defer span.End()

	var (
		conds []string
		args  []any
	)
	if filter.Entity != "" {
		args = append(args, filter.Entity)
		conds = append(conds, fmt.Sprintf("LOWER(entity) = LOWER($%d)", len(args)))
	}
	if filter.Operation != "" {
		args = append(args, string(filter.Operation))
		conds = append(conds, fmt.Sprintf("operation = $%d", len(args)))
	}
	if filter.Result != "" {
		args = append(args, string(filter.Result))
		conds = append(conds, fmt.Sprintf("result = $%d", len(args)))
	}

	records, total, err := r.page(ctx, conds, args, page)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(records)))
	span.SetStatus(codes.Ok, "")
	return records, total, nil
}

// QueryByDateRange returns one page of records created inside the range
func (r *PostgresAuditRepository) QueryByDateRange(ctx context.Context, dateRange domain.DateRange, page domain.Page) ([]*domain.AuditRecord, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.audit.query_by_date_range")
	defer span.End()

	records, total, err := r.page(ctx,
		[]string{"created_at BETWEEN $1 AND $2"},
		[]any{dateRange.Start, dateRange.End},
		page,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(records)))
	span.SetStatus(codes.Ok, "")
	return records, total, nil
}

// ListAfter returns the next batch of records after afterID
func (r *PostgresAuditRepository) ListAfter(ctx context.Context, afterID int64, limit int) ([]*domain.AuditRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.audit.list_after")
	defer span.End()

	span.SetAttributes(attribute.Int64("after_id", afterID), attribute.Int("limit", limit))

	records, err := r.query(ctx, `SELECT `+auditColumns+` FROM audit_records WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, storageError("list audit records", err)
	}

	span.SetStatus(codes.Ok, "")
	return records, nil
}

func (r *PostgresAuditRepository) page(ctx context.Context, conds []string, args []any, page domain.Page) ([]*domain.AuditRecord, int64, error) {
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := database.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM audit_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, storageError("count audit records", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM audit_records%s ORDER BY id LIMIT $%d OFFSET $%d`,
		auditColumns, where, len(args)+1, len(args)+2)
	records, err := r.query(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, storageError("query audit records", err)
	}
	return records, total, nil
}

func (r *PostgresAuditRepository) query(ctx context.Context, sql string, args ...any) ([]*domain.AuditRecord, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*domain.AuditRecord{}
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanAudit(row pgx.Row) (*domain.AuditRecord, error) {
	var (
		rec               domain.AuditRecord
		operation, result string
		request, response []byte
	)
	err := row.Scan(&rec.ID, &rec.Entity, &rec.Description, &operation, &request, &response, &result, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Operation = domain.AuditOperation(operation)
	rec.Result = domain.AuditResult(result)
	if len(request) > 0 {
		rec.Request = json.RawMessage(request)
	}
	if len(response) > 0 {
		rec.Response = json.RawMessage(response)
	}
	return &rec, nil
}

// jsonArg turns an empty snapshot into SQL NULL
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

var _ AuditRepository = (*PostgresAuditRepository)(nil)
