package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultAuditMaxFieldLength is the longest string kept in an audit record
const DefaultAuditMaxFieldLength = 255

// AuditEntry is one audit record before it is stored. Request and Response
// are snapshots serialized to JSON.
type AuditEntry struct {
	Entity      string
	Description string
	Operation   domain.AuditOperation
	Request     any
	Response    any
	Result      domain.AuditResult
}

// AuditRecorder is the append-only audit trail
type AuditRecorder interface {
	// Append stores entry. It fails only with a storage error.
	Append(ctx context.Context, entry AuditEntry) (*domain.AuditRecord, error)

	// Get returns one record by id
	Get(ctx context.Context, id int64) (*domain.AuditRecord, error)

	// Query returns one filtered page of committed records
	Query(ctx context.Context, filter domain.AuditFilter, page domain.Page) (*domain.PageResult[*domain.AuditRecord], error)

	// QueryByDateRange returns one page of records created inside the range
	QueryByDateRange(ctx context.Context, dateRange domain.DateRange, page domain.Page) (*domain.PageResult[*domain.AuditRecord], error)
}

type auditRecorder struct {
	repo           repository.AuditRepository
	maxFieldLength int
	storageTimeout time.Duration
	log            *logger.Logger
}

// AuditRecorderConfig contains configuration for the audit recorder
type AuditRecorderConfig struct {
	MaxFieldLength int
	StorageTimeout time.Duration
}

// NewAuditRecorder creates an AuditRecorder over repo
func NewAuditRecorder(repo repository.AuditRepository, cfg *AuditRecorderConfig, log *logger.Logger) AuditRecorder {
	maxLen := DefaultAuditMaxFieldLength
	timeout := DefaultStorageTimeout
	if cfg != nil {
		if cfg.MaxFieldLength > 0 {
			maxLen = cfg.MaxFieldLength
		}
		if cfg.StorageTimeout > 0 {
			timeout = cfg.StorageTimeout
		}
	}
	if log == nil {
		log = logger.Get()
	}
	return &auditRecorder{
		repo:           repo,
		maxFieldLength: maxLen,
		storageTimeout: timeout,
		log:            log,
	}
}

func (r *auditRecorder) Append(ctx context.Context, entry AuditEntry) (*domain.AuditRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.audit.append")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity", entry.Entity),
		attribute.String("operation", string(entry.Operation)),
		attribute.String("result", string(entry.Result)),
	)

	rec := &domain.AuditRecord{
		Entity:      entry.Entity,
		Description: r.truncate(entry.Entity, "description", entry.Description),
		Operation:   entry.Operation,
		Result:      entry.Result,
	}
	var err error
	if rec.Request, err = r.snapshot(entry.Entity, "request", entry.Request); err != nil {
		return nil, err
	}
	if rec.Response, err = r.snapshot(entry.Entity, "response", entry.Response); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.storageTimeout)
	defer cancel()

	if err := r.repo.Append(ctx, rec); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("audit_id", rec.ID))
	return rec, nil
}

func (r *auditRecorder) Get(ctx context.Context, id int64) (*domain.AuditRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.audit.get")
	defer span.End()

	if id <= 0 {
		return nil, domain.ErrInvalidAuditRecordID
	}

	ctx, cancel := context.WithTimeout(ctx, r.storageTimeout)
	defer cancel()
	return r.repo.GetByID(ctx, id)
}

func (r *auditRecorder) Query(ctx context.Context, filter domain.AuditFilter, page domain.Page) (*domain.PageResult[*domain.AuditRecord], error) {
	ctx, span := telemetry.StartSpan(ctx, "service.audit.query")
	defer span.End()

	if filter.Operation != "" && !filter.Operation.IsValid() {
		return nil, domain.ErrInvalidAuditOperation
	}
	if filter.Result != "" && !filter.Result.IsValid() {
		return nil, domain.ErrInvalidAuditResult
	}

	ctx, cancel := context.WithTimeout(ctx, r.storageTimeout)
	defer cancel()

	items, total, err := r.repo.Query(ctx, filter, page)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &domain.PageResult[*domain.AuditRecord]{Items: items, Total: total}, nil
}

func (r *auditRecorder) QueryByDateRange(ctx context.Context, dateRange domain.DateRange, page domain.Page) (*domain.PageResult[*domain.AuditRecord], error) {
	ctx, span := telemetry.StartSpan(ctx, "service.audit.query_by_date_range")
	defer span.End()

	if err := dateRange.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.storageTimeout)
	defer cancel()

	items, total, err := r.repo.QueryByDateRange(ctx, dateRange, page)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &domain.PageResult[*domain.AuditRecord]{Items: items, Total: total}, nil
}

// snapshot serializes v and shortens every string value inside it.
// Numbers are decoded as json.Number so they round-trip unchanged.
func (r *auditRecorder) snapshot(entity, field string, v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit %s: %w: %w", field, domain.ErrStorage, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to decode audit %s: %w: %w", field, domain.ErrStorage, err)
	}

	truncated := false
	tree = r.walk(tree, &truncated)
	if !truncated {
		return raw, nil
	}
	r.log.Warn("Audit snapshot truncated",
		zap.String("entity", entity),
		zap.String("field", field),
		zap.Int("max_length", r.maxFieldLength),
	)
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit %s: %w: %w", field, domain.ErrStorage, err)
	}
	return out, nil
}

func (r *auditRecorder) walk(node any, truncated *bool) any {
	switch v := node.(type) {
	case string:
		if s, cut := cutString(v, r.maxFieldLength); cut {
			*truncated = true
			return s
		}
		return v
	case map[string]any:
		for k, child := range v {
			v[k] = r.walk(child, truncated)
		}
		return v
	case []any:
		for i, child := range v {
			v[i] = r.walk(child, truncated)
		}
		return v
	default:
		return v
	}
}

func (r *auditRecorder) truncate(entity, field, s string) string {
	out, cut := cutString(s, r.maxFieldLength)
	if cut {
		r.log.Warn("Audit field truncated",
			zap.String("entity", entity),
			zap.String("field", field),
			zap.Int("length", utf8.RuneCountInString(s)),
			zap.Int("max_length", r.maxFieldLength),
		)
	}
	return out
}

// cutString keeps the first limit runes of s
func cutString(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:limit]), true
}
