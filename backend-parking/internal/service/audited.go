package service

import (
	"context"
	"errors"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"go.uber.org/zap"
)

// DefaultStorageTimeout bounds the storage work of one service operation
const DefaultStorageTimeout = 5 * time.Second

// auditRunner executes service operations and writes their audit records.
// A successful call gets exactly one SUCCESS record. A rejected call gets
// exactly one NOT_FOUND or FAILURE record, written after its work rolled back.
type auditRunner struct {
	tx      repository.Transactor
	audit   AuditRecorder
	timeout time.Duration
	log     *logger.Logger
}

func newAuditRunner(tx repository.Transactor, audit AuditRecorder, timeout time.Duration, log *logger.Logger) *auditRunner {
	if timeout <= 0 {
		timeout = DefaultStorageTimeout
	}
	if log == nil {
		log = logger.Get()
	}
	return &auditRunner{tx: tx, audit: audit, timeout: timeout, log: log}
}

// auditedCall describes one audited operation
type auditedCall[T any] struct {
	span  string
	entry AuditEntry

	// transactional commits the operation and its SUCCESS record together
	transactional bool

	// auditStorageFailures also records storage errors, as FAILURE
	auditStorageFailures bool

	// respond builds the response snapshot; nil stores the result as is
	respond func(T) any
}

func runAudited[T any](ctx context.Context, r *auditRunner, call auditedCall[T], op func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := telemetry.StartSpan(ctx, call.span)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var result T
	run := func(ctx context.Context) error {
		var err error
		if result, err = op(ctx); err != nil {
			return err
		}
		entry := call.entry
		entry.Result = domain.AuditResultSuccess
		entry.Response = any(result)
		if call.respond != nil {
			entry.Response = call.respond(result)
		}
		_, err = r.audit.Append(ctx, entry)
		return err
	}

	var err error
	if call.transactional {
		err = r.tx.WithinTransaction(ctx, run)
	} else {
		err = run(ctx)
	}
	if err == nil {
		return result, nil
	}

	telemetry.RecordError(span, err)
	var zero T
	return zero, r.recordRejection(ctx, call.entry, call.auditStorageFailures, err)
}

func (r *auditRunner) recordRejection(ctx context.Context, entry AuditEntry, auditStorageFailures bool, err error) error {
	result, audited := domain.ResultFor(err)
	if !audited && auditStorageFailures && domain.IsStorageError(err) {
		result, audited = domain.AuditResultFailure, true
	}
	if !audited {
		if domain.IsFatalError(err) {
			r.log.ErrorContext(ctx, "Operation aborted",
				zap.String("entity", entry.Entity),
				zap.String("operation", string(entry.Operation)),
				zap.Error(err),
			)
		}
		return err
	}

	entry.Result = result
	entry.Response = map[string]string{"error": err.Error()}
	if _, auditErr := r.audit.Append(ctx, entry); auditErr != nil {
		return errors.Join(err, auditErr)
	}
	return err
}
