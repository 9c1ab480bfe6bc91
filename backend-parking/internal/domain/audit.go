package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Audited entity names
const (
	EntityParkingSession = "ParkingSession"
	EntityTariff         = "Tariff"
	EntityFacility       = "Facility"
)

// AuditOperation is the kind of operation an audit record describes
type AuditOperation string

const (
	AuditOperationCreate AuditOperation = "CREATE"
	AuditOperationRead   AuditOperation = "READ"
	AuditOperationUpdate AuditOperation = "UPDATE"
	AuditOperationDelete AuditOperation = "DELETE"
	AuditOperationReport AuditOperation = "REPORT"
)

// IsValid checks if the operation is known
func (o AuditOperation) IsValid() bool {
	switch o {
	case AuditOperationCreate, AuditOperationRead, AuditOperationUpdate, AuditOperationDelete, AuditOperationReport:
		return true
	}
	return false
}

// AuditResult is the outcome recorded for an audited call
type AuditResult string

const (
	AuditResultSuccess  AuditResult = "SUCCESS"
	AuditResultFailure  AuditResult = "FAILURE"
	AuditResultNotFound AuditResult = "NOT_FOUND"
)

// IsValid checks if the result is known
func (r AuditResult) IsValid() bool {
	switch r {
	case AuditResultSuccess, AuditResultFailure, AuditResultNotFound:
		return true
	}
	return false
}

// ParseAuditOperation accepts any letter case
func ParseAuditOperation(s string) (AuditOperation, error) {
	op := AuditOperation(strings.ToUpper(strings.TrimSpace(s)))
	if !op.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAuditOperation, s)
	}
	return op, nil
}

// ParseAuditResult accepts any letter case
func ParseAuditResult(s string) (AuditResult, error) {
	r := AuditResult(strings.ToUpper(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAuditResult, s)
	}
	return r, nil
}

// ResultFor maps a rejected call's error to the result it is audited with.
// It returns false for errors that are not audited, such as storage failures.
func ResultFor(err error) (AuditResult, bool) {
	switch {
	case err == nil:
		return AuditResultSuccess, true
	case IsNotFoundError(err), IsNoResultsError(err):
		return AuditResultNotFound, true
	case IsConflictError(err), IsValidationError(err):
		return AuditResultFailure, true
	}
	return "", false
}

// AuditRecord is one immutable entry of the audit trail
type AuditRecord struct {
	ID          int64           `json:"id"`
	Entity      string          `json:"entity"`
	Description string          `json:"description"`
	Operation   AuditOperation  `json:"operation"`
	Request     json.RawMessage `json:"request,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Result      AuditResult     `json:"result"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AuditFilter narrows an audit query. Entity matches case-insensitively.
type AuditFilter struct {
	Entity    string
	Operation AuditOperation
	Result    AuditResult
}

// Matches reports whether rec passes the filter
func (f AuditFilter) Matches(rec *AuditRecord) bool {
	if f.Entity != "" && !strings.EqualFold(f.Entity, rec.Entity) {
		return false
	}
	if f.Operation != "" && f.Operation != rec.Operation {
		return false
	}
	if f.Result != "" && f.Result != rec.Result {
		return false
	}
	return true
}
