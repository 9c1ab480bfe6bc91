package domain

import "errors"

// Domain errors
var (
	// Not found errors
	ErrFacilityNotFound    = errors.New("facility not found")
	ErrTariffNotFound      = errors.New("tariff not found")
	ErrSessionNotFound     = errors.New("parking session not found")
	ErrNoOpenSession       = errors.New("no open parking session for plate")
	ErrAuditRecordNotFound = errors.New("audit record not found")

	// Conflict errors
	ErrSessionAlreadyOpen = errors.New("plate already has an open parking session")
	ErrTariffNameExists   = errors.New("tariff name already exists")

	// Session validation errors
	ErrInvalidPlate         = errors.New("plate is required")
	ErrPlateTooLong         = errors.New("plate must be at most 6 characters")
	ErrInvalidFacilityID    = errors.New("invalid facility id")
	ErrInvalidSessionID     = errors.New("invalid parking session id")
	ErrInvalidSessionStatus = errors.New("invalid parking session status")
	ErrMissingStartTime     = errors.New("start time is required")
	ErrEndBeforeStart       = errors.New("end time cannot be before start time")
	ErrInvalidTotal         = errors.New("total must be a non-negative amount with at most two decimals")
	ErrOpenSessionBilled    = errors.New("an open session cannot carry a tariff or total")

	// Tariff validation errors
	ErrInvalidTariffID     = errors.New("invalid tariff id")
	ErrInvalidTariffName   = errors.New("tariff name is required")
	ErrInvalidTimeOfDay    = errors.New("time of day must be HH:MM or HH:MM:SS")
	ErrInvalidTariffWindow = errors.New("tariff start time cannot be after end time")
	ErrInvalidPrice        = errors.New("price per hour must be a non-negative amount with at most two decimals")

	// Facility validation errors
	ErrInvalidFacilityName = errors.New("facility name is required and must be at most 50 characters")
	ErrInvalidAddress      = errors.New("facility address is required and must be at most 150 characters")
	ErrInvalidPhone        = errors.New("facility phone must be exactly 8 digits")
	ErrInvalidSpaces       = errors.New("facility spaces must be at least 1")

	// Query validation errors
	ErrInvalidDateRange      = errors.New("start date cannot be after end date")
	ErrInvalidAuditOperation = errors.New("invalid audit operation")
	ErrInvalidAuditResult    = errors.New("invalid audit result")
	ErrInvalidAuditRecordID  = errors.New("invalid audit record id")

	// ErrNoResults marks an empty report. It is not a system failure.
	ErrNoResults = errors.New("no results found")

	// ErrStorage wraps every failure of the backing store, timeouts included
	ErrStorage = errors.New("storage error")

	// Fatal errors
	ErrConfiguration        = errors.New("configuration error")
	ErrDefaultTariffMissing = errors.Join(ErrConfiguration, errors.New("default tariff is missing"))
	ErrInvariantViolation   = errors.New("invariant violation")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrFacilityNotFound) ||
		errors.Is(err, ErrTariffNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrNoOpenSession) ||
		errors.Is(err, ErrAuditRecordNotFound)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrSessionAlreadyOpen) ||
		errors.Is(err, ErrTariffNameExists)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var validationErrors = []error{
	ErrInvalidPlate,
	ErrPlateTooLong,
	ErrInvalidFacilityID,
	ErrInvalidSessionID,
	ErrInvalidSessionStatus,
	ErrMissingStartTime,
	ErrEndBeforeStart,
	ErrInvalidTotal,
	ErrOpenSessionBilled,
	ErrInvalidTariffID,
	ErrInvalidTariffName,
	ErrInvalidTimeOfDay,
	ErrInvalidTariffWindow,
	ErrInvalidPrice,
	ErrInvalidFacilityName,
	ErrInvalidAddress,
	ErrInvalidPhone,
	ErrInvalidSpaces,
	ErrInvalidDateRange,
	ErrInvalidAuditOperation,
	ErrInvalidAuditResult,
	ErrInvalidAuditRecordID,
}

// IsNoResultsError checks if the error reports an empty result set
func IsNoResultsError(err error) bool {
	return errors.Is(err, ErrNoResults)
}

// IsStorageError checks if the error came from the backing store
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsFatalError checks for configuration errors and broken invariants
func IsFatalError(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrInvariantViolation)
}
