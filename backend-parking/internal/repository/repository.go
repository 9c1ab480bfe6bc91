package repository

import (
	"context"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
)

// Transactor runs fn atomically. Repository calls made with the ctx handed to
// fn join the same unit of work; fn returning an error undoes all of them.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// FacilityRepository defines the interface for facility data access
type FacilityRepository interface {
	// Create stores a facility and assigns its ID
	Create(ctx context.Context, facility *domain.Facility) error

	// GetByID returns ErrFacilityNotFound when absent
	GetByID(ctx context.Context, id int64) (*domain.Facility, error)

	// List returns one page ordered by id and the total count
	List(ctx context.Context, page domain.Page) ([]*domain.Facility, int64, error)

	Update(ctx context.Context, facility *domain.Facility) error

	Delete(ctx context.Context, id int64) error
}

// TariffRepository defines the interface for tariff data access
type TariffRepository interface {
	// Create stores a tariff and assigns its ID. Duplicate names fail with ErrTariffNameExists.
	Create(ctx context.Context, tariff *domain.Tariff) error

	// GetByID returns ErrTariffNotFound when absent
	GetByID(ctx context.Context, id int64) (*domain.Tariff, error)

	// List returns one page ordered by id and the total count
	List(ctx context.Context, page domain.Page) ([]*domain.Tariff, int64, error)

	// ListActive returns every active tariff ordered by id ascending
	ListActive(ctx context.Context) ([]*domain.Tariff, error)

	Update(ctx context.Context, tariff *domain.Tariff) error

	Delete(ctx context.Context, id int64) error
}

// SessionRepository defines the interface for parking session data access
type SessionRepository interface {
	// Create stores a session and assigns its ID. A second open session for
	// the same plate fails with ErrSessionAlreadyOpen.
	Create(ctx context.Context, session *domain.ParkingSession) error

	// GetByID returns ErrSessionNotFound when absent
	GetByID(ctx context.Context, id int64) (*domain.ParkingSession, error)

	// List returns one filtered page ordered by id and the total count
	List(ctx context.Context, filter domain.SessionFilter, page domain.Page) ([]*domain.ParkingSession, int64, error)

	// Update replaces every field of an existing session
	Update(ctx context.Context, session *domain.ParkingSession) error

	Delete(ctx context.Context, id int64) error

	// FindOpenByPlate returns the open session of plate, or ErrNoOpenSession.
	// Inside a transaction the row stays locked until it ends.
	FindOpenByPlate(ctx context.Context, plate string) (*domain.ParkingSession, error)

	// MarkClosed persists the closing fields of a session that is still open.
	// It fails with ErrNoOpenSession when someone else closed it first.
	MarkClosed(ctx context.Context, session *domain.ParkingSession) error

	// FindClosedByFacilityAndDateRange returns closed sessions of the facility
	// whose end falls in the range and whose total is positive
	FindClosedByFacilityAndDateRange(ctx context.Context, facilityID int64, dateRange domain.DateRange) ([]*domain.ParkingSession, error)
}

// AuditRepository defines the interface for the append-only audit trail
type AuditRepository interface {
	// Append stores rec and assigns its ID and creation time
	Append(ctx context.Context, rec *domain.AuditRecord) error

	// GetByID returns ErrAuditRecordNotFound when absent
	GetByID(ctx context.Context, id int64) (*domain.AuditRecord, error)

	// Query returns one filtered page ordered by id and the total count
	Query(ctx context.Context, filter domain.AuditFilter, page domain.Page) ([]*domain.AuditRecord, int64, error)

	// QueryByDateRange returns one page of records created inside the range
	QueryByDateRange(ctx context.Context, dateRange domain.DateRange, page domain.Page) ([]*domain.AuditRecord, int64, error)

	// ListAfter returns up to limit records with id > afterID in id order
	ListAfter(ctx context.Context, afterID int64, limit int) ([]*domain.AuditRecord, error)
}

// CursorStore keeps the position of a sequential reader
type CursorStore interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, position int64) error
}
