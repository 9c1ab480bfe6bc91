package service

import (
	"context"
	"fmt"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SessionService defines the parking session registry
type SessionService interface {
	// OpenSession registers a vehicle entering a facility
	OpenSession(ctx context.Context, plate string, facilityID int64) (*domain.ParkingSession, error)

	// CloseSession registers a vehicle leaving and bills its open session
	CloseSession(ctx context.Context, plate string) (*domain.ParkingSession, error)

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, id int64) (*domain.ParkingSession, error)

	// ListSessions retrieves one filtered page of sessions
	ListSessions(ctx context.Context, filter domain.SessionFilter, page domain.Page) (*domain.PageResult[*domain.ParkingSession], error)

	// CreateSession stores a session as given, without billing it
	CreateSession(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error)

	// UpdateSession replaces a session as given, without billing it
	UpdateSession(ctx context.Context, id int64, session *domain.ParkingSession) (*domain.ParkingSession, error)

	// DeleteSession removes a session
	DeleteSession(ctx context.Context, id int64) error

	// ReportByFacility returns the billed sessions of a facility that ended inside the range
	ReportByFacility(ctx context.Context, facilityID int64, dateRange domain.DateRange) ([]*domain.ParkingSession, error)
}

// SessionServiceConfig contains configuration for the session service
type SessionServiceConfig struct {
	Location       *time.Location
	StorageTimeout time.Duration

	// Now is the clock; it defaults to time.Now
	Now func() time.Time
}

type sessionService struct {
	sessions   repository.SessionRepository
	facilities repository.FacilityRepository
	tariffs    repository.TariffRepository
	selector   TariffSelector
	calculator BillingCalculator
	runner     *auditRunner
	location   *time.Location
	now        func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(
	tx repository.Transactor,
	sessions repository.SessionRepository,
	facilities repository.FacilityRepository,
	tariffs repository.TariffRepository,
	selector TariffSelector,
	calculator BillingCalculator,
	audit AuditRecorder,
	cfg *SessionServiceConfig,
	log *logger.Logger,
) SessionService {
	loc := time.Local
	now := time.Now
	var timeout time.Duration
	if cfg != nil {
		if cfg.Location != nil {
			loc = cfg.Location
		}
		if cfg.Now != nil {
			now = cfg.Now
		}
		timeout = cfg.StorageTimeout
	}
	if calculator == nil {
		calculator = NewBillingCalculator()
	}
	return &sessionService{
		sessions:   sessions,
		facilities: facilities,
		tariffs:    tariffs,
		selector:   selector,
		calculator: calculator,
		runner:     newAuditRunner(tx, audit, timeout, log),
		location:   loc,
		now:        now,
	}
}

type openSessionSnapshot struct {
	Plate      string `json:"plate"`
	FacilityID int64  `json:"facility_id"`
}

type closeSessionSnapshot struct {
	Plate string `json:"plate"`
}

type idSnapshot struct {
	ID int64 `json:"id"`
}

type pageSnapshot struct {
	Count int   `json:"count"`
	Total int64 `json:"total"`
}

func (s *sessionService) OpenSession(ctx context.Context, plate string, facilityID int64) (*domain.ParkingSession, error) {
	call := auditedCall[*domain.ParkingSession]{
		span: "service.session.open",
		entry: AuditEntry{
			Entity:      domain.EntityParkingSession,
			Description: "Register vehicle entry",
			Operation:   domain.AuditOperationCreate,
			Request:     openSessionSnapshot{Plate: plate, FacilityID: facilityID},
		},
		transactional: true,
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.ParkingSession, error) {
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("plate", plate),
			attribute.Int64("facility_id", facilityID),
		)

		session, err := domain.NewParkingSession(plate, facilityID, s.now())
		if err != nil {
			return nil, err
		}
		if _, err := s.facilities.GetByID(ctx, facilityID); err != nil {
			return nil, err
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	})
}

func (s *sessionService) CloseSession(ctx context.Context, plate string) (*domain.ParkingSession, error) {
	call := auditedCall[*domain.ParkingSession]{
		span: "service.session.close",
		entry: AuditEntry{
			Entity:      domain.EntityParkingSession,
			Description: "Register vehicle exit",
			Operation:   domain.AuditOperationUpdate,
			Request:     closeSessionSnapshot{Plate: plate},
		},
		transactional: true,
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.ParkingSession, error) {
		normalized, err := domain.NormalizePlate(plate)
		if err != nil {
			return nil, err
		}

		session, err := s.sessions.FindOpenByPlate(ctx, normalized)
		if err != nil {
			return nil, err
		}

		end := s.now()
		minutes := int64(end.Sub(session.StartTime) / time.Minute)

		tariff, err := s.selector.SelectTariff(ctx, entryTimeOfDay(session.StartTime, s.location))
		if err != nil {
			return nil, err
		}
		total, err := s.calculator.ComputeTotal(minutes, tariff.PricePerHour)
		if err != nil {
			return nil, err
		}
		if err := session.Close(end, tariff.ID, total); err != nil {
			return nil, err
		}

		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int64("session_id", session.ID),
			attribute.Int64("tariff_id", tariff.ID),
			attribute.Int64("duration_minutes", minutes),
			attribute.Float64("total", total),
		)

		if err := s.sessions.MarkClosed(ctx, session); err != nil {
			return nil, err
		}
		return session, nil
	})
}

func (s *sessionService) GetSession(ctx context.Context, id int64) (*domain.ParkingSession, error) {
	call := auditedCall[*domain.ParkingSession]{
		span: "service.session.get",
		entry: AuditEntry{
			Entity:      domain.EntityParkingSession,
			Description: "Get parking session",
			Operation:   domain.AuditOperationRead,
			Request:     idSnapshot{ID: id},
		},
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.ParkingSession, error) {
		if id <= 0 {
			return nil, domain.ErrInvalidSessionID
		}
		return s.sessions.GetByID(ctx, id)
	})
}

func (s *sessionService) ListSessions(ctx context.Context, filter domain.SessionFilter, page domain.Page) (*domain.PageResult[*domain.ParkingSession], error) {
	call := auditedCall[*domain.PageResult[*domain.ParkingSession]]{
		span: "service.session.list",
		entry: AuditEntry{
			Entity:      domain.EntityParkingSession,
			Description: "List parking sessions",
			Operation:   domain.AuditOperationRead,
			Request: map[string]any{
				"facility_id": filter.FacilityID,
				"status":      filter.Status,
				"plate":       filter.Plate,
				"page":        page.Number,
				"size":        page.Size,
			},
		},
		respond: func(r *domain.PageResult[*domain.ParkingSession]) any {
			return pageSnapshot{Count: len(r.Items), Total: r.Total}
		},
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.PageResult[*domain.ParkingSession], error) {
		if filter.Status != "" && !filter.Status.IsValid() {
			return nil, domain.ErrInvalidSessionStatus
		}
		if filter.Plate != "" {
			plate, err := domain.NormalizePlate(filter.Plate)
			if err != nil {
				return nil, err
			}
			filter.Plate = plate
		}
		items, total, err := s.sessions.List(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		return &domain.PageResult[*domain.ParkingSession]{Items: items, Total: total}, nil
	})
}

func (s *sessionService) CreateSession(ctx context.Context, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	call := auditedCall[*domain.ParkingSession]{
		span: "service.session.create",
		entry: AuditEntry{
			Entity:      domain.EntityParkingSession,
			Description: "Create parking session",
			Operation:   domain.AuditOperationCreate,
			Request:     session,
		},
		transactional: true,
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.ParkingSession, error) {
		if session == nil {
			return nil, domain.ErrInvalidPlate
		}
		created := session.Clone()
		created.ID = 0
		if err := s.checkAdminSession(ctx, created); err != nil {
			return nil, err
		}
		if err := s.sessions.Create(ctx, created); err != nil {
			return nil, err
		}
		return created, nil
	})
}

func (s *sessionService) UpdateSession(ctx context.Context, id int64, session *domain.ParkingSession) (*domain.ParkingSession, error) {
	call := auditedCall[*domain.ParkingSession]{
		span: "service.session.update",
		entry: AuditEntry{
			Entity:      domain.EntityParkingSession,
			Description: "Update parking session",
			Operation:   domain.AuditOperationUpdate,
			Request:     session,
		},
		transactional: true,
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.ParkingSession, error) {
		if id <= 0 {
			return nil, domain.ErrInvalidSessionID
		}
		stored, err := s.sessions.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, domain.ErrInvalidPlate
		}
		updated := session.Clone()
		updated.ID = id
		// A closed session keeps its end time and is never reopened
		if !stored.IsOpen() && (updated.IsOpen() || updated.EndTime == nil) {
			return nil, fmt.Errorf("%w: a closed session cannot be reopened", domain.ErrInvalidSessionStatus)
		}
		if err := s.checkAdminSession(ctx, updated); err != nil {
			return nil, err
		}
		if err := s.sessions.Update(ctx, updated); err != nil {
			return nil, err
		}
		return updated, nil
	})
}

func (s *sessionService) DeleteSession(ctx context.Context, id int64) error {
	call := auditedCall[int64]{
		span: "service.session.delete",
		entry: AuditEntry{
			Entity:      domain.EntityParkingSession,
			Description: "Delete parking session",
			Operation:   domain.AuditOperationDelete,
			Request:     idSnapshot{ID: id},
		},
		transactional: true,
		respond:       func(id int64) any { return idSnapshot{ID: id} },
	}
	_, err := runAudited(ctx, s.runner, call, func(ctx context.Context) (int64, error) {
		if id <= 0 {
			return 0, domain.ErrInvalidSessionID
		}
		return id, s.sessions.Delete(ctx, id)
	})
	return err
}

func (s *sessionService) ReportByFacility(ctx context.Context, facilityID int64, dateRange domain.DateRange) ([]*domain.ParkingSession, error) {
	call := auditedCall[[]*domain.ParkingSession]{
		span: "service.session.report_by_facility",
		entry: AuditEntry{
			Entity:      domain.EntityParkingSession,
			Description: "Report parking sessions by facility",
			Operation:   domain.AuditOperationReport,
			Request: map[string]any{
				"facility_id": facilityID,
				"start":       dateRange.Start,
				"end":         dateRange.End,
			},
		},
		respond: func(sessions []*domain.ParkingSession) any {
			return pageSnapshot{Count: len(sessions), Total: int64(len(sessions))}
		},
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) ([]*domain.ParkingSession, error) {
		if facilityID <= 0 {
			return nil, domain.ErrInvalidFacilityID
		}
		if err := dateRange.Validate(); err != nil {
			return nil, err
		}
		sessions, err := s.sessions.FindClosedByFacilityAndDateRange(ctx, facilityID, dateRange)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return nil, domain.ErrNoResults
		}
		return sessions, nil
	})
}

// checkAdminSession validates a session written through the administrative
// path and checks that what it references exists
func (s *sessionService) checkAdminSession(ctx context.Context, session *domain.ParkingSession) error {
	if err := session.Validate(); err != nil {
		return err
	}
	if _, err := s.facilities.GetByID(ctx, session.FacilityID); err != nil {
		return err
	}
	if session.TariffID != nil {
		if _, err := s.tariffs.GetByID(ctx, *session.TariffID); err != nil {
			return err
		}
	}
	return nil
}
