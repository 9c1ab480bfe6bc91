package service

import (
	"context"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/dto"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
)

// FacilityService defines facility management operations
type FacilityService interface {
	CreateFacility(ctx context.Context, req *dto.FacilityRequest) (*domain.Facility, error)
	GetFacility(ctx context.Context, id int64) (*domain.Facility, error)
	ListFacilities(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Facility], error)
	UpdateFacility(ctx context.Context, id int64, req *dto.FacilityRequest) (*domain.Facility, error)
	DeleteFacility(ctx context.Context, id int64) error
}

type facilityService struct {
	facilities repository.FacilityRepository
	runner     *auditRunner
}

// NewFacilityService creates a new facility service
func NewFacilityService(
	tx repository.Transactor,
	facilities repository.FacilityRepository,
	audit AuditRecorder,
	storageTimeout time.Duration,
	log *logger.Logger,
) FacilityService {
	return &facilityService{
		facilities: facilities,
		runner:     newAuditRunner(tx, audit, storageTimeout, log),
	}
}

func (s *facilityService) CreateFacility(ctx context.Context, req *dto.FacilityRequest) (*domain.Facility, error) {
	call := auditedCall[*domain.Facility]{
		span: "service.facility.create",
		entry: AuditEntry{
			Entity:      domain.EntityFacility,
			Description: "Create facility",
			Operation:   domain.AuditOperationCreate,
			Request:     req,
		},
		transactional: true,
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.Facility, error) {
		if req == nil {
			return nil, domain.ErrInvalidFacilityName
		}
		facility := req.ToDomain()
		if err := facility.Validate(); err != nil {
			return nil, err
		}
		if err := s.facilities.Create(ctx, facility); err != nil {
			return nil, err
		}
		return facility, nil
	})
}

func (s *facilityService) GetFacility(ctx context.Context, id int64) (*domain.Facility, error) {
	call := auditedCall[*domain.Facility]{
		span: "service.facility.get",
		entry: AuditEntry{
			Entity:      domain.EntityFacility,
			Description: "Get facility",
			Operation:   domain.AuditOperationRead,
			Request:     idSnapshot{ID: id},
		},
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.Facility, error) {
		if id <= 0 {
			return nil, domain.ErrInvalidFacilityID
		}
		return s.facilities.GetByID(ctx, id)
	})
}

func (s *facilityService) ListFacilities(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Facility], error) {
	call := auditedCall[*domain.PageResult[*domain.Facility]]{
		span: "service.facility.list",
		entry: AuditEntry{
			Entity:      domain.EntityFacility,
			Description: "List facilities",
			Operation:   domain.AuditOperationRead,
			Request:     map[string]int{"page": page.Number, "size": page.Size},
		},
		respond: func(r *domain.PageResult[*domain.Facility]) any {
			return pageSnapshot{Count: len(r.Items), Total: r.Total}
		},
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.PageResult[*domain.Facility], error) {
		items, total, err := s.facilities.List(ctx, page)
		if err != nil {
			return nil, err
		}
		return &domain.PageResult[*domain.Facility]{Items: items, Total: total}, nil
	})
}

func (s *facilityService) UpdateFacility(ctx context.Context, id int64, req *dto.FacilityRequest) (*domain.Facility, error) {
	call := auditedCall[*domain.Facility]{
		span: "service.facility.update",
		entry: AuditEntry{
			Entity:      domain.EntityFacility,
			Description: "Update facility",
			Operation:   domain.AuditOperationUpdate,
			Request:     req,
		},
		transactional: true,
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.Facility, error) {
		if id <= 0 {
			return nil, domain.ErrInvalidFacilityID
		}
		if req == nil {
			return nil, domain.ErrInvalidFacilityName
		}
		if _, err := s.facilities.GetByID(ctx, id); err != nil {
			return nil, err
		}
		facility := req.ToDomain()
		facility.ID = id
		if err := facility.Validate(); err != nil {
			return nil, err
		}
		if err := s.facilities.Update(ctx, facility); err != nil {
			return nil, err
		}
		return facility, nil
	})
}

func (s *facilityService) DeleteFacility(ctx context.Context, id int64) error {
	call := auditedCall[int64]{
		span: "service.facility.delete",
		entry: AuditEntry{
			Entity:      domain.EntityFacility,
			Description: "Delete facility",
			Operation:   domain.AuditOperationDelete,
			Request:     idSnapshot{ID: id},
		},
		transactional:        true,
		auditStorageFailures: true,
		respond:              func(id int64) any { return idSnapshot{ID: id} },
	}
	_, err := runAudited(ctx, s.runner, call, func(ctx context.Context) (int64, error) {
		if id <= 0 {
			return 0, domain.ErrInvalidFacilityID
		}
		return id, s.facilities.Delete(ctx, id)
	})
	return err
}
