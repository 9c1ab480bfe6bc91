package service

import (
	"context"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/dto"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
)

// TariffService defines the tariff catalog management operations
type TariffService interface {
	CreateTariff(ctx context.Context, req *dto.CreateTariffRequest) (*domain.Tariff, error)
	GetTariff(ctx context.Context, id int64) (*domain.Tariff, error)
	ListTariffs(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Tariff], error)

	// UpdateTariff applies a partial update; unset fields keep their value
	UpdateTariff(ctx context.Context, id int64, req *dto.UpdateTariffRequest) (*domain.Tariff, error)

	DeleteTariff(ctx context.Context, id int64) error
}

type tariffService struct {
	tariffs repository.TariffRepository
	runner  *auditRunner
}

// NewTariffService creates a new tariff service
func NewTariffService(
	tx repository.Transactor,
	tariffs repository.TariffRepository,
	audit AuditRecorder,
	storageTimeout time.Duration,
	log *logger.Logger,
) TariffService {
	return &tariffService{
		tariffs: tariffs,
		runner:  newAuditRunner(tx, audit, storageTimeout, log),
	}
}

func (s *tariffService) CreateTariff(ctx context.Context, req *dto.CreateTariffRequest) (*domain.Tariff, error) {
	call := auditedCall[*domain.Tariff]{
		span: "service.tariff.create",
		entry: AuditEntry{
			Entity:      domain.EntityTariff,
			Description: "Create tariff",
			Operation:   domain.AuditOperationCreate,
			Request:     req,
		},
		transactional: true,
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.Tariff, error) {
		if req == nil {
			return nil, domain.ErrInvalidTariffName
		}
		if req.PricePerHour == nil {
			return nil, domain.ErrInvalidPrice
		}
		tariff, err := req.ToDomain()
		if err != nil {
			return nil, err
		}
		if err := tariff.Validate(); err != nil {
			return nil, err
		}
		if err := s.tariffs.Create(ctx, tariff); err != nil {
			return nil, err
		}
		return tariff, nil
	})
}

func (s *tariffService) GetTariff(ctx context.Context, id int64) (*domain.Tariff, error) {
	call := auditedCall[*domain.Tariff]{
		span: "service.tariff.get",
		entry: AuditEntry{
			Entity:      domain.EntityTariff,
			Description: "Get tariff",
			Operation:   domain.AuditOperationRead,
			Request:     idSnapshot{ID: id},
		},
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.Tariff, error) {
		if id <= 0 {
			return nil, domain.ErrInvalidTariffID
		}
		return s.tariffs.GetByID(ctx, id)
	})
}

func (s *tariffService) ListTariffs(ctx context.Context, page domain.Page) (*domain.PageResult[*domain.Tariff], error) {
	call := auditedCall[*domain.PageResult[*domain.Tariff]]{
		span: "service.tariff.list",
		entry: AuditEntry{
			Entity:      domain.EntityTariff,
			Description: "List tariffs",
			Operation:   domain.AuditOperationRead,
			Request:     map[string]int{"page": page.Number, "size": page.Size},
		},
		respond: func(r *domain.PageResult[*domain.Tariff]) any {
			return pageSnapshot{Count: len(r.Items), Total: r.Total}
		},
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.PageResult[*domain.Tariff], error) {
		items, total, err := s.tariffs.List(ctx, page)
		if err != nil {
			return nil, err
		}
		return &domain.PageResult[*domain.Tariff]{Items: items, Total: total}, nil
	})
}

func (s *tariffService) UpdateTariff(ctx context.Context, id int64, req *dto.UpdateTariffRequest) (*domain.Tariff, error) {
	call := auditedCall[*domain.Tariff]{
		span: "service.tariff.update",
		entry: AuditEntry{
			Entity:      domain.EntityTariff,
			Description: "Update tariff",
			Operation:   domain.AuditOperationUpdate,
			Request:     req,
		},
		transactional: true,
	}
	return runAudited(ctx, s.runner, call, func(ctx context.Context) (*domain.Tariff, error) {
		if id <= 0 {
			return nil, domain.ErrInvalidTariffID
		}
		tariff, err := s.tariffs.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if req != nil {
			if err := req.Apply(tariff); err != nil {
				return nil, err
			}
		}
		if err := tariff.Validate(); err != nil {
			return nil, err
		}
		if err := s.tariffs.Update(ctx, tariff); err != nil {
			return nil, err
		}
		return tariff, nil
	})
}

func (s *tariffService) DeleteTariff(ctx context.Context, id int64) error {
	call := auditedCall[int64]{
		span: "service.tariff.delete",
		entry: AuditEntry{
			Entity:      domain.EntityTariff,
			Description: "Delete tariff",
			Operation:   domain.AuditOperationDelete,
			Request:     idSnapshot{ID: id},
		},
		transactional:        true,
		auditStorageFailures: true,
		respond:              func(id int64) any { return idSnapshot{ID: id} },
	}
	_, err := runAudited(ctx, s.runner, call, func(ctx context.Context) (int64, error) {
		if id <= 0 {
			return 0, domain.ErrInvalidTariffID
		}
		return id, s.tariffs.Delete(ctx, id)
	})
	return err
}
