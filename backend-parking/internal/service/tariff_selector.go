package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/repository"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TariffSelector picks the tariff that bills a session
type TariffSelector interface {
	// SelectTariff returns the first active tariff, by ascending id, whose
	// window covers tod. When none does it falls back to the default tariff.
	SelectTariff(ctx context.Context, tod domain.TimeOfDay) (*domain.Tariff, error)
}

type tariffSelector struct {
	tariffs         repository.TariffRepository
	defaultTariffID int64
	log             *logger.Logger
}

// NewTariffSelector creates a selector over the tariff catalog
func NewTariffSelector(tariffs repository.TariffRepository, defaultTariffID int64, log *logger.Logger) TariffSelector {
	if log == nil {
		log = logger.Get()
	}
	return &tariffSelector{
		tariffs:         tariffs,
		defaultTariffID: defaultTariffID,
		log:             log,
	}
}

func (s *tariffSelector) SelectTariff(ctx context.Context, tod domain.TimeOfDay) (*domain.Tariff, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.tariff_selector.select")
	defer span.End()
	span.SetAttributes(attribute.String("time_of_day", tod.String()))

	active, err := s.tariffs.ListActive(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, t := range active {
		if t.Covers(tod) {
			span.SetAttributes(attribute.Int64("tariff_id", t.ID))
			return t, nil
		}
	}

	s.log.Debug("No tariff window matched, using default tariff",
		zap.String("time_of_day", tod.String()),
		zap.Int64("default_tariff_id", s.defaultTariffID),
	)
	t, err := s.tariffs.GetByID(ctx, s.defaultTariffID)
	if errors.Is(err, domain.ErrTariffNotFound) {
		err = fmt.Errorf("%w: id %d", domain.ErrDefaultTariffMissing, s.defaultTariffID)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("tariff_id", t.ID), attribute.Bool("default", true))
	return t, nil
}

// entryTimeOfDay is the wall-clock time a session started at in loc
func entryTimeOfDay(start time.Time, loc *time.Location) domain.TimeOfDay {
	if loc == nil {
		loc = time.Local
	}
	return domain.TimeOfDayOf(start.In(loc))
}
