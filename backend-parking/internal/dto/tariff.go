package dto

import (
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
)

// CreateTariffRequest represents a new tariff rule. Times are HH:MM or HH:MM:SS.
type CreateTariffRequest struct {
	Name         string   `json:"name" binding:"required"`
	StartTime    string   `json:"start_time" binding:"required"`
	EndTime      string   `json:"end_time" binding:"required"`
	PricePerHour *float64 `json:"price_per_hour" binding:"required"`
	Active       *bool    `json:"active,omitempty"`
}

// UpdateTariffRequest is a partial update; nil fields keep their value
type UpdateTariffRequest struct {
	Name         *string  `json:"name,omitempty"`
	StartTime    *string  `json:"start_time,omitempty"`
	EndTime      *string  `json:"end_time,omitempty"`
	PricePerHour *float64 `json:"price_per_hour,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

// ToDomain parses the request into a tariff, active unless told otherwise
func (r *CreateTariffRequest) ToDomain() (*domain.Tariff, error) {
	start, err := domain.ParseTimeOfDay(r.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseTimeOfDay(r.EndTime)
	if err != nil {
		return nil, err
	}
	t := &domain.Tariff{
		Name:      r.Name,
		StartTime: start,
		EndTime:   end,
		Active:    true,
	}
	if r.PricePerHour != nil {
		t.PricePerHour = *r.PricePerHour
	}
	if r.Active != nil {
		t.Active = *r.Active
	}
	return t, nil
}

// Apply copies the set fields onto t
func (r *UpdateTariffRequest) Apply(t *domain.Tariff) error {
	if r.Name != nil {
		t.Name = *r.Name
	}
	if r.StartTime != nil {
		start, err := domain.ParseTimeOfDay(*r.StartTime)
		if err != nil {
			return err
		}
		t.StartTime = start
	}
	if r.EndTime != nil {
		end, err := domain.ParseTimeOfDay(*r.EndTime)
		if err != nil {
			return err
		}
		t.EndTime = end
	}
	if r.PricePerHour != nil {
		t.PricePerHour = *r.PricePerHour
	}
	if r.Active != nil {
		t.Active = *r.Active
	}
	return nil
}
