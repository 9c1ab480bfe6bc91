package dto

import (
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
)

// FacilityRequest is the create/update payload of a facility
type FacilityRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Spaces  int    `json:"spaces" binding:"required"`
	Active  *bool  `json:"active,omitempty"`
}

// ToDomain builds the facility, active unless told otherwise
func (r *FacilityRequest) ToDomain() *domain.Facility {
	f := &domain.Facility{
		Name:    r.Name,
		Address: r.Address,
		Phone:   r.Phone,
		Spaces:  r.Spaces,
		Active:  true,
	}
	if r.Active != nil {
		f.Active = *r.Active
	}
	return f
}
