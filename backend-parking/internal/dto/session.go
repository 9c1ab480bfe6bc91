package dto

import (
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
)

// OpenSessionRequest represents a vehicle entering a facility
type OpenSessionRequest struct {
	Plate      string `json:"plate" binding:"required"`
	FacilityID int64  `json:"facility_id" binding:"required,min=1"`
}

// CloseSessionRequest represents a vehicle leaving
type CloseSessionRequest struct {
	Plate string `json:"plate" binding:"required"`
}

// SessionRequest is the administrative create/update payload.
// A session with an end time is stored as closed.
type SessionRequest struct {
	Plate      string     `json:"plate" binding:"required"`
	FacilityID int64      `json:"facility_id" binding:"required,min=1"`
	TariffID   *int64     `json:"tariff_id,omitempty"`
	StartTime  time.Time  `json:"start_time" binding:"required"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Total      *float64   `json:"total,omitempty"`
}

// ToDomain builds the session described by the request
func (r *SessionRequest) ToDomain() *domain.ParkingSession {
	s := &domain.ParkingSession{
		Plate:      r.Plate,
		FacilityID: r.FacilityID,
		TariffID:   r.TariffID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Total:      r.Total,
		Status:     domain.SessionStatusOpen,
	}
	if r.EndTime != nil {
		s.Status = domain.SessionStatusClosed
	}
	return s
}

// SessionListQuery holds the filters of GET /sessions
type SessionListQuery struct {
	FacilityID int64  `form:"facility_id"`
	Status     string `form:"status"`
	Plate      string `form:"plate"`
	Page       int    `form:"page"`
	Size       int    `form:"size"`
}

// ReportQuery holds the date range of a facility report
type ReportQuery struct {
	Start time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End   time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

// SessionResponse represents a parking session in API responses
type SessionResponse struct {
	ID              int64      `json:"id"`
	Plate           string     `json:"plate"`
	FacilityID      int64      `json:"facility_id"`
	TariffID        *int64     `json:"tariff_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationMinutes *int64     `json:"duration_minutes,omitempty"`
	Total           *float64   `json:"total"`
	Status          string     `json:"status"`
}

// FromSession converts a domain session to its response
func FromSession(s *domain.ParkingSession) *SessionResponse {
	resp := &SessionResponse{
		ID:         s.ID,
		Plate:      s.Plate,
		FacilityID: s.FacilityID,
		TariffID:   s.TariffID,
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Total:      s.Total,
		Status:     s.Status.String(),
	}
	if s.EndTime != nil {
		minutes := s.DurationMinutes()
		resp.DurationMinutes = &minutes
	}
	return resp
}

// FromSessions converts a slice of domain sessions
func FromSessions(sessions []*domain.ParkingSession) []*SessionResponse {
	out := make([]*SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, FromSession(s))
	}
	return out
}
