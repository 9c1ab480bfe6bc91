package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxPlateLength is the longest accepted licence plate after normalization
const MaxPlateLength = 6

// SessionStatus represents the status of a parking session
type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
)

// IsValid checks if the status is a valid SessionStatus
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusOpen, SessionStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of SessionStatus
func (s SessionStatus) String() string {
	return string(s)
}

// ParseSessionStatus accepts any letter case
func ParseSessionStatus(s string) (SessionStatus, error) {
	status := SessionStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionStatus, s)
	}
	return status, nil
}

// NormalizePlate trims and upper-cases a plate and enforces its length
func NormalizePlate(plate string) (string, error) {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	if plate == "" {
		return "", ErrInvalidPlate
	}
	if utf8.RuneCountInString(plate) > MaxPlateLength {
		return "", ErrPlateTooLong
	}
	return plate, nil
}

// ParkingSession is one stay of a vehicle in a facility.
// TariffID, EndTime and Total stay nil while the session is open.
type ParkingSession struct {
	ID         int64         `json:"id"`
	Plate      string        `json:"plate"`
	FacilityID int64         `json:"facility_id"`
	TariffID   *int64        `json:"tariff_id"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    *time.Time    `json:"end_time"`
	Total      *float64      `json:"total"`
	Status     SessionStatus `json:"status"`
}

// NewParkingSession opens a session for plate at facilityID starting at now
func NewParkingSession(plate string, facilityID int64, now time.Time) (*ParkingSession, error) {
	normalized, err := NormalizePlate(plate)
	if err != nil {
		return nil, err
	}
	if facilityID <= 0 {
		return nil, ErrInvalidFacilityID
	}
	return &ParkingSession{
		Plate:      normalized,
		FacilityID: facilityID,
		StartTime:  now.Truncate(time.Microsecond),
		Status:     SessionStatusOpen,
	}, nil
}

// IsOpen reports whether the session is still open
func (s *ParkingSession) IsOpen() bool {
	return s.Status == SessionStatusOpen
}

// DurationMinutes returns the whole minutes between start and end.
// An open session has no duration.
func (s *ParkingSession) DurationMinutes() int64 {
	if s.EndTime == nil {
		return 0
	}
	return int64(s.EndTime.Sub(s.StartTime) / time.Minute)
}

// Close moves an open session to closed. It never reopens or re-bills a session.
func (s *ParkingSession) Close(end time.Time, tariffID int64, total float64) error {
	if !s.IsOpen() {
		return ErrNoOpenSession
	}
	if end.Before(s.StartTime) {
		return fmt.Errorf("%w: session %d would end before it started", ErrInvariantViolation, s.ID)
	}
	if total < 0 {
		return fmt.Errorf("%w: negative total %.2f", ErrInvariantViolation, total)
	}
	end = end.Truncate(time.Microsecond)
	s.EndTime = &end
	s.TariffID = &tariffID
	s.Total = &total
	s.Status = SessionStatusClosed
	return nil
}

// Validate checks the session invariants for the administrative path.
// The plate is normalized and timestamps are cut to microseconds in place.
func (s *ParkingSession) Validate() error {
	plate, err := NormalizePlate(s.Plate)
	if err != nil {
		return err
	}
	s.Plate = plate

	if s.FacilityID <= 0 {
		return ErrInvalidFacilityID
	}
	if s.StartTime.IsZero() {
		return ErrMissingStartTime
	}
	s.StartTime = s.StartTime.Truncate(time.Microsecond)
	if s.EndTime != nil {
		end := s.EndTime.Truncate(time.Microsecond)
		s.EndTime = &end
	}
	if !s.Status.IsValid() {
		return ErrInvalidSessionStatus
	}

	switch s.Status {
	case SessionStatusOpen:
		if s.EndTime != nil {
			return fmt.Errorf("%w: an open session cannot have an end time", ErrInvalidSessionStatus)
		}
		if s.Total != nil || s.TariffID != nil {
			return ErrOpenSessionBilled
		}
	case SessionStatusClosed:
		if s.EndTime == nil {
			return fmt.Errorf("%w: a closed session needs an end time", ErrInvalidSessionStatus)
		}
		if s.EndTime.Before(s.StartTime) {
			return ErrEndBeforeStart
		}
	}

	if s.Total != nil && !isMoney(*s.Total) {
		return ErrInvalidTotal
	}
	if s.TariffID != nil && *s.TariffID <= 0 {
		return ErrInvalidTariffID
	}
	return nil
}

// Clone returns a deep copy
func (s *ParkingSession) Clone() *ParkingSession {
	c := *s
	if s.TariffID != nil {
		v := *s.TariffID
		c.TariffID = &v
	}
	if s.EndTime != nil {
		v := *s.EndTime
		c.EndTime = &v
	}
	if s.Total != nil {
		v := *s.Total
		c.Total = &v
	}
	return &c
}

// SessionFilter narrows an administrative session listing. Zero fields match all.
type SessionFilter struct {
	FacilityID int64
	Status     SessionStatus
	Plate      string
}

// isMoney reports whether v is a non-negative amount with at most two decimals
func isMoney(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && decimal.NewFromFloat(v).Exponent() >= -2
}
