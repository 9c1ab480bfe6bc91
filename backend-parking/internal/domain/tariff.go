package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is the offset from local midnight, in [0, 24h)
type TimeOfDay time.Duration

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDayOf(t), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

// MustParseTimeOfDay is ParseTimeOfDay for literals; it panics on bad input
func MustParseTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

// TimeOfDayOf returns the wall-clock time of t in t's location
func TimeOfDayOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond()))
}

// Duration returns the offset from midnight
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t)
}

func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute), int(d%time.Minute/time.Second))
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimeOfDay, string(data))
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Tariff is an hourly price that applies to sessions entering inside its window
type Tariff struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	StartTime    TimeOfDay `json:"start_time"`
	EndTime      TimeOfDay `json:"end_time"`
	PricePerHour float64   `json:"price_per_hour"`
	Active       bool      `json:"active"`
}

// Covers reports whether tod falls inside the window, both bounds inclusive
func (t *Tariff) Covers(tod TimeOfDay) bool {
	return t.StartTime <= tod && tod <= t.EndTime
}

// Validate validates all tariff fields
func (t *Tariff) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return ErrInvalidTariffName
	}
	if t.StartTime < 0 || t.EndTime < 0 || t.StartTime.Duration() >= 24*time.Hour || t.EndTime.Duration() >= 24*time.Hour {
		return ErrInvalidTimeOfDay
	}
	if t.StartTime > t.EndTime {
		return ErrInvalidTariffWindow
	}
	if !isMoney(t.PricePerHour) {
		return ErrInvalidPrice
	}
	return nil
}
