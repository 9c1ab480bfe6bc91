package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxFacilityNameLength    = 50
	MaxFacilityAddressLength = 150
)

var phonePattern = regexp.MustCompile(`^\d{8}$`)

// Facility is a parking lot. Spaces is a capacity count, not addressable slots.
type Facility struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Spaces  int    `json:"spaces"`
	Active  bool   `json:"active"`
}

// Validate trims and validates all facility fields
func (f *Facility) Validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Address = strings.TrimSpace(f.Address)
	f.Phone = strings.TrimSpace(f.Phone)

	if f.Name == "" || utf8.RuneCountInString(f.Name) > MaxFacilityNameLength {
		return ErrInvalidFacilityName
	}
	if f.Address == "" || utf8.RuneCountInString(f.Address) > MaxFacilityAddressLength {
		return ErrInvalidAddress
	}
	if !phonePattern.MatchString(f.Phone) {
		return ErrInvalidPhone
	}
	if f.Spaces < 1 {
		return ErrInvalidSpaces
	}
	return nil
}
