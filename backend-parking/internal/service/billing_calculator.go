package service

import (
	"fmt"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/shopspring/decimal"
)

// BillingCalculator turns a stay into the amount owed
type BillingCalculator interface {
	// ComputeTotal returns minutes/60 * hourlyPrice rounded half-up to cents
	ComputeTotal(durationMinutes int64, hourlyPrice float64) (float64, error)
}

type decimalBillingCalculator struct{}

// NewBillingCalculator creates a calculator that works in decimal arithmetic
func NewBillingCalculator() BillingCalculator {
	return decimalBillingCalculator{}
}

func (decimalBillingCalculator) ComputeTotal(durationMinutes int64, hourlyPrice float64) (float64, error) {
	if durationMinutes < 0 {
		return 0, fmt.Errorf("%w: negative duration of %d minutes", domain.ErrInvariantViolation, durationMinutes)
	}
	if hourlyPrice < 0 {
		return 0, fmt.Errorf("%w: negative hourly price %v", domain.ErrInvariantViolation, hourlyPrice)
	}

	total := decimal.NewFromInt(durationMinutes).
		Mul(decimal.NewFromFloat(hourlyPrice)).
		Div(decimal.NewFromInt(60)).
		Round(2)
	return total.InexactFloat64(), nil
}
