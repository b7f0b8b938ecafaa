package fees

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidFeeSchedule = errors.New("invalid fee schedule")

	maxPercentage = decimal.NewFromInt(100)
)

// Decimal places kept by the fee_schedules numeric columns.
const (
	percentageScale = 4
	fixedScale      = 8
)

// Schedule is one immutable version of the platform fee structure. Percentages
// are expressed on a 0-100 scale; fixed fees are absolute amounts.
type Schedule struct {
	ID                 uuid.UUID       `json:"id"`
	CardPercentage     decimal.Decimal `json:"cardPercentage"`
	CardFixed          decimal.Decimal `json:"cardFixed"`
	BoletoFixed        decimal.Decimal `json:"boletoFixed"`
	PixPercentage      decimal.Decimal `json:"pixPercentage"`
	PlatformPercentage decimal.Decimal `json:"platformPercentage"`
	PlatformFixed      decimal.Decimal `json:"platformFixed"`
	TaxPercentage      decimal.Decimal `json:"taxPercentage"`
	EffectiveAt        time.Time       `json:"effectiveAt"`
}

// Validate rejects percentages outside [0, 100], negative fixed fees, and
// values with more decimal places than storage keeps.
func (s Schedule) Validate() error {
	percentages := []struct {
		name  string
		value decimal.Decimal
	}{
		{"cardPercentage", s.CardPercentage},
		{"pixPercentage", s.PixPercentage},
		{"platformPercentage", s.PlatformPercentage},
		{"taxPercentage", s.TaxPercentage},
	}
	for _, p := range percentages {
		if p.value.IsNegative() || p.value.GreaterThan(maxPercentage) {
			return fmt.Errorf("%w: %s must be between 0 and 100, got %s", ErrInvalidFeeSchedule, p.name, p.value)
		}
		if !fitsScale(p.value, percentageScale) {
			return fmt.Errorf("%w: %s allows at most %d decimal places, got %s", ErrInvalidFeeSchedule, p.name, percentageScale, p.value)
		}
	}

	fixed := []struct {
		name  string
		value decimal.Decimal
	}{
		{"cardFixed", s.CardFixed},
		{"boletoFixed", s.BoletoFixed},
		{"platformFixed", s.PlatformFixed},
	}
	for _, f := range fixed {
		if f.value.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative, got %s", ErrInvalidFeeSchedule, f.name, f.value)
		}
		if !fitsScale(f.value, fixedScale) {
			return fmt.Errorf("%w: %s allows at most %d decimal places, got %s", ErrInvalidFeeSchedule, f.name, fixedScale, f.value)
		}
	}
	return nil
}

func fitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// Version identifies the schedule in logs and invoice snapshots.
func (s Schedule) Version() string {
	if s.ID == uuid.Nil {
		return "unsaved"
	}
	return s.ID.String()
}
