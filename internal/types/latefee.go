package types

import (
	"time"

	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/samber/lo"
)

// LateFeeType selects how a late fee is computed
type LateFeeType string

const (
	// LateFeeTypePercentage charges a percentage of the outstanding balance
	LateFeeTypePercentage LateFeeType = "percentage"
	// LateFeeTypeFixed charges a flat amount
	LateFeeTypeFixed LateFeeType = "fixed"
)

func (t LateFeeType) String() string {
	return string(t)
}

func (t LateFeeType) Validate() error {
	allowed := []LateFeeType{
		LateFeeTypePercentage,
		LateFeeTypeFixed,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid late fee type").
			WithHint("Please provide a valid late fee type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CompoundingFrequency is the cadence at which a late fee reaccrues
type CompoundingFrequency string

const (
	CompoundingFrequencyDaily   CompoundingFrequency = "daily"
	CompoundingFrequencyWeekly  CompoundingFrequency = "weekly"
	CompoundingFrequencyMonthly CompoundingFrequency = "monthly"
)

func (f CompoundingFrequency) String() string {
	return string(f)
}

func (f CompoundingFrequency) Validate() error {
	allowed := []CompoundingFrequency{
		CompoundingFrequencyDaily,
		CompoundingFrequencyWeekly,
		CompoundingFrequencyMonthly,
	}
	if !lo.Contains(allowed, f) {
		return ierr.NewError("invalid compounding frequency").
			WithHint("Please provide a valid compounding frequency").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Period returns the wall-clock duration of one compounding period
func (f CompoundingFrequency) Period() time.Duration {
	switch f {
	case CompoundingFrequencyDaily:
		return 24 * time.Hour
	case CompoundingFrequencyWeekly:
		return 7 * 24 * time.Hour
	case CompoundingFrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}
