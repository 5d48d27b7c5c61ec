package latefee

import (
	"time"

	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

// Rule configures late fee accrual on overdue invoices
type Rule struct {
	ID                   string                      `json:"id"`
	Name                 string                      `json:"name"`
	Type                 types.LateFeeType           `json:"type"`
	Amount               decimal.Decimal             `json:"amount"`
	GracePeriodDays      int                         `json:"grace_period_days"`
	MaxAmount            *decimal.Decimal            `json:"max_amount,omitempty"`
	CompoundingFrequency *types.CompoundingFrequency `json:"compounding_frequency,omitempty"`
	Active               bool                        `json:"active"`

	types.BaseModel
}

// Validate validates the late fee rule
func (r *Rule) Validate() error {
	if r.Name == "" {
		return ierr.NewError("rule name is required").
			WithHint("Late fee rule name is required").
			Mark(ierr.ErrValidation)
	}
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("rule amount must be greater than zero").
			WithHint("Late fee amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.GracePeriodDays < 0 {
		return ierr.NewError("grace period cannot be negative").
			WithHint("Grace period days must be zero or more").
			Mark(ierr.ErrValidation)
	}
	if r.MaxAmount != nil && !r.MaxAmount.IsPositive() {
		return ierr.NewError("max amount must be greater than zero when set").
			Mark(ierr.ErrValidation)
	}
	if r.CompoundingFrequency != nil {
		if err := r.CompoundingFrequency.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Application records one late fee applied to one invoice. The scheduler uses
// the latest application to decide whether a compounding period has elapsed.
type Application struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id"`
	RuleID    string          `json:"rule_id"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"applied_at"`
}
