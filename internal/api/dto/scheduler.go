package dto

import (
	"github.com/finvoice/finvoice/internal/domain/latefee"
	"github.com/finvoice/finvoice/internal/domain/reminder"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

// CreateReminderRuleRequest schedules a due-date reminder for an invoice
type CreateReminderRuleRequest struct {
	InvoiceID      string               `json:"invoice_id" binding:"required"`
	Type           types.ReminderType   `json:"type" binding:"required"`
	DaysOffset     int                  `json:"days_offset"`
	Template       string               `json:"template,omitempty"`
	DeliveryMethod types.DeliveryMethod `json:"delivery_method" binding:"required"`
}

// Validate validates the reminder rule request
func (r *CreateReminderRuleRequest) Validate() error {
	if r.InvoiceID == "" {
		return ierr.NewError("invoice id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if r.DaysOffset < 0 {
		return ierr.NewError("days offset cannot be negative").
			WithHint("Days offset must be zero or more").
			Mark(ierr.ErrValidation)
	}
	return r.DeliveryMethod.Validate()
}

// ToRule converts the request to a domain reminder rule
func (r *CreateReminderRuleRequest) ToRule() *reminder.Rule {
	return &reminder.Rule{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REMINDER_RULE),
		InvoiceID:      r.InvoiceID,
		Type:           r.Type,
		DaysOffset:     r.DaysOffset,
		Template:       r.Template,
		DeliveryMethod: r.DeliveryMethod,
		RuleStatus:     types.ReminderStatusScheduled,
		BaseModel:      types.GetDefaultBaseModel(),
	}
}

// ReminderRuleResponse wraps the reminder rule domain model
type ReminderRuleResponse struct {
	*reminder.Rule
}

// CreateLateFeeRuleRequest configures late fee accrual
type CreateLateFeeRuleRequest struct {
	Name                 string                      `json:"name" binding:"required"`
	Type                 types.LateFeeType           `json:"type" binding:"required"`
	Amount               decimal.Decimal             `json:"amount" binding:"required"`
	GracePeriodDays      int                         `json:"grace_period_days"`
	MaxAmount            *decimal.Decimal            `json:"max_amount,omitempty"`
	CompoundingFrequency *types.CompoundingFrequency `json:"compounding_frequency,omitempty"`
}

// Validate validates the late fee rule request
func (r *CreateLateFeeRuleRequest) Validate() error {
	if r.Name == "" {
		return ierr.NewError("rule name is required").
			WithHint("Name is required").
			Mark(ierr.ErrValidation)
	}
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("rule amount must be greater than zero").
			WithHint("Amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.GracePeriodDays < 0 {
		return ierr.NewError("grace period cannot be negative").
			WithHint("Grace period days must be zero or more").
			Mark(ierr.ErrValidation)
	}
	if r.CompoundingFrequency != nil {
		return r.CompoundingFrequency.Validate()
	}
	return nil
}

// ToRule converts the request to a domain late fee rule
func (r *CreateLateFeeRuleRequest) ToRule() *latefee.Rule {
	return &latefee.Rule{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LATE_FEE_RULE),
		Name:                 r.Name,
		Type:                 r.Type,
		Amount:               r.Amount,
		GracePeriodDays:      r.GracePeriodDays,
		MaxAmount:            r.MaxAmount,
		CompoundingFrequency: r.CompoundingFrequency,
		Active:               true,
		BaseModel:            types.GetDefaultBaseModel(),
	}
}

// LateFeeRuleResponse wraps the late fee rule domain model
type LateFeeRuleResponse struct {
	*latefee.Rule
}

// SchedulerRunResponse summarizes one sweep of the scheduler
type SchedulerRunResponse struct {
	InvoicesScanned   int `json:"invoices_scanned"`
	RemindersSent     int `json:"reminders_sent"`
	InvoicesOverdue   int `json:"invoices_overdue"`
	LateFeesApplied   int `json:"late_fees_applied"`
	FailuresTolerated int `json:"failures_tolerated"`
}
