package reminder

import (
	"time"

	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
)

// Rule schedules one due-date reminder for one invoice. Idempotence is
// rule-level: once sent, a rule never refires, keyed by LastSentAt.
type Rule struct {
	ID             string               `json:"id"`
	InvoiceID      string               `json:"invoice_id"`
	Type           types.ReminderType   `json:"type"`
	DaysOffset     int                  `json:"days_offset"`
	Template       string               `json:"template"`
	DeliveryMethod types.DeliveryMethod `json:"delivery_method"`
	RuleStatus     types.ReminderStatus `json:"rule_status"`
	LastSentAt     *time.Time           `json:"last_sent_at,omitempty"`

	types.BaseModel
}

// Validate validates the reminder rule
func (r *Rule) Validate() error {
	if r.InvoiceID == "" {
		return ierr.NewError("invoice id is required").
			WithHint("Reminder rule must reference an invoice").
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
	if err := r.DeliveryMethod.Validate(); err != nil {
		return err
	}
	return nil
}

// ShouldFire applies the reminder window test. before_due fires while
// 0 < days-until-due <= offset, on_due fires on the due date itself, and
// after_due fires once days-overdue >= offset.
func (r *Rule) ShouldFire(now, dueDate time.Time) bool {
	if r.RuleStatus != types.ReminderStatusScheduled && r.RuleStatus != types.ReminderStatusFailed {
		return false
	}

	nowDay := now.UTC().Truncate(24 * time.Hour)
	dueDay := dueDate.UTC().Truncate(24 * time.Hour)
	daysUntilDue := int(dueDay.Sub(nowDay).Hours() / 24)

	switch r.Type {
	case types.ReminderTypeBeforeDue:
		return daysUntilDue > 0 && daysUntilDue <= r.DaysOffset
	case types.ReminderTypeOnDue:
		return daysUntilDue == 0
	case types.ReminderTypeAfterDue:
		return daysUntilDue < 0 && -daysUntilDue >= r.DaysOffset
	default:
		return false
	}
}
