package types

import (
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/samber/lo"
)

// ReminderType positions a reminder rule relative to the invoice due date
type ReminderType string

const (
	ReminderTypeBeforeDue ReminderType = "before_due"
	ReminderTypeOnDue     ReminderType = "on_due"
	ReminderTypeAfterDue  ReminderType = "after_due"
)

func (t ReminderType) String() string {
	return string(t)
}

func (t ReminderType) Validate() error {
	allowed := []ReminderType{
		ReminderTypeBeforeDue,
		ReminderTypeOnDue,
		ReminderTypeAfterDue,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid reminder type").
			WithHint("Please provide a valid reminder type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ReminderStatus tracks whether a rule has fired
type ReminderStatus string

const (
	ReminderStatusScheduled ReminderStatus = "scheduled"
	ReminderStatusSent      ReminderStatus = "sent"
	ReminderStatusFailed    ReminderStatus = "failed"
)

func (s ReminderStatus) String() string {
	return string(s)
}

// DeliveryMethod selects the notification transport for a reminder
type DeliveryMethod string

const (
	DeliveryMethodEmail DeliveryMethod = "email"
	DeliveryMethodSMS   DeliveryMethod = "sms"
	DeliveryMethodBoth  DeliveryMethod = "both"
)

func (m DeliveryMethod) String() string {
	return string(m)
}

func (m DeliveryMethod) Validate() error {
	allowed := []DeliveryMethod{
		DeliveryMethodEmail,
		DeliveryMethodSMS,
		DeliveryMethodBoth,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid delivery method").
			WithHint("Please provide a valid delivery method").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
