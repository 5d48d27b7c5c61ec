// Package events defines the domain events the service emits after state
// transitions. Delivery is best effort: consumers retry, but a failed
// notification never rolls back the transition that produced it.
package events

import (
	"encoding/json"
	"time"

	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

const (
	TopicPaymentCompleted = "payment.completed"
	TopicInvoiceOverdue   = "invoice.overdue"
	TopicReminderDue      = "reminder.due"
)

// Event is the envelope every domain event travels in
type Event struct {
	ID        string          `json:"id"`
	EventName string          `json:"event_name"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent wraps a payload in an envelope for the given topic
func NewEvent(topic string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to encode event payload").
			Mark(ierr.ErrInternal)
	}
	return &Event{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EVENT),
		EventName: topic,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// PaymentCompletedPayload is emitted when a webhook settles a payment link
type PaymentCompletedPayload struct {
	InvoiceID     string                   `json:"invoice_id"`
	InvoiceNumber string                   `json:"invoice_number"`
	PaymentLinkID string                   `json:"payment_link_id"`
	Gateway       types.PaymentGatewayType `json:"gateway"`
	Amount        decimal.Decimal          `json:"amount"`
	Currency      string                   `json:"currency"`
	PayerEmail    string                   `json:"payer_email,omitempty"`
	FullyPaid     bool                     `json:"fully_paid"`
}

// InvoiceOverduePayload is emitted when an invoice passes its due date unpaid
type InvoiceOverduePayload struct {
	InvoiceID     string          `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    string          `json:"customer_id"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Currency      string          `json:"currency"`
	DueDate       time.Time       `json:"due_date"`
}

// ReminderDuePayload is emitted when a reminder rule fires for an invoice
type ReminderDuePayload struct {
	InvoiceID      string               `json:"invoice_id"`
	InvoiceNumber  string               `json:"invoice_number"`
	ReminderRuleID string               `json:"reminder_rule_id"`
	ReminderType   types.ReminderType   `json:"reminder_type"`
	DeliveryMethod types.DeliveryMethod `json:"delivery_method"`
	Recipient      string               `json:"recipient"`
	Outstanding    decimal.Decimal      `json:"outstanding"`
	Currency       string               `json:"currency"`
	DueDate        time.Time            `json:"due_date"`
	// Message carries the rule's rendered template; empty when the rule
	// has no template and the consumer falls back to its stock wording.
	Message string `json:"message,omitempty"`
}
