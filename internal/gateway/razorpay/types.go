package razorpay

import (
	"encoding/json"
	"fmt"
)

// EventType represents the type of Razorpay webhook event
type EventType string

const (
	EventPaymentLinkPaid          EventType = "payment_link.paid"
	EventPaymentLinkPartiallyPaid EventType = "payment_link.partially_paid"
	EventPaymentLinkExpired       EventType = "payment_link.expired"
	EventPaymentFailed            EventType = "payment.failed"
	EventRefundProcessed          EventType = "refund.processed"
)

// WebhookEvent represents a Razorpay webhook envelope
type WebhookEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     EventType      `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

// WebhookPayload carries the entities attached to the event. Which ones are
// populated depends on the event type.
type WebhookPayload struct {
	PaymentLink *PayloadPaymentLink `json:"payment_link,omitempty"`
	Payment     *PayloadPayment     `json:"payment,omitempty"`
	Refund      *PayloadRefund      `json:"refund,omitempty"`
}

// PayloadPaymentLink wraps the payment link entity in the webhook payload
type PayloadPaymentLink struct {
	Entity PaymentLinkEntity `json:"entity"`
}

// PayloadPayment wraps the payment entity in the webhook payload
type PayloadPayment struct {
	Entity PaymentEntity `json:"entity"`
}

// PayloadRefund wraps the refund entity in the webhook payload
type PayloadRefund struct {
	Entity RefundEntity `json:"entity"`
}

// PaymentLinkEntity represents a Razorpay payment link
type PaymentLinkEntity struct {
	ID          string        `json:"id"`
	Amount      int64         `json:"amount"`      // amount in paise
	AmountPaid  int64         `json:"amount_paid"` // paid amount in paise
	Currency    string        `json:"currency"`
	Status      string        `json:"status"` // created, partially_paid, paid, expired, cancelled
	ShortURL    string        `json:"short_url"`
	Description string        `json:"description"`
	ExpireBy    int64         `json:"expire_by"`
	Notes       FlexibleNotes `json:"notes"`
	CreatedAt   int64         `json:"created_at"`
}

// PaymentEntity represents a Razorpay payment
type PaymentEntity struct {
	ID               string        `json:"id"`
	Amount           int64         `json:"amount"` // amount in paise
	Currency         string        `json:"currency"`
	Status           string        `json:"status"` // created, authorized, captured, refunded, failed
	OrderID          string        `json:"order_id"`
	Method           string        `json:"method"` // card, netbanking, wallet, upi
	Description      string        `json:"description"`
	Bank             string        `json:"bank"`
	Wallet           string        `json:"wallet"`
	VPA              string        `json:"vpa"`
	AmountRefunded   int64         `json:"amount_refunded"`
	Refunded         bool          `json:"refunded"`
	Captured         bool          `json:"captured"`
	Email            string        `json:"email"`
	Contact          string        `json:"contact"`
	ErrorCode        string        `json:"error_code"`
	ErrorDescription string        `json:"error_description"`
	Notes            FlexibleNotes `json:"notes"`
	CreatedAt        int64         `json:"created_at"`
}

// RefundEntity represents a Razorpay refund
type RefundEntity struct {
	ID        string        `json:"id"`
	Amount    int64         `json:"amount"` // refunded amount in paise
	Currency  string        `json:"currency"`
	PaymentID string        `json:"payment_id"`
	Status    string        `json:"status"` // pending, processed, failed
	Notes     FlexibleNotes `json:"notes"`
	CreatedAt int64         `json:"created_at"`
}

// FlexibleNotes handles both array and object formats from Razorpay.
// Razorpay sometimes sends empty array [] instead of empty object {}.
type FlexibleNotes map[string]interface{}

// UnmarshalJSON implements custom unmarshaling to handle both [] and {} formats
func (fn *FlexibleNotes) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err == nil {
		*fn = m
		return nil
	}

	var arr []interface{}
	if err := json.Unmarshal(data, &arr); err == nil {
		*fn = make(map[string]interface{})
		return nil
	}

	return fmt.Errorf("notes must be either object or array")
}

// String returns the note value as a string, or "" when absent
func (fn FlexibleNotes) String(key string) string {
	if fn == nil {
		return ""
	}
	if v, ok := fn[key].(string); ok {
		return v
	}
	return ""
}
