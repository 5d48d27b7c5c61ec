package paymentlink

import (
	"time"

	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

// PaymentLink is one payment attempt against an invoice: a provider-hosted
// URL plus the reconciled state reported back by webhooks. A single invoice
// may accumulate several links over its life.
type PaymentLink struct {
	ID            string                   `json:"id"`
	GatewayLinkID string                   `json:"gateway_link_id"`
	Gateway       types.PaymentGatewayType `json:"gateway"`
	InvoiceID     string                   `json:"invoice_id"`
	URL           string                   `json:"url"`
	Amount        decimal.Decimal          `json:"amount"`
	PaidAmount    decimal.Decimal          `json:"paid_amount"`
	Currency      string                   `json:"currency"`
	LinkStatus    types.PaymentLinkStatus  `json:"link_status"`
	PayerEmail    string                   `json:"payer_email"`
	PayerName     string                   `json:"payer_name,omitempty"`
	AllowPartial  bool                     `json:"allow_partial"`
	ExpiresAt     *time.Time               `json:"expires_at,omitempty"`
	CompletedAt   *time.Time               `json:"completed_at,omitempty"`
	TransactionID *string                  `json:"transaction_id,omitempty"`
	PaymentMethod *types.PaymentMethodType `json:"payment_method,omitempty"`
	Metadata      types.Metadata           `json:"metadata,omitempty"`

	types.BaseModel
}

// Validate validates the payment link
func (pl *PaymentLink) Validate() error {
	if pl.GatewayLinkID == "" {
		return ierr.NewError("gateway link id is required").
			WithHint("Provider-assigned link id is required").
			Mark(ierr.ErrValidation)
	}
	if err := pl.Gateway.Validate(); err != nil {
		return err
	}
	if pl.InvoiceID == "" {
		return ierr.NewError("invoice id is required").
			WithHint("Payment link must reference an invoice").
			Mark(ierr.ErrValidation)
	}
	if !pl.Amount.IsPositive() {
		return ierr.NewError("amount must be greater than zero").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if pl.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsSettled reports whether the link has reached a settled provider state
func (pl *PaymentLink) IsSettled() bool {
	return pl.LinkStatus == types.PaymentLinkStatusCompleted ||
		pl.LinkStatus == types.PaymentLinkStatusRefunded ||
		pl.LinkStatus == types.PaymentLinkStatusPartiallyRefunded
}
