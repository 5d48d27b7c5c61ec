package dto

import (
	"time"

	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

// CreatePaymentLinkRequest requests a hosted payment link for an invoice.
// Amount defaults to the invoice's remaining balance when omitted.
type CreatePaymentLinkRequest struct {
	InvoiceID    string                   `json:"invoice_id" binding:"required"`
	Gateway      types.PaymentGatewayType `json:"gateway" binding:"required"`
	Amount       *decimal.Decimal         `json:"amount,omitempty"`
	PayerEmail   string                   `json:"payer_email,omitempty"`
	AllowPartial bool                     `json:"allow_partial"`
	SuccessURL   string                   `json:"success_url,omitempty"`
	CancelURL    string                   `json:"cancel_url,omitempty"`
	ExpiresAt    *time.Time               `json:"expires_at,omitempty"`
	Metadata     types.Metadata           `json:"metadata,omitempty"`
}

// Validate validates the payment link request
func (r *CreatePaymentLinkRequest) Validate() error {
	if r.InvoiceID == "" {
		return ierr.NewError("invoice id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation)
	}
	if err := r.Gateway.Validate(); err != nil {
		return err
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		return ierr.NewError("amount must be greater than zero").
			WithHint("Amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.ExpiresAt != nil && r.ExpiresAt.Before(time.Now().UTC()) {
		return ierr.NewError("expiry must be in the future").
			WithHint("expires_at must be a future timestamp").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentLinkResponse wraps the stored payment link
type PaymentLinkResponse struct {
	*paymentlink.PaymentLink
	Fraud *FraudScreenResponse `json:"fraud,omitempty"`
}

// ListPaymentLinksResponse is the listing envelope
type ListPaymentLinksResponse struct {
	Items []*PaymentLinkResponse `json:"items"`
	Total int                    `json:"total"`
}

// FraudScreenResponse reports the outcome of the pre-creation fraud screen
type FraudScreenResponse struct {
	Score          int                       `json:"score"`
	RiskLevel      types.FraudRiskLevel      `json:"risk_level"`
	Recommendation types.FraudRecommendation `json:"recommendation"`
	Flags          []string                  `json:"flags,omitempty"`
}

// RefundPaymentRequest refunds a settled payment link, partially when an
// amount is given. PaymentID accepts the provider link id, the transaction
// id, or the internal link record id.
type RefundPaymentRequest struct {
	Gateway   types.PaymentGatewayType `json:"gateway" binding:"required"`
	PaymentID string                   `json:"payment_id" binding:"required"`
	Amount    *decimal.Decimal         `json:"amount,omitempty"`
}

// Validate validates the refund request
func (r *RefundPaymentRequest) Validate() error {
	if err := r.Gateway.Validate(); err != nil {
		return err
	}
	if r.PaymentID == "" {
		return ierr.NewError("payment_id is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		return ierr.NewError("refund amount must be greater than zero").
			WithHint("Amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RefundPaymentResponse reports the provider's refund outcome
type RefundPaymentResponse struct {
	RefundID  string          `json:"refund_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Partial   bool            `json:"partial"`
	Status    string          `json:"status"`
}

// WebhookResponse acknowledges a processed webhook
type WebhookResponse struct {
	PaymentLinkID string              `json:"payment_link_id"`
	InvoiceID     string              `json:"invoice_id"`
	Status        types.PaymentStatus `json:"status"`
}

// GatewayAnalytics aggregates settlement behavior for one provider
type GatewayAnalytics struct {
	Gateway           types.PaymentGatewayType `json:"gateway"`
	TotalLinks        int                      `json:"total_links"`
	CompletedLinks    int                      `json:"completed_links"`
	SuccessRate       decimal.Decimal          `json:"success_rate"`
	AvgSettlementDays decimal.Decimal          `json:"avg_settlement_days"`
	AvgAmount         decimal.Decimal          `json:"avg_amount"`
}

// PaymentAnalyticsResponse is the per-gateway analytics report
type PaymentAnalyticsResponse struct {
	From     *time.Time         `json:"from,omitempty"`
	To       *time.Time         `json:"to,omitempty"`
	Gateways []GatewayAnalytics `json:"gateways"`
}
