// Package gateway defines the capability contract every payment provider
// adapter implements, and the normalized types the orchestrator consumes.
// Adapters convert provider-native money units (cents, paise) to decimal
// currency at this boundary.
package gateway

import (
	"context"
	"time"

	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

// CreateLinkParams carries everything an adapter needs to create a hosted
// payment link for an invoice.
type CreateLinkParams struct {
	InvoiceID    string
	Amount       decimal.Decimal
	Currency     string
	Description  string
	PayerEmail   string
	PayerName    string
	SuccessURL   string
	CancelURL    string
	ExpiresAt    *time.Time
	AllowPartial bool
	Metadata     types.Metadata
}

// PaymentStatus is the provider-agnostic result of a webhook or status query.
// Every adapter maps its native event vocabulary onto Status; unknown events
// are rejected with ErrUnsupportedEvent, never silently accepted.
type PaymentStatus struct {
	PaymentID     string                   `json:"payment_id"`
	Status        types.PaymentStatus      `json:"status"`
	Amount        decimal.Decimal          `json:"amount"`
	PaidAmount    decimal.Decimal          `json:"paid_amount"`
	PaymentMethod *types.PaymentMethodType `json:"payment_method,omitempty"`
	TransactionID string                   `json:"transaction_id,omitempty"`
	// InvoiceID is set when the provider echoes back the invoice reference
	// attached at link creation. It is the resolution fallback for events
	// that carry no link id of their own.
	InvoiceID string         `json:"invoice_id,omitempty"`
	PaidAt    *time.Time     `json:"paid_at,omitempty"`
	Metadata  types.Metadata `json:"metadata,omitempty"`
}

// RefundResult is the outcome of a refund request
type RefundResult struct {
	RefundID  string          `json:"refund_id"`
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Partial   bool            `json:"partial"`
	Status    string          `json:"status"`
}

// Gateway is the capability contract over one remote payment provider. All
// calls honor the context deadline; an expired provider call surfaces as
// ErrGateway.
type Gateway interface {
	// Name returns the provider this adapter binds
	Name() types.PaymentGatewayType

	// CreatePaymentLink creates a hosted payment link. The provider's
	// rejection (bad currency, amount below minimum, auth failure) surfaces
	// as ErrGateway.
	CreatePaymentLink(ctx context.Context, params CreateLinkParams) (*paymentlink.PaymentLink, error)

	// ProcessWebhook verifies the provider signature over the raw payload,
	// then decodes and maps the event. Verification failure surfaces as
	// ErrSignatureInvalid, unmapped events as ErrUnsupportedEvent.
	ProcessWebhook(ctx context.Context, payload []byte, signature string) (*PaymentStatus, error)

	// GetPaymentStatus is an idempotent read. It tolerates being called with
	// either a payment-link id or an underlying transaction id.
	GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentStatus, error)

	// RefundPayment issues a partial refund when amount is set, a full
	// refund otherwise. ErrNotRefundable when no completed payment exists.
	RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal) (*RefundResult, error)
}

// Registry maps provider names to adapters. Providers without configured
// credentials are simply absent.
type Registry struct {
	gateways map[types.PaymentGatewayType]Gateway
}

// NewRegistry builds a registry from the given adapters
func NewRegistry(gateways ...Gateway) *Registry {
	m := make(map[types.PaymentGatewayType]Gateway, len(gateways))
	for _, g := range gateways {
		if g != nil {
			m[g.Name()] = g
		}
	}
	return &Registry{gateways: m}
}

// Get returns the adapter for a provider, or false when not configured
func (r *Registry) Get(name types.PaymentGatewayType) (Gateway, bool) {
	g, ok := r.gateways[name]
	return g, ok
}

// Names lists the configured providers
func (r *Registry) Names() []types.PaymentGatewayType {
	names := make([]types.PaymentGatewayType, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}
