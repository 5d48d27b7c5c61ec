package paymentlink

import (
	"context"
	"time"

	"github.com/finvoice/finvoice/internal/types"
)

// Filter narrows payment link listings
type Filter struct {
	Gateway    types.PaymentGatewayType
	InvoiceID  string
	PayerEmail string
	From       *time.Time
	To         *time.Time
}

// Repository defines the interface for payment link persistence
type Repository interface {
	Create(ctx context.Context, pl *PaymentLink) error
	Get(ctx context.Context, id string) (*PaymentLink, error)
	// GetByGatewayLinkID resolves a provider-assigned id (payment-link id or
	// underlying transaction id) to the stored link.
	GetByGatewayLinkID(ctx context.Context, gateway types.PaymentGatewayType, gatewayLinkID string) (*PaymentLink, error)
	Update(ctx context.Context, pl *PaymentLink) error
	List(ctx context.Context, filter *Filter) ([]*PaymentLink, error)
	// CountByPayerEmailSince supports the fraud velocity check
	CountByPayerEmailSince(ctx context.Context, email string, since time.Time) (int, error)
}
