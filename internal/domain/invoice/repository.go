package invoice

import (
	"context"

	"github.com/finvoice/finvoice/internal/types"
)

// Filter narrows invoice listings
type Filter struct {
	CustomerID    string
	InvoiceStatus types.InvoiceStatus
	PaymentStatus types.InvoicePaymentStatus
}

// Repository defines the interface for invoice persistence
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	List(ctx context.Context, filter *Filter) ([]*Invoice, error)
	// ListDue returns sent and overdue invoices that are not fully paid,
	// the scheduler's working set.
	ListDue(ctx context.Context) ([]*Invoice, error)
}
