package reminder

import "context"

// Repository defines the interface for reminder rule persistence
type Repository interface {
	Create(ctx context.Context, r *Rule) error
	Get(ctx context.Context, id string) (*Rule, error)
	Update(ctx context.Context, r *Rule) error
	ListScheduled(ctx context.Context) ([]*Rule, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Rule, error)
}
