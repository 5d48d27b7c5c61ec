package testutil

import (
	"context"

	"github.com/finvoice/finvoice/internal/domain/invoice"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

// Helper to copy invoice
func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}

	out := *inv
	out.LineItems = make([]invoice.LineItem, len(inv.LineItems))
	copy(out.LineItems, inv.LineItems)
	out.Metadata = lo.Assign(types.Metadata{}, inv.Metadata)
	return &out
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *invoice.Filter) ([]*invoice.Invoice, error) {
	items, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

func (s *InMemoryInvoiceStore) ListDue(ctx context.Context) ([]*invoice.Invoice, error) {
	dueFn := func(ctx context.Context, inv *invoice.Invoice, _ interface{}) bool {
		switch inv.InvoiceStatus {
		case types.InvoiceStatusSent, types.InvoiceStatusOverdue:
		default:
			return false
		}
		return !inv.IsFullyPaid()
	}

	items, err := s.InMemoryStore.List(ctx, nil, dueFn, invoiceSortFn)
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}

// invoiceFilterFn implements filtering logic for invoices
func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*invoice.Filter)
	if !ok || f == nil {
		return true
	}

	if f.CustomerID != "" && inv.CustomerID != f.CustomerID {
		return false
	}
	if f.InvoiceStatus != "" && inv.InvoiceStatus != f.InvoiceStatus {
		return false
	}
	if f.PaymentStatus != "" && inv.PaymentStatus != f.PaymentStatus {
		return false
	}
	return true
}

func invoiceSortFn(i, j *invoice.Invoice) bool {
	return i.CreatedAt.Before(j.CreatedAt)
}
