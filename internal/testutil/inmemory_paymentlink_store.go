package testutil

import (
	"context"
	"time"

	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/samber/lo"
)

// InMemoryPaymentLinkStore implements paymentlink.Repository
type InMemoryPaymentLinkStore struct {
	*InMemoryStore[*paymentlink.PaymentLink]
}

// NewInMemoryPaymentLinkStore creates a new in-memory payment link store
func NewInMemoryPaymentLinkStore() *InMemoryPaymentLinkStore {
	return &InMemoryPaymentLinkStore{
		InMemoryStore: NewInMemoryStore[*paymentlink.PaymentLink](),
	}
}

func copyPaymentLink(pl *paymentlink.PaymentLink) *paymentlink.PaymentLink {
	if pl == nil {
		return nil
	}

	out := *pl
	out.Metadata = lo.Assign(types.Metadata{}, pl.Metadata)
	return &out
}

func (s *InMemoryPaymentLinkStore) Create(ctx context.Context, pl *paymentlink.PaymentLink) error {
	return s.InMemoryStore.Create(ctx, pl.ID, copyPaymentLink(pl))
}

func (s *InMemoryPaymentLinkStore) Get(ctx context.Context, id string) (*paymentlink.PaymentLink, error) {
	pl, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyPaymentLink(pl), nil
}

func (s *InMemoryPaymentLinkStore) GetByGatewayLinkID(ctx context.Context, gateway types.PaymentGatewayType, gatewayLinkID string) (*paymentlink.PaymentLink, error) {
	matchFn := func(ctx context.Context, pl *paymentlink.PaymentLink, _ interface{}) bool {
		if pl.Gateway != gateway {
			return false
		}
		if pl.GatewayLinkID == gatewayLinkID {
			return true
		}
		return pl.TransactionID != nil && *pl.TransactionID == gatewayLinkID
	}

	links, err := s.InMemoryStore.List(ctx, nil, matchFn, nil)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, ierr.NewError("payment link not found").
			WithHint("No payment link matches this provider id").
			WithReportableDetails(map[string]any{
				"gateway":         gateway,
				"gateway_link_id": gatewayLinkID,
			}).
			Mark(ierr.ErrNotFound)
	}

	return copyPaymentLink(links[0]), nil
}

func (s *InMemoryPaymentLinkStore) Update(ctx context.Context, pl *paymentlink.PaymentLink) error {
	return s.InMemoryStore.Update(ctx, pl.ID, copyPaymentLink(pl))
}

func (s *InMemoryPaymentLinkStore) List(ctx context.Context, filter *paymentlink.Filter) ([]*paymentlink.PaymentLink, error) {
	items, err := s.InMemoryStore.List(ctx, filter, paymentLinkFilterFn, paymentLinkSortFn)
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(pl *paymentlink.PaymentLink, _ int) *paymentlink.PaymentLink {
		return copyPaymentLink(pl)
	}), nil
}

func (s *InMemoryPaymentLinkStore) CountByPayerEmailSince(ctx context.Context, email string, since time.Time) (int, error) {
	countFn := func(ctx context.Context, pl *paymentlink.PaymentLink, _ interface{}) bool {
		return pl.PayerEmail == email && !pl.CreatedAt.Before(since)
	}
	return s.InMemoryStore.Count(ctx, nil, countFn)
}

// paymentLinkFilterFn implements filtering logic for payment links
func paymentLinkFilterFn(ctx context.Context, pl *paymentlink.PaymentLink, filter interface{}) bool {
	f, ok := filter.(*paymentlink.Filter)
	if !ok || f == nil {
		return true
	}

	if f.Gateway != "" && pl.Gateway != f.Gateway {
		return false
	}
	if f.InvoiceID != "" && pl.InvoiceID != f.InvoiceID {
		return false
	}
	if f.PayerEmail != "" && pl.PayerEmail != f.PayerEmail {
		return false
	}
	if f.From != nil && pl.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && pl.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func paymentLinkSortFn(i, j *paymentlink.PaymentLink) bool {
	return i.CreatedAt.Before(j.CreatedAt)
}
