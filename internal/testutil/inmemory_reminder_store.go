package testutil

import (
	"context"

	"github.com/finvoice/finvoice/internal/domain/reminder"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/samber/lo"
)

// InMemoryReminderStore implements reminder.Repository
type InMemoryReminderStore struct {
	*InMemoryStore[*reminder.Rule]
}

// NewInMemoryReminderStore creates a new in-memory reminder rule store
func NewInMemoryReminderStore() *InMemoryReminderStore {
	return &InMemoryReminderStore{
		InMemoryStore: NewInMemoryStore[*reminder.Rule](),
	}
}

func copyReminderRule(r *reminder.Rule) *reminder.Rule {
	if r == nil {
		return nil
	}

	out := *r
	if r.LastSentAt != nil {
		out.LastSentAt = lo.ToPtr(*r.LastSentAt)
	}
	return &out
}

func (s *InMemoryReminderStore) Create(ctx context.Context, r *reminder.Rule) error {
	return s.InMemoryStore.Create(ctx, r.ID, copyReminderRule(r))
}

func (s *InMemoryReminderStore) Get(ctx context.Context, id string) (*reminder.Rule, error) {
	r, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyReminderRule(r), nil
}

func (s *InMemoryReminderStore) Update(ctx context.Context, r *reminder.Rule) error {
	return s.InMemoryStore.Update(ctx, r.ID, copyReminderRule(r))
}

func (s *InMemoryReminderStore) ListScheduled(ctx context.Context) ([]*reminder.Rule, error) {
	scheduledFn := func(ctx context.Context, r *reminder.Rule, _ interface{}) bool {
		switch r.RuleStatus {
		case types.ReminderStatusScheduled, types.ReminderStatusFailed:
			return true
		default:
			return false
		}
	}

	items, err := s.InMemoryStore.List(ctx, nil, scheduledFn, reminderSortFn)
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(r *reminder.Rule, _ int) *reminder.Rule {
		return copyReminderRule(r)
	}), nil
}

func (s *InMemoryReminderStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*reminder.Rule, error) {
	invoiceFn := func(ctx context.Context, r *reminder.Rule, _ interface{}) bool {
		return r.InvoiceID == invoiceID
	}

	items, err := s.InMemoryStore.List(ctx, nil, invoiceFn, reminderSortFn)
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(r *reminder.Rule, _ int) *reminder.Rule {
		return copyReminderRule(r)
	}), nil
}

func reminderSortFn(i, j *reminder.Rule) bool {
	return i.CreatedAt.Before(j.CreatedAt)
}
