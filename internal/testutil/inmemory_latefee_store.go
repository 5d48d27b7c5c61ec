package testutil

import (
	"context"
	"sync"

	"github.com/finvoice/finvoice/internal/domain/latefee"
	"github.com/samber/lo"
)

// InMemoryLateFeeStore implements latefee.Repository
type InMemoryLateFeeStore struct {
	rules *InMemoryStore[*latefee.Rule]

	mu           sync.RWMutex
	applications []*latefee.Application
}

// NewInMemoryLateFeeStore creates a new in-memory late fee store
func NewInMemoryLateFeeStore() *InMemoryLateFeeStore {
	return &InMemoryLateFeeStore{
		rules:        NewInMemoryStore[*latefee.Rule](),
		applications: make([]*latefee.Application, 0),
	}
}

func copyLateFeeRule(r *latefee.Rule) *latefee.Rule {
	if r == nil {
		return nil
	}

	out := *r
	if r.MaxAmount != nil {
		out.MaxAmount = lo.ToPtr(*r.MaxAmount)
	}
	if r.CompoundingFrequency != nil {
		out.CompoundingFrequency = lo.ToPtr(*r.CompoundingFrequency)
	}
	return &out
}

func (s *InMemoryLateFeeStore) CreateRule(ctx context.Context, r *latefee.Rule) error {
	return s.rules.Create(ctx, r.ID, copyLateFeeRule(r))
}

func (s *InMemoryLateFeeStore) GetRule(ctx context.Context, id string) (*latefee.Rule, error) {
	r, err := s.rules.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyLateFeeRule(r), nil
}

func (s *InMemoryLateFeeStore) UpdateRule(ctx context.Context, r *latefee.Rule) error {
	return s.rules.Update(ctx, r.ID, copyLateFeeRule(r))
}

func (s *InMemoryLateFeeStore) ListActiveRules(ctx context.Context) ([]*latefee.Rule, error) {
	activeFn := func(ctx context.Context, r *latefee.Rule, _ interface{}) bool {
		return r.Active
	}

	items, err := s.rules.List(ctx, nil, activeFn, func(i, j *latefee.Rule) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(r *latefee.Rule, _ int) *latefee.Rule {
		return copyLateFeeRule(r)
	}), nil
}

func (s *InMemoryLateFeeStore) RecordApplication(ctx context.Context, a *latefee.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *a
	s.applications = append(s.applications, &stored)
	return nil
}

func (s *InMemoryLateFeeStore) LatestApplication(ctx context.Context, invoiceID, ruleID string) (*latefee.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *latefee.Application
	for _, a := range s.applications {
		if a.InvoiceID != invoiceID || a.RuleID != ruleID {
			continue
		}
		if latest == nil || a.AppliedAt.After(latest.AppliedAt) {
			latest = a
		}
	}

	if latest == nil {
		return nil, nil
	}
	out := *latest
	return &out, nil
}

func (s *InMemoryLateFeeStore) ListApplications(ctx context.Context, invoiceID string) ([]*latefee.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*latefee.Application, 0)
	for _, a := range s.applications {
		if a.InvoiceID == invoiceID {
			out := *a
			result = append(result, &out)
		}
	}
	return result, nil
}

// Clear removes all rules and applications
func (s *InMemoryLateFeeStore) Clear() {
	s.rules.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications = make([]*latefee.Application, 0)
}
