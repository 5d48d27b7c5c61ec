package latefee

import "context"

// Repository defines the interface for late fee rule persistence
type Repository interface {
	CreateRule(ctx context.Context, r *Rule) error
	GetRule(ctx context.Context, id string) (*Rule, error)
	UpdateRule(ctx context.Context, r *Rule) error
	ListActiveRules(ctx context.Context) ([]*Rule, error)

	RecordApplication(ctx context.Context, a *Application) error
	// LatestApplication returns the most recent application of a rule to an
	// invoice, or nil when the rule has never been applied to it.
	LatestApplication(ctx context.Context, invoiceID, ruleID string) (*Application, error)
	ListApplications(ctx context.Context, invoiceID string) ([]*Application, error)
}
