package service

import (
	"context"
	"strings"
	"time"

	"github.com/finvoice/finvoice/internal/api/dto"
	"github.com/finvoice/finvoice/internal/domain/customer"
	"github.com/finvoice/finvoice/internal/domain/invoice"
	"github.com/finvoice/finvoice/internal/domain/latefee"
	"github.com/finvoice/finvoice/internal/domain/reminder"
	"github.com/finvoice/finvoice/internal/events"
	"github.com/finvoice/finvoice/internal/tax"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/samber/lo"
)

// SchedulerService runs the periodic sweep over due and overdue invoices:
// it fires reminder rules, transitions sent invoices past their due date to
// overdue, and accrues late fees with compounding-period gating. Every sweep
// is idempotent; re-running within the same period changes nothing.
type SchedulerService interface {
	CreateReminderRule(ctx context.Context, req dto.CreateReminderRuleRequest) (*dto.ReminderRuleResponse, error)
	ListReminderRules(ctx context.Context, invoiceID string) ([]*dto.ReminderRuleResponse, error)
	CreateLateFeeRule(ctx context.Context, req dto.CreateLateFeeRuleRequest) (*dto.LateFeeRuleResponse, error)
	ListLateFeeRules(ctx context.Context) ([]*dto.LateFeeRuleResponse, error)

	ProcessReminders(ctx context.Context) (*dto.SchedulerRunResponse, error)
	ProcessLateFees(ctx context.Context) (*dto.SchedulerRunResponse, error)
	// Run executes one full sweep, reminders then late fees
	Run(ctx context.Context) (*dto.SchedulerRunResponse, error)
}

type schedulerService struct {
	ServiceParams
}

// NewSchedulerService creates a new instance of SchedulerService
func NewSchedulerService(params ServiceParams) SchedulerService {
	return &schedulerService{
		ServiceParams: params,
	}
}

func (s *schedulerService) CreateReminderRule(ctx context.Context, req dto.CreateReminderRuleRequest) (*dto.ReminderRuleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.InvoiceRepo.Get(ctx, req.InvoiceID); err != nil {
		return nil, err
	}

	rule := req.ToRule()
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.ReminderRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.Logger.Infow("created reminder rule",
		"rule_id", rule.ID,
		"invoice_id", rule.InvoiceID,
		"type", rule.Type,
		"days_offset", rule.DaysOffset)
	return &dto.ReminderRuleResponse{Rule: rule}, nil
}

func (s *schedulerService) ListReminderRules(ctx context.Context, invoiceID string) ([]*dto.ReminderRuleResponse, error) {
	rules, err := s.ReminderRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return lo.Map(rules, func(r *reminder.Rule, _ int) *dto.ReminderRuleResponse {
		return &dto.ReminderRuleResponse{Rule: r}
	}), nil
}

func (s *schedulerService) CreateLateFeeRule(ctx context.Context, req dto.CreateLateFeeRuleRequest) (*dto.LateFeeRuleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rule := req.ToRule()
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.LateFeeRepo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	s.Logger.Infow("created late fee rule",
		"rule_id", rule.ID,
		"type", rule.Type,
		"amount", rule.Amount.String())
	return &dto.LateFeeRuleResponse{Rule: rule}, nil
}

func (s *schedulerService) ListLateFeeRules(ctx context.Context) ([]*dto.LateFeeRuleResponse, error) {
	rules, err := s.LateFeeRepo.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(rules, func(r *latefee.Rule, _ int) *dto.LateFeeRuleResponse {
		return &dto.LateFeeRuleResponse{Rule: r}
	}), nil
}

// ProcessReminders fires every scheduled rule whose window covers today.
// Idempotence is rule-level: a fired rule moves to sent and never refires,
// so a second sweep the same day finds nothing to do.
func (s *schedulerService) ProcessReminders(ctx context.Context) (*dto.SchedulerRunResponse, error) {
	now := time.Now().UTC()
	result := &dto.SchedulerRunResponse{}

	rules, err := s.ReminderRepo.ListScheduled(ctx)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		inv, err := s.InvoiceRepo.Get(ctx, rule.InvoiceID)
		if err != nil {
			s.Logger.Errorw("reminder rule references missing invoice",
				"rule_id", rule.ID,
				"invoice_id", rule.InvoiceID,
				"error", err)
			result.FailuresTolerated++
			continue
		}
		result.InvoicesScanned++

		if inv.IsFullyPaid() || inv.InvoiceStatus.IsTerminal() {
			continue
		}
		if !rule.ShouldFire(now, inv.DueDate) {
			continue
		}

		if err := s.dispatchReminder(ctx, rule, inv); err != nil {
			s.Logger.Errorw("reminder dispatch failed",
				"rule_id", rule.ID,
				"invoice_id", inv.ID,
				"error", err)
			rule.RuleStatus = types.ReminderStatusFailed
			rule.UpdatedAt = now
			if updateErr := s.ReminderRepo.Update(ctx, rule); updateErr != nil {
				s.Logger.Errorw("failed to record reminder failure",
					"rule_id", rule.ID,
					"error", updateErr)
			}
			result.FailuresTolerated++
			continue
		}

		rule.RuleStatus = types.ReminderStatusSent
		rule.LastSentAt = lo.ToPtr(now)
		rule.UpdatedAt = now
		if err := s.ReminderRepo.Update(ctx, rule); err != nil {
			return nil, err
		}
		result.RemindersSent++
	}

	s.Logger.Infow("reminder sweep complete",
		"rules_considered", len(rules),
		"reminders_sent", result.RemindersSent,
		"failures", result.FailuresTolerated)
	return result, nil
}

func (s *schedulerService) dispatchReminder(ctx context.Context, rule *reminder.Rule, inv *invoice.Invoice) error {
	cust, err := s.CustomerRepo.Get(ctx, inv.CustomerID)
	if err != nil {
		return err
	}

	event, err := events.NewEvent(events.TopicReminderDue, events.ReminderDuePayload{
		InvoiceID:      inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		ReminderRuleID: rule.ID,
		ReminderType:   rule.Type,
		DeliveryMethod: rule.DeliveryMethod,
		Recipient:      cust.Email,
		Outstanding:    inv.RemainingBalance(),
		Currency:       inv.Currency,
		DueDate:        inv.DueDate,
		Message:        renderReminderTemplate(rule.Template, inv, cust),
	})
	if err != nil {
		return err
	}
	return s.EventPublisher.Publish(ctx, event)
}

// renderReminderTemplate substitutes the rule template's placeholders with
// invoice values. Supported placeholders: {{invoice_number}}, {{amount}},
// {{currency}}, {{due_date}}, {{customer_name}}.
func renderReminderTemplate(template string, inv *invoice.Invoice, cust *customer.Customer) string {
	if template == "" {
		return ""
	}
	return strings.NewReplacer(
		"{{invoice_number}}", inv.InvoiceNumber,
		"{{amount}}", inv.RemainingBalance().StringFixed(2),
		"{{currency}}", inv.Currency,
		"{{due_date}}", inv.DueDate.Format(time.DateOnly),
		"{{customer_name}}", cust.Name,
	).Replace(template)
}

// ProcessLateFees transitions sent invoices past their due date to overdue,
// then accrues late fees on overdue invoices. A rule applies once after its
// grace period, and again only after a full compounding period has elapsed
// since its last application on that invoice.
func (s *schedulerService) ProcessLateFees(ctx context.Context) (*dto.SchedulerRunResponse, error) {
	now := time.Now().UTC()
	result := &dto.SchedulerRunResponse{}

	invoices, err := s.InvoiceRepo.ListDue(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := s.LateFeeRepo.ListActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	for _, inv := range invoices {
		result.InvoicesScanned++

		if inv.InvoiceStatus == types.InvoiceStatusSent && now.After(inv.DueDate) && !inv.IsFullyPaid() {
			if err := inv.MarkAsOverdue(now); err != nil {
				result.FailuresTolerated++
				continue
			}
			if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
				return nil, err
			}
			result.InvoicesOverdue++
			s.publishInvoiceOverdue(ctx, inv)
		}

		if inv.InvoiceStatus != types.InvoiceStatusOverdue {
			continue
		}

		for _, rule := range rules {
			applied, err := s.applyRuleOnce(ctx, inv, rule, now)
			if err != nil {
				s.Logger.Errorw("late fee application failed",
					"invoice_id", inv.ID,
					"rule_id", rule.ID,
					"error", err)
				result.FailuresTolerated++
				continue
			}
			if applied {
				result.LateFeesApplied++
			}
		}
	}

	s.Logger.Infow("late fee sweep complete",
		"invoices_scanned", result.InvoicesScanned,
		"invoices_overdue", result.InvoicesOverdue,
		"late_fees_applied", result.LateFeesApplied,
		"failures", result.FailuresTolerated)
	return result, nil
}

// applyRuleOnce applies a rule to an overdue invoice when its grace period
// has elapsed and, for compounding rules, a full period has passed since the
// previous application. Non-compounding rules apply at most once.
func (s *schedulerService) applyRuleOnce(ctx context.Context, inv *invoice.Invoice, rule *latefee.Rule, now time.Time) (bool, error) {
	graceEnd := inv.DueDate.AddDate(0, 0, rule.GracePeriodDays)
	if !now.After(graceEnd) {
		return false, nil
	}

	last, err := s.LateFeeRepo.LatestApplication(ctx, inv.ID, rule.ID)
	if err != nil {
		return false, err
	}
	if last != nil {
		if rule.CompoundingFrequency == nil {
			return false, nil
		}
		if now.Sub(last.AppliedAt) < rule.CompoundingFrequency.Period() {
			return false, nil
		}
	}

	fee := tax.LateFeeAmount(inv.RemainingBalance(), tax.LateFeeRule{
		Type:      rule.Type,
		Amount:    rule.Amount,
		MaxAmount: rule.MaxAmount,
	})
	if err := inv.ApplyLateFee(fee); err != nil {
		return false, err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return false, err
	}

	application := &latefee.Application{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LATE_FEE_APPLIED),
		InvoiceID: inv.ID,
		RuleID:    rule.ID,
		Amount:    fee,
		AppliedAt: now,
	}
	if err := s.LateFeeRepo.RecordApplication(ctx, application); err != nil {
		return false, err
	}

	s.Logger.Infow("applied late fee",
		"invoice_id", inv.ID,
		"rule_id", rule.ID,
		"fee", fee.String(),
		"new_total", inv.TotalAmount.String())
	return true, nil
}

// publishInvoiceOverdue emits the overdue event, best effort
func (s *schedulerService) publishInvoiceOverdue(ctx context.Context, inv *invoice.Invoice) {
	event, err := events.NewEvent(events.TopicInvoiceOverdue, events.InvoiceOverduePayload{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		Outstanding:   inv.RemainingBalance(),
		Currency:      inv.Currency,
		DueDate:       inv.DueDate,
	})
	if err == nil {
		err = s.EventPublisher.Publish(ctx, event)
	}
	if err != nil {
		s.Logger.Errorw("failed to publish invoice overdue event",
			"error", err,
			"invoice_id", inv.ID)
	}
}

// Run executes one full sweep
func (s *schedulerService) Run(ctx context.Context) (*dto.SchedulerRunResponse, error) {
	reminders, err := s.ProcessReminders(ctx)
	if err != nil {
		return nil, err
	}
	fees, err := s.ProcessLateFees(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.SchedulerRunResponse{
		InvoicesScanned:   reminders.InvoicesScanned + fees.InvoicesScanned,
		RemindersSent:     reminders.RemindersSent,
		InvoicesOverdue:   fees.InvoicesOverdue,
		LateFeesApplied:   fees.LateFeesApplied,
		FailuresTolerated: reminders.FailuresTolerated + fees.FailuresTolerated,
	}, nil
}
