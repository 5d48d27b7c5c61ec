package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/finvoice/finvoice/internal/api/dto"
	"github.com/finvoice/finvoice/internal/domain/customer"
	"github.com/finvoice/finvoice/internal/domain/invoice"
	"github.com/finvoice/finvoice/internal/domain/latefee"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/events"
	"github.com/finvoice/finvoice/internal/tax"
	"github.com/finvoice/finvoice/internal/testutil"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SchedulerServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SchedulerService
}

func TestSchedulerService(t *testing.T) {
	suite.Run(t, new(SchedulerServiceSuite))
}

func (s *SchedulerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSchedulerService(ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		CustomerRepo:   s.GetStores().CustomerRepo,
		InvoiceRepo:    s.GetStores().InvoiceRepo,
		LateFeeRepo:    s.GetStores().LateFeeRepo,
		ReminderRepo:   s.GetStores().ReminderRepo,
		EventPublisher: s.GetPublisher(),
	})
}

// seedInvoice stores a sent invoice due at the given date, bypassing the
// lifecycle so tests can position invoices anywhere on the timeline
func (s *SchedulerServiceSuite) seedInvoice(dueDate time.Time, status types.InvoiceStatus) *invoice.Invoice {
	cust := &customer.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		Name:      "Acme Traders",
		Email:     "billing@acmetraders.example",
		StateCode: "29",
		BaseModel: types.GetDefaultBaseModel(),
	}
	s.Require().NoError(s.GetStores().CustomerRepo.Create(s.GetContext(), cust))

	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber: types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE),
		CustomerID:    cust.ID,
		LineItems: []invoice.LineItem{
			{
				ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
				Description: "Consulting services",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.NewFromInt(5000),
				TaxRate:     decimal.NewFromInt(18),
				TotalPrice:  decimal.NewFromInt(10000),
				TaxAmount:   decimal.NewFromInt(1800),
			},
		},
		Subtotal: decimal.NewFromInt(10000),
		TaxBreakdown: tax.Breakdown{
			TaxType:        types.TaxTypeIntraState,
			CGSTRate:       decimal.NewFromInt(9),
			CGSTAmount:     decimal.NewFromInt(900),
			SGSTRate:       decimal.NewFromInt(9),
			SGSTAmount:     decimal.NewFromInt(900),
			TotalTaxAmount: decimal.NewFromInt(1800),
		},
		TotalAmount:   decimal.NewFromInt(11800),
		Currency:      "INR",
		InvoiceStatus: status,
		PaymentStatus: types.InvoicePaymentStatusPending,
		IssueDate:     dueDate.AddDate(0, 0, -30),
		DueDate:       dueDate,
		BaseModel:     types.GetDefaultBaseModel(),
	}
	s.Require().NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))
	return inv
}

func (s *SchedulerServiceSuite) createReminderRule(invoiceID string, kind types.ReminderType, offset int) *dto.ReminderRuleResponse {
	resp, err := s.service.CreateReminderRule(s.GetContext(), dto.CreateReminderRuleRequest{
		InvoiceID:      invoiceID,
		Type:           kind,
		DaysOffset:     offset,
		DeliveryMethod: types.DeliveryMethodEmail,
	})
	s.Require().NoError(err)
	return resp
}

func (s *SchedulerServiceSuite) TestCreateReminderRuleUnknownInvoice() {
	_, err := s.service.CreateReminderRule(s.GetContext(), dto.CreateReminderRuleRequest{
		InvoiceID:      "inv_missing",
		Type:           types.ReminderTypeOnDue,
		DeliveryMethod: types.DeliveryMethodEmail,
	})
	s.True(ierr.IsNotFound(err))
}

func (s *SchedulerServiceSuite) TestProcessRemindersOnDue() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now, types.InvoiceStatusSent)
	rule := s.createReminderRule(inv.ID, types.ReminderTypeOnDue, 0)

	result, err := s.service.ProcessReminders(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.RemindersSent)

	published := s.GetPublisher().EventsByTopic(events.TopicReminderDue)
	s.Require().Len(published, 1)

	stored, err := s.GetStores().ReminderRepo.Get(s.GetContext(), rule.ID)
	s.NoError(err)
	s.Equal(types.ReminderStatusSent, stored.RuleStatus)
	s.NotNil(stored.LastSentAt)

	// a second sweep the same day finds nothing to fire
	result, err = s.service.ProcessReminders(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.RemindersSent)
	s.Len(s.GetPublisher().EventsByTopic(events.TopicReminderDue), 1)
}

func (s *SchedulerServiceSuite) TestProcessRemindersRendersTemplate() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now, types.InvoiceStatusSent)

	_, err := s.service.CreateReminderRule(s.GetContext(), dto.CreateReminderRuleRequest{
		InvoiceID:      inv.ID,
		Type:           types.ReminderTypeOnDue,
		DeliveryMethod: types.DeliveryMethodEmail,
		Template:       "Dear {{customer_name}}, invoice {{invoice_number}} for {{currency}} {{amount}} is due on {{due_date}}.",
	})
	s.Require().NoError(err)

	result, err := s.service.ProcessReminders(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.RemindersSent)

	published := s.GetPublisher().EventsByTopic(events.TopicReminderDue)
	s.Require().Len(published, 1)

	var payload events.ReminderDuePayload
	s.Require().NoError(json.Unmarshal(published[0].Payload, &payload))
	s.Equal("Dear Acme Traders, invoice "+inv.InvoiceNumber+" for INR 11800.00 is due on "+
		now.Format(time.DateOnly)+".", payload.Message)
}

func (s *SchedulerServiceSuite) TestProcessRemindersBeforeDueWindow() {
	now := time.Now().UTC()

	inside := s.seedInvoice(now.AddDate(0, 0, 2), types.InvoiceStatusSent)
	s.createReminderRule(inside.ID, types.ReminderTypeBeforeDue, 3)

	outside := s.seedInvoice(now.AddDate(0, 0, 10), types.InvoiceStatusSent)
	s.createReminderRule(outside.ID, types.ReminderTypeBeforeDue, 3)

	result, err := s.service.ProcessReminders(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.RemindersSent)

	published := s.GetPublisher().EventsByTopic(events.TopicReminderDue)
	s.Require().Len(published, 1)
}

func (s *SchedulerServiceSuite) TestProcessRemindersAfterDue() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now.AddDate(0, 0, -5), types.InvoiceStatusOverdue)
	s.createReminderRule(inv.ID, types.ReminderTypeAfterDue, 3)

	result, err := s.service.ProcessReminders(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.RemindersSent)
}

func (s *SchedulerServiceSuite) TestProcessRemindersSkipsPaidInvoice() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now, types.InvoiceStatusSent)
	s.createReminderRule(inv.ID, types.ReminderTypeOnDue, 0)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	stored.PaidAmount = stored.TotalAmount
	stored.PaymentStatus = types.InvoicePaymentStatusPaid
	stored.InvoiceStatus = types.InvoiceStatusPaid
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), stored))

	result, err := s.service.ProcessReminders(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.RemindersSent)
	s.Empty(s.GetPublisher().EventsByTopic(events.TopicReminderDue))
}

func (s *SchedulerServiceSuite) TestProcessRemindersRetriesAfterPublishFailure() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now, types.InvoiceStatusSent)
	rule := s.createReminderRule(inv.ID, types.ReminderTypeOnDue, 0)

	s.GetPublisher().FailNext = ierr.NewError("broker unavailable").Mark(ierr.ErrInternal)

	result, err := s.service.ProcessReminders(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.RemindersSent)
	s.Equal(1, result.FailuresTolerated)

	stored, err := s.GetStores().ReminderRepo.Get(s.GetContext(), rule.ID)
	s.NoError(err)
	s.Equal(types.ReminderStatusFailed, stored.RuleStatus)

	// the failed rule is retried on the next sweep
	result, err = s.service.ProcessReminders(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.RemindersSent)

	stored, err = s.GetStores().ReminderRepo.Get(s.GetContext(), rule.ID)
	s.NoError(err)
	s.Equal(types.ReminderStatusSent, stored.RuleStatus)
}

func (s *SchedulerServiceSuite) createLateFeeRule(req dto.CreateLateFeeRuleRequest) *dto.LateFeeRuleResponse {
	resp, err := s.service.CreateLateFeeRule(s.GetContext(), req)
	s.Require().NoError(err)
	return resp
}

func (s *SchedulerServiceSuite) TestProcessLateFeesMarksOverdueAndApplies() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now.AddDate(0, 0, -2), types.InvoiceStatusSent)
	s.createLateFeeRule(dto.CreateLateFeeRuleRequest{
		Name:   "2 percent",
		Type:   types.LateFeeTypePercentage,
		Amount: decimal.NewFromInt(2),
	})

	result, err := s.service.ProcessLateFees(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.InvoicesOverdue)
	s.Equal(1, result.LateFeesApplied)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusOverdue, stored.InvoiceStatus)
	// 2% of the 11800 outstanding
	s.True(stored.LateFeeTotal.Equal(decimal.NewFromInt(236)), "late fee: %s", stored.LateFeeTotal)
	s.True(stored.TotalAmount.Equal(decimal.NewFromInt(12036)))

	s.Len(s.GetPublisher().EventsByTopic(events.TopicInvoiceOverdue), 1)
}

func (s *SchedulerServiceSuite) TestProcessLateFeesHonorsGracePeriod() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now.AddDate(0, 0, -3), types.InvoiceStatusSent)
	s.createLateFeeRule(dto.CreateLateFeeRuleRequest{
		Name:            "2 percent after a week",
		Type:            types.LateFeeTypePercentage,
		Amount:          decimal.NewFromInt(2),
		GracePeriodDays: 7,
	})

	result, err := s.service.ProcessLateFees(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.InvoicesOverdue)
	s.Equal(0, result.LateFeesApplied)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusOverdue, stored.InvoiceStatus)
	s.True(stored.LateFeeTotal.IsZero())
}

func (s *SchedulerServiceSuite) TestProcessLateFeesNonCompoundingAppliesOnce() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now.AddDate(0, 0, -2), types.InvoiceStatusSent)
	s.createLateFeeRule(dto.CreateLateFeeRuleRequest{
		Name:   "flat 500",
		Type:   types.LateFeeTypeFixed,
		Amount: decimal.NewFromInt(500),
	})

	result, err := s.service.ProcessLateFees(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.LateFeesApplied)

	result, err = s.service.ProcessLateFees(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.LateFeesApplied)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(stored.LateFeeTotal.Equal(decimal.NewFromInt(500)))
}

func (s *SchedulerServiceSuite) TestProcessLateFeesCompoundsAfterPeriod() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now.AddDate(0, 0, -10), types.InvoiceStatusOverdue)
	rule := s.createLateFeeRule(dto.CreateLateFeeRuleRequest{
		Name:                 "daily 1 percent",
		Type:                 types.LateFeeTypePercentage,
		Amount:               decimal.NewFromInt(1),
		CompoundingFrequency: lo.ToPtr(types.CompoundingFrequencyDaily),
	})

	// a previous application two days ago has aged past the daily period
	s.Require().NoError(s.GetStores().LateFeeRepo.RecordApplication(s.GetContext(), &latefee.Application{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LATE_FEE_APPLIED),
		InvoiceID: inv.ID,
		RuleID:    rule.ID,
		Amount:    decimal.NewFromInt(118),
		AppliedAt: now.Add(-48 * time.Hour),
	}))

	result, err := s.service.ProcessLateFees(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.LateFeesApplied)

	// and within the same period it does not reapply
	result, err = s.service.ProcessLateFees(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.LateFeesApplied)
}

func (s *SchedulerServiceSuite) TestRunSweepsBoth() {
	now := time.Now().UTC()
	inv := s.seedInvoice(now.AddDate(0, 0, -1), types.InvoiceStatusSent)
	s.createReminderRule(inv.ID, types.ReminderTypeAfterDue, 1)
	s.createLateFeeRule(dto.CreateLateFeeRuleRequest{
		Name:   "flat 100",
		Type:   types.LateFeeTypeFixed,
		Amount: decimal.NewFromInt(100),
	})

	result, err := s.service.Run(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.RemindersSent)
	s.Equal(1, result.InvoicesOverdue)
	s.Equal(1, result.LateFeesApplied)
}
