package service

import (
	"testing"
	"time"

	"github.com/finvoice/finvoice/internal/api/dto"
	"github.com/finvoice/finvoice/internal/domain/invoice"
	"github.com/finvoice/finvoice/internal/domain/latefee"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/testutil"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service   InvoiceService
	customers CustomerService
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := ServiceParams{
		Logger:       s.GetLogger(),
		Config:       s.GetConfig(),
		CustomerRepo: s.GetStores().CustomerRepo,
		InvoiceRepo:  s.GetStores().InvoiceRepo,
		LateFeeRepo:  s.GetStores().LateFeeRepo,
	}
	s.service = NewInvoiceService(params)
	s.customers = NewCustomerService(params)
}

func (s *InvoiceServiceSuite) createCustomer(stateCode string) string {
	resp, err := s.customers.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Name:      "Acme Traders",
		Email:     "billing@acmetraders.example",
		StateCode: stateCode,
	})
	s.Require().NoError(err)
	return resp.ID
}

func (s *InvoiceServiceSuite) createInvoiceRequest(customerID string) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		CustomerID: customerID,
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{
				Description: "Consulting services",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.NewFromInt(5000),
				TaxRate:     decimal.NewFromInt(18),
				HSNCode:     "998313",
			},
		},
		DueDate: time.Now().UTC().AddDate(0, 0, 30),
	}
}

func (s *InvoiceServiceSuite) TestCreateInvoiceIntraState() {
	customerID := s.createCustomer("29")

	resp, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(customerID))
	s.NoError(err)
	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.NotEmpty(resp.InvoiceNumber)

	s.True(resp.Subtotal.Equal(decimal.NewFromInt(10000)), "subtotal: %s", resp.Subtotal)
	s.Equal(types.TaxTypeIntraState, resp.TaxBreakdown.TaxType)
	s.True(resp.TaxBreakdown.CGSTAmount.Equal(decimal.NewFromInt(900)))
	s.True(resp.TaxBreakdown.SGSTAmount.Equal(decimal.NewFromInt(900)))
	s.True(resp.TaxBreakdown.IGSTAmount.IsZero())
	s.True(resp.TotalAmount.Equal(decimal.NewFromInt(11800)), "total: %s", resp.TotalAmount)
	s.Equal("INR", resp.Currency)
	s.Len(resp.LineItems, 1)
	s.True(resp.LineItems[0].TaxAmount.Equal(decimal.NewFromInt(1800)))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceInterState() {
	customerID := s.createCustomer("27")

	resp, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(customerID))
	s.NoError(err)

	s.Equal(types.TaxTypeInterState, resp.TaxBreakdown.TaxType)
	s.True(resp.TaxBreakdown.IGSTAmount.Equal(decimal.NewFromInt(1800)))
	s.True(resp.TaxBreakdown.CGSTAmount.IsZero())
	s.True(resp.TaxBreakdown.SGSTAmount.IsZero())
	s.True(resp.TotalAmount.Equal(decimal.NewFromInt(11800)))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceWithPercentageDiscount() {
	customerID := s.createCustomer("29")
	req := s.createInvoiceRequest(customerID)
	req.DiscountPercentage = decimal.NewFromInt(10)

	resp, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)

	// discount comes off the gross before tax
	s.True(resp.DiscountAmount.Equal(decimal.NewFromInt(1000)))
	s.True(resp.Subtotal.Equal(decimal.NewFromInt(9000)), "subtotal: %s", resp.Subtotal)
	s.True(resp.TaxBreakdown.TotalTaxAmount.Equal(decimal.NewFromInt(1620)), "tax: %s", resp.TaxBreakdown.TotalTaxAmount)
	s.True(resp.TotalAmount.Equal(decimal.NewFromInt(10620)), "total: %s", resp.TotalAmount)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceDiscountCappedAtGross() {
	customerID := s.createCustomer("29")
	req := s.createInvoiceRequest(customerID)
	req.DiscountAmount = decimal.NewFromInt(50000)

	resp, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)
	s.True(resp.DiscountAmount.Equal(decimal.NewFromInt(10000)))
	s.True(resp.Subtotal.IsZero())
	s.True(resp.TotalAmount.IsZero())
}

func (s *InvoiceServiceSuite) TestCreateInvoiceUnknownCustomer() {
	_, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest("cust_missing"))
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceValidation() {
	customerID := s.createCustomer("29")

	req := s.createInvoiceRequest(customerID)
	req.LineItems = nil
	_, err := s.service.CreateInvoice(s.GetContext(), req)
	s.True(ierr.IsValidation(err))

	req = s.createInvoiceRequest(customerID)
	req.DiscountPercentage = decimal.NewFromInt(10)
	req.DiscountAmount = decimal.NewFromInt(100)
	_, err = s.service.CreateInvoice(s.GetContext(), req)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceRecalculatesTotals() {
	customerID := s.createCustomer("29")
	created, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(customerID))
	s.NoError(err)

	updated, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		LineItems: []dto.CreateInvoiceLineItemRequest{
			{
				Description: "Consulting services",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.NewFromInt(5000),
				TaxRate:     decimal.NewFromInt(18),
			},
		},
	})
	s.NoError(err)
	s.True(updated.Subtotal.Equal(decimal.NewFromInt(5000)))
	s.True(updated.TotalAmount.Equal(decimal.NewFromInt(5900)))
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceTerminalRejected() {
	customerID := s.createCustomer("29")
	created, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(customerID))
	s.NoError(err)

	_, err = s.service.CancelInvoice(s.GetContext(), created.ID)
	s.NoError(err)

	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Notes: lo.ToPtr("too late"),
	})
	s.True(ierr.IsInvalidState(err))
}

func (s *InvoiceServiceSuite) TestSendAndRecordPayment() {
	customerID := s.createCustomer("29")
	created, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(customerID))
	s.NoError(err)

	sent, err := s.service.SendInvoice(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusSent, sent.InvoiceStatus)

	partial, err := s.service.RecordPayment(s.GetContext(), created.ID, dto.RecordPaymentRequest{
		Amount: decimal.NewFromInt(5000),
	})
	s.NoError(err)
	s.Equal(types.InvoicePaymentStatusPartial, partial.PaymentStatus)

	paid, err := s.service.RecordPayment(s.GetContext(), created.ID, dto.RecordPaymentRequest{
		Amount:        decimal.NewFromInt(6800),
		PaymentMethod: lo.ToPtr(types.PaymentMethodTypeUPI),
	})
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)
	s.Equal(types.InvoicePaymentStatusPaid, paid.PaymentStatus)

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.True(stored.IsFullyPaid())
}

func (s *InvoiceServiceSuite) TestRecordPaymentOverpaymentRejected() {
	customerID := s.createCustomer("29")
	created, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(customerID))
	s.NoError(err)
	_, err = s.service.SendInvoice(s.GetContext(), created.ID)
	s.NoError(err)

	_, err = s.service.RecordPayment(s.GetContext(), created.ID, dto.RecordPaymentRequest{
		Amount: decimal.NewFromInt(20000),
	})
	s.True(ierr.IsValidation(err))

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.True(stored.PaidAmount.IsZero())
}

func (s *InvoiceServiceSuite) TestListInvoicesFiltered() {
	first := s.createCustomer("29")
	second := s.createCustomer("27")

	_, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(first))
	s.NoError(err)
	_, err = s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(second))
	s.NoError(err)

	all, err := s.service.ListInvoices(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(2, all.Total)

	filtered, err := s.service.ListInvoices(s.GetContext(), &invoice.Filter{CustomerID: first})
	s.NoError(err)
	s.Equal(1, filtered.Total)
	s.Equal(first, filtered.Items[0].CustomerID)
}

func (s *InvoiceServiceSuite) TestApplyLateFee() {
	customerID := s.createCustomer("29")
	created, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(customerID))
	s.NoError(err)
	_, err = s.service.SendInvoice(s.GetContext(), created.ID)
	s.NoError(err)

	rule := &latefee.Rule{
		ID:        "rule_pct",
		Name:      "2 percent monthly",
		Type:      types.LateFeeTypePercentage,
		Amount:    decimal.NewFromInt(2),
		Active:    true,
		BaseModel: types.GetDefaultBaseModel(),
	}
	s.Require().NoError(s.GetStores().LateFeeRepo.CreateRule(s.GetContext(), rule))

	// only overdue invoices accept late fees
	_, err = s.service.ApplyLateFee(s.GetContext(), created.ID, dto.ApplyLateFeeRequest{RuleID: rule.ID})
	s.True(ierr.IsInvalidState(err))

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Require().NoError(stored.MarkAsOverdue(stored.DueDate.AddDate(0, 0, 1)))
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), stored))

	resp, err := s.service.ApplyLateFee(s.GetContext(), created.ID, dto.ApplyLateFeeRequest{RuleID: rule.ID})
	s.NoError(err)
	// 2% of the 11800 outstanding balance
	s.True(resp.LateFeeTotal.Equal(decimal.NewFromInt(236)), "late fee: %s", resp.LateFeeTotal)
	s.True(resp.TotalAmount.Equal(decimal.NewFromInt(12036)))
	s.True(resp.LateFeeApplied)
}

func (s *InvoiceServiceSuite) TestApplyLateFeeWithOverrides() {
	customerID := s.createCustomer("29")
	created, err := s.service.CreateInvoice(s.GetContext(), s.createInvoiceRequest(customerID))
	s.NoError(err)
	_, err = s.service.SendInvoice(s.GetContext(), created.ID)
	s.NoError(err)

	rule := &latefee.Rule{
		ID:        "rule_pct",
		Name:      "2 percent monthly",
		Type:      types.LateFeeTypePercentage,
		Amount:    decimal.NewFromInt(2),
		Active:    true,
		BaseModel: types.GetDefaultBaseModel(),
	}
	s.Require().NoError(s.GetStores().LateFeeRepo.CreateRule(s.GetContext(), rule))

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), created.ID)
	s.Require().NoError(err)
	s.Require().NoError(stored.MarkAsOverdue(stored.DueDate.AddDate(0, 0, 1)))
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), stored))

	// a rate override of 5% on 11800 would be 590, but the cap wins
	resp, err := s.service.ApplyLateFee(s.GetContext(), created.ID, dto.ApplyLateFeeRequest{
		RuleID:    rule.ID,
		Amount:    lo.ToPtr(decimal.NewFromInt(5)),
		MaxAmount: lo.ToPtr(decimal.NewFromInt(300)),
	})
	s.NoError(err)
	s.True(resp.LateFeeTotal.Equal(decimal.NewFromInt(300)), "late fee: %s", resp.LateFeeTotal)
	s.True(resp.TotalAmount.Equal(decimal.NewFromInt(12100)))

	// a non-positive override never reaches the invoice
	_, err = s.service.ApplyLateFee(s.GetContext(), created.ID, dto.ApplyLateFeeRequest{
		RuleID: rule.ID,
		Amount: lo.ToPtr(decimal.Zero),
	})
	s.True(ierr.IsValidation(err))
}
