package service

import (
	"context"
	"time"

	"github.com/finvoice/finvoice/internal/api/dto"
	"github.com/finvoice/finvoice/internal/domain/invoice"
	"github.com/finvoice/finvoice/internal/domain/latefee"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/tax"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InvoiceService owns the invoice lifecycle: creation with derived GST
// totals, the draft/sent/paid/overdue/cancelled state machine, and manual
// payment recording.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *invoice.Filter) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	SendInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	RecordPayment(ctx context.Context, id string, req dto.RecordPaymentRequest) (*dto.InvoiceResponse, error)
	CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	// ApplyLateFee prices the rule against the outstanding balance and adds
	// it to the invoice total. Only overdue invoices accept late fees.
	ApplyLateFee(ctx context.Context, invoiceID string, req dto.ApplyLateFeeRequest) (*dto.InvoiceResponse, error)
}

type invoiceService struct {
	ServiceParams
}

// NewInvoiceService creates a new instance of InvoiceService
func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
	}
}

// CreateInvoice creates a draft invoice with server-derived totals
func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		s.Logger.Warnw("invoice creation validation failed",
			"error", err,
			"customer_id", req.CustomerID)
		return nil, err
	}

	cust, err := s.CustomerRepo.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = s.Config.Seller.Currency
	}

	issueDate := time.Now().UTC()
	if req.IssueDate != nil {
		issueDate = req.IssueDate.UTC()
	}

	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber: types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE),
		CustomerID:    cust.ID,
		ProjectID:     req.ProjectID,
		LineItems: lo.Map(req.LineItems, func(li dto.CreateInvoiceLineItemRequest, _ int) invoice.LineItem {
			return invoice.LineItem{
				ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
				Description: li.Description,
				Quantity:    li.Quantity,
				UnitPrice:   li.UnitPrice,
				TaxRate:     li.TaxRate,
				HSNCode:     li.HSNCode,
			}
		}),
		Currency:           currency,
		InvoiceStatus:      types.InvoiceStatusDraft,
		PaymentStatus:      types.InvoicePaymentStatusPending,
		PaidAmount:         decimal.Zero,
		DiscountPercentage: req.DiscountPercentage,
		DiscountAmount:     req.DiscountAmount,
		IssueDate:          issueDate,
		DueDate:            req.DueDate.UTC(),
		Notes:              req.Notes,
		Metadata:           req.Metadata,
		BaseModel:          types.GetDefaultBaseModel(),
	}

	s.recalculateAmounts(inv, cust.StateCode)

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		s.Logger.Errorw("failed to create invoice",
			"error", err,
			"invoice_id", inv.ID,
			"customer_id", cust.ID)
		return nil, err
	}

	s.Logger.Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"customer_id", cust.ID,
		"total_amount", inv.TotalAmount.String())

	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// recalculateAmounts derives line totals, discount, GST split, and the
// invoice total. Subtotal is the post-discount taxable base; the discount is
// taken before tax. Late fees already accrued survive recalculation.
func (s *invoiceService) recalculateAmounts(inv *invoice.Invoice, buyerStateCode string) {
	gross := decimal.Zero
	lineTax := decimal.Zero
	for idx := range inv.LineItems {
		li := &inv.LineItems[idx]
		totals := tax.ComputeLineTotals(li.Quantity, li.UnitPrice, li.TaxRate)
		li.TotalPrice = totals.TotalPrice
		li.TaxAmount = totals.TaxAmount
		gross = gross.Add(totals.TotalPrice)
		lineTax = lineTax.Add(totals.TaxAmount)
	}

	discount := decimal.Zero
	switch {
	case !inv.DiscountPercentage.IsZero():
		discount = tax.Round2(gross.Mul(inv.DiscountPercentage).Div(decimal.NewFromInt(100)))
	case !inv.DiscountAmount.IsZero():
		discount = inv.DiscountAmount
	}
	if discount.GreaterThan(gross) {
		discount = gross
	}
	inv.DiscountAmount = discount
	inv.Subtotal = gross.Sub(discount)

	// weighted effective rate keeps mixed-rate invoices correct after the
	// discount shrinks the taxable base
	effectiveRate := decimal.Zero
	if gross.IsPositive() {
		effectiveRate = lineTax.Mul(decimal.NewFromInt(100)).Div(gross)
	}
	inv.TaxBreakdown = tax.ComputeBreakdown(
		inv.Subtotal, effectiveRate, s.Config.Seller.StateCode, buyerStateCode)

	inv.TotalAmount = inv.Subtotal.
		Add(inv.TaxBreakdown.TotalTaxAmount).
		Add(inv.LateFeeTotal)
}

// GetInvoice retrieves an invoice by ID
func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// ListInvoices lists invoices matching the filter
func (s *invoiceService) ListInvoices(ctx context.Context, filter *invoice.Filter) (*dto.ListInvoicesResponse, error) {
	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.ListInvoicesResponse{
		Items: lo.Map(invoices, func(inv *invoice.Invoice, _ int) *dto.InvoiceResponse {
			return &dto.InvoiceResponse{Invoice: inv}
		}),
		Total: len(invoices),
	}, nil
}

// UpdateInvoice updates a draft or sent invoice and recalculates its totals.
// Paid and cancelled invoices are rejected before any mutation.
func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if inv.InvoiceStatus.IsTerminal() {
		return nil, ierr.NewError("invoice is in a terminal state").
			WithHint("Paid or cancelled invoices cannot be updated").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"status":     inv.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidState)
	}

	if req.LineItems != nil {
		inv.LineItems = lo.Map(req.LineItems, func(li dto.CreateInvoiceLineItemRequest, _ int) invoice.LineItem {
			return invoice.LineItem{
				ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
				Description: li.Description,
				Quantity:    li.Quantity,
				UnitPrice:   li.UnitPrice,
				TaxRate:     li.TaxRate,
				HSNCode:     li.HSNCode,
			}
		})
	}
	if req.DiscountPercentage != nil {
		inv.DiscountPercentage = *req.DiscountPercentage
		inv.DiscountAmount = decimal.Zero
	}
	if req.DiscountAmount != nil {
		inv.DiscountAmount = *req.DiscountAmount
		inv.DiscountPercentage = decimal.Zero
	}
	if req.DueDate != nil {
		inv.DueDate = req.DueDate.UTC()
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}
	if req.Metadata != nil {
		inv.Metadata = inv.Metadata.Merge(req.Metadata)
	}

	cust, err := s.CustomerRepo.Get(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	s.recalculateAmounts(inv, cust.StateCode)

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	inv.UpdatedAt = time.Now().UTC()
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// SendInvoice transitions a draft invoice to sent
func (s *invoiceService) SendInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.MarkAsSent(); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("sent invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// RecordPayment credits an out-of-band payment against the invoice
func (s *invoiceService) RecordPayment(ctx context.Context, id string, req dto.RecordPaymentRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	date := time.Now().UTC()
	if req.PaymentDate != nil {
		date = req.PaymentDate.UTC()
	}
	method := types.PaymentMethodTypeBankTransfer
	if req.PaymentMethod != nil {
		method = *req.PaymentMethod
	}

	if err := inv.RecordPayment(req.Amount, date, method); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("recorded payment",
		"invoice_id", inv.ID,
		"amount", req.Amount.String(),
		"payment_status", inv.PaymentStatus)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// CancelInvoice cancels an invoice from any non-terminal state
func (s *invoiceService) CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Cancel(); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("cancelled invoice", "invoice_id", inv.ID)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

// ApplyLateFee prices a rule against the outstanding balance and applies it.
// Request overrides take precedence over the rule's own pricing.
func (s *invoiceService) ApplyLateFee(ctx context.Context, invoiceID string, req dto.ApplyLateFeeRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	rule, err := s.LateFeeRepo.GetRule(ctx, req.RuleID)
	if err != nil {
		return nil, err
	}

	pricing := tax.LateFeeRule{
		Type:      rule.Type,
		Amount:    rule.Amount,
		MaxAmount: rule.MaxAmount,
	}
	if req.Type != nil {
		pricing.Type = *req.Type
	}
	if req.Amount != nil {
		pricing.Amount = *req.Amount
	}
	if req.MaxAmount != nil {
		pricing.MaxAmount = req.MaxAmount
	}

	fee := tax.LateFeeAmount(inv.RemainingBalance(), pricing)
	if err := inv.ApplyLateFee(fee); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	application := &latefee.Application{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LATE_FEE_APPLIED),
		InvoiceID: inv.ID,
		RuleID:    rule.ID,
		Amount:    fee,
		AppliedAt: time.Now().UTC(),
	}
	if err := s.LateFeeRepo.RecordApplication(ctx, application); err != nil {
		return nil, err
	}

	s.Logger.Infow("applied late fee",
		"invoice_id", inv.ID,
		"rule_id", rule.ID,
		"fee", fee.String())
	return &dto.InvoiceResponse{Invoice: inv}, nil
}
