package invoice

import (
	"time"

	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/tax"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice represents the invoice domain model. It owns its line items and tax
// breakdown by value; payment links are stored by the payment orchestrator
// and reference the invoice by id only.
type Invoice struct {
	ID                 string                     `json:"id"`
	InvoiceNumber      string                     `json:"invoice_number"`
	CustomerID         string                     `json:"customer_id"`
	ProjectID          *string                    `json:"project_id,omitempty"`
	LineItems          []LineItem                 `json:"line_items"`
	Subtotal           decimal.Decimal            `json:"subtotal"`
	TaxBreakdown       tax.Breakdown              `json:"tax_breakdown"`
	TotalAmount        decimal.Decimal            `json:"total_amount"`
	Currency           string                     `json:"currency"`
	InvoiceStatus      types.InvoiceStatus        `json:"status"`
	PaymentStatus      types.InvoicePaymentStatus `json:"payment_status"`
	PaidAmount         decimal.Decimal            `json:"paid_amount"`
	PaymentDate        *time.Time                 `json:"payment_date,omitempty"`
	PaymentMethod      *types.PaymentMethodType   `json:"payment_method,omitempty"`
	DiscountPercentage decimal.Decimal            `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal            `json:"discount_amount"`
	LateFeeApplied     bool                       `json:"late_fee_applied"`
	LateFeeTotal       decimal.Decimal            `json:"late_fee_total"`
	IssueDate          time.Time                  `json:"issue_date"`
	DueDate            time.Time                  `json:"due_date"`
	Notes              string                     `json:"notes,omitempty"`
	Metadata           types.Metadata             `json:"metadata,omitempty"`

	types.BaseModel
}

// RemainingBalance returns the unpaid portion of the invoice total
func (i *Invoice) RemainingBalance() decimal.Decimal {
	return i.TotalAmount.Sub(i.PaidAmount)
}

// IsFullyPaid reports whether the paid amount covers the total
func (i *Invoice) IsFullyPaid() bool {
	return i.PaidAmount.GreaterThanOrEqual(i.TotalAmount)
}

// Validate enforces the construction invariants: due date after issue date,
// total covering subtotal plus tax, paid amount within total, and valid
// line items and tax breakdown.
func (i *Invoice) Validate() error {
	if i.CustomerID == "" {
		return ierr.NewError("customer id is required").
			WithHint("Invoice must reference a customer").
			Mark(ierr.ErrValidation)
	}
	if i.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Invoice currency is required").
			Mark(ierr.ErrValidation)
	}
	if len(i.LineItems) == 0 {
		return ierr.NewError("invoice must have at least one line item").
			WithHint("Add at least one line item").
			Mark(ierr.ErrValidation)
	}
	if !i.DueDate.After(i.IssueDate) {
		return ierr.NewError("due date must be after issue date").
			WithHint("Due date must be after the issue date").
			WithReportableDetails(map[string]any{
				"issue_date": i.IssueDate,
				"due_date":   i.DueDate,
			}).
			Mark(ierr.ErrValidation)
	}

	for idx := range i.LineItems {
		if err := i.LineItems[idx].Validate(); err != nil {
			return err
		}
	}

	if err := i.TaxBreakdown.Validate(); err != nil {
		return err
	}

	if i.TotalAmount.LessThan(i.Subtotal.Add(i.TaxBreakdown.TotalTaxAmount)) {
		return ierr.NewError("total amount must cover subtotal plus tax").
			WithHint("Invoice total cannot be less than subtotal plus tax").
			WithReportableDetails(map[string]any{
				"total_amount": i.TotalAmount.String(),
				"subtotal":     i.Subtotal.String(),
				"tax":          i.TaxBreakdown.TotalTaxAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if i.PaidAmount.IsNegative() || i.PaidAmount.GreaterThan(i.TotalAmount) {
		return ierr.NewError("paid amount must be between zero and the invoice total").
			WithHint("Paid amount may never exceed the invoice total").
			WithReportableDetails(map[string]any{
				"paid_amount":  i.PaidAmount.String(),
				"total_amount": i.TotalAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// MarkAsSent transitions the invoice from draft to sent
func (i *Invoice) MarkAsSent() error {
	if i.InvoiceStatus != types.InvoiceStatusDraft {
		return ierr.NewError("only draft invoices can be sent").
			WithHint("Invoice has already been sent or closed").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"status":     i.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidState)
	}
	i.InvoiceStatus = types.InvoiceStatusSent
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordPayment credits a payment against the invoice. Overpayment is
// rejected before any mutation; the invoice moves to paid once the balance
// reaches zero.
func (i *Invoice) RecordPayment(amount decimal.Decimal, date time.Time, method types.PaymentMethodType) error {
	if i.InvoiceStatus.IsTerminal() && i.InvoiceStatus != types.InvoiceStatusPaid {
		return ierr.NewError("cannot record a payment on a cancelled invoice").
			WithHint("Cancelled invoices do not accept payments").
			Mark(ierr.ErrInvalidState)
	}
	if i.InvoiceStatus == types.InvoiceStatusPaid {
		return ierr.NewError("invoice is already paid").
			WithHint("Invoice has already been settled in full").
			Mark(ierr.ErrInvalidState)
	}
	if !amount.IsPositive() {
		return ierr.NewError("payment amount must be greater than zero").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if amount.GreaterThan(i.RemainingBalance()) {
		return ierr.NewError("payment amount exceeds remaining balance").
			WithHint("Payment amount cannot be greater than the remaining balance").
			WithReportableDetails(map[string]any{
				"invoice_id":        i.ID,
				"payment_amount":    amount.String(),
				"remaining_balance": i.RemainingBalance().String(),
			}).
			Mark(ierr.ErrValidation)
	}

	i.PaidAmount = i.PaidAmount.Add(amount)
	i.PaymentDate = &date
	i.PaymentMethod = &method

	if i.IsFullyPaid() {
		i.PaymentStatus = types.InvoicePaymentStatusPaid
		i.InvoiceStatus = types.InvoiceStatusPaid
	} else {
		i.PaymentStatus = types.InvoicePaymentStatusPartial
	}
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkAsOverdue transitions a sent, unpaid invoice past its due date
func (i *Invoice) MarkAsOverdue(now time.Time) error {
	if i.InvoiceStatus != types.InvoiceStatusSent {
		return ierr.NewError("only sent invoices can become overdue").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"status":     i.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidState)
	}
	if !now.After(i.DueDate) {
		return ierr.NewError("invoice is not past its due date").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"due_date":   i.DueDate,
			}).
			Mark(ierr.ErrInvalidState)
	}
	if i.IsFullyPaid() {
		return ierr.NewError("paid invoices cannot become overdue").
			Mark(ierr.ErrInvalidState)
	}
	i.InvoiceStatus = types.InvoiceStatusOverdue
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkPaymentFailed records a provider-reported payment failure. A sent
// invoice moves to overdue immediately rather than waiting for its due date.
func (i *Invoice) MarkPaymentFailed() error {
	if i.InvoiceStatus.IsTerminal() {
		return ierr.NewError("invoice is in a terminal state").
			WithHint("Paid or cancelled invoices do not accept payment failures").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"status":     i.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidState)
	}
	i.PaymentStatus = types.InvoicePaymentStatusFailed
	if i.InvoiceStatus == types.InvoiceStatusSent {
		i.InvoiceStatus = types.InvoiceStatusOverdue
	}
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkPaymentRefunded records that a settled payment was refunded in full
func (i *Invoice) MarkPaymentRefunded() {
	i.PaymentStatus = types.InvoicePaymentStatusRefunded
	i.UpdatedAt = time.Now().UTC()
}

// Cancel transitions the invoice to cancelled from any non-terminal state
func (i *Invoice) Cancel() error {
	if i.InvoiceStatus.IsTerminal() {
		return ierr.NewError("invoice is in a terminal state").
			WithHint("Paid or cancelled invoices cannot be cancelled").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"status":     i.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidState)
	}
	i.InvoiceStatus = types.InvoiceStatusCancelled
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyLateFee adds a priced late fee to the invoice total. Legal only while
// the invoice is overdue; the total is left untouched on failure.
func (i *Invoice) ApplyLateFee(fee decimal.Decimal) error {
	if i.InvoiceStatus != types.InvoiceStatusOverdue {
		return ierr.NewError("late fees apply only to overdue invoices").
			WithHint("Invoice must be overdue before a late fee can be applied").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"status":     i.InvoiceStatus,
			}).
			Mark(ierr.ErrInvalidState)
	}
	if !fee.IsPositive() {
		return ierr.NewError("late fee must be greater than zero").
			Mark(ierr.ErrValidation)
	}

	i.TotalAmount = i.TotalAmount.Add(fee)
	i.LateFeeTotal = i.LateFeeTotal.Add(fee)
	i.LateFeeApplied = true
	i.UpdatedAt = time.Now().UTC()
	return nil
}
