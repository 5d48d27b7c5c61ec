package dto

import (
	"time"

	"github.com/finvoice/finvoice/internal/domain/invoice"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

// CreateInvoiceLineItemRequest is one line of a new invoice. Totals are
// derived server side; the client never supplies them.
type CreateInvoiceLineItemRequest struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	HSNCode     string          `json:"hsn_code,omitempty"`
}

// CreateInvoiceRequest creates a draft invoice
type CreateInvoiceRequest struct {
	CustomerID         string                         `json:"customer_id" binding:"required"`
	ProjectID          *string                        `json:"project_id,omitempty"`
	Currency           string                         `json:"currency,omitempty"`
	LineItems          []CreateInvoiceLineItemRequest `json:"line_items" binding:"required"`
	DiscountPercentage decimal.Decimal                `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal                `json:"discount_amount"`
	IssueDate          *time.Time                     `json:"issue_date,omitempty"`
	DueDate            time.Time                      `json:"due_date" binding:"required"`
	Notes              string                         `json:"notes,omitempty"`
	Metadata           types.Metadata                 `json:"metadata,omitempty"`
}

// Validate validates the invoice creation request
func (r *CreateInvoiceRequest) Validate() error {
	if r.CustomerID == "" {
		return ierr.NewError("customer id is required").
			WithHint("Customer ID is required").
			Mark(ierr.ErrValidation)
	}
	if len(r.LineItems) == 0 {
		return ierr.NewError("at least one line item is required").
			WithHint("Add at least one line item").
			Mark(ierr.ErrValidation)
	}
	for _, li := range r.LineItems {
		if li.Description == "" {
			return ierr.NewError("line item description is required").
				WithHint("Each line item needs a description").
				Mark(ierr.ErrValidation)
		}
		if !li.Quantity.IsPositive() {
			return ierr.NewError("line item quantity must be greater than zero").
				WithHint("Quantity must be greater than zero").
				Mark(ierr.ErrValidation)
		}
		if li.UnitPrice.IsNegative() {
			return ierr.NewError("line item unit price cannot be negative").
				WithHint("Unit price must be zero or more").
				Mark(ierr.ErrValidation)
		}
		if li.TaxRate.IsNegative() || li.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
			return ierr.NewError("line item tax rate must be between 0 and 100").
				WithHint("Tax rate is a percentage between 0 and 100").
				Mark(ierr.ErrValidation)
		}
	}
	if r.DiscountPercentage.IsNegative() || r.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("discount percentage must be between 0 and 100").
			WithHint("Discount percentage is between 0 and 100").
			Mark(ierr.ErrValidation)
	}
	if r.DiscountAmount.IsNegative() {
		return ierr.NewError("discount amount cannot be negative").
			WithHint("Discount amount must be zero or more").
			Mark(ierr.ErrValidation)
	}
	if !r.DiscountPercentage.IsZero() && !r.DiscountAmount.IsZero() {
		return ierr.NewError("discount percentage and discount amount are mutually exclusive").
			WithHint("Provide either a percentage or a fixed discount, not both").
			Mark(ierr.ErrValidation)
	}
	if r.DueDate.IsZero() {
		return ierr.NewError("due date is required").
			WithHint("Due date is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UpdateInvoiceRequest updates mutable fields of a draft or sent invoice.
// Line item changes replace the whole set and trigger recalculation.
type UpdateInvoiceRequest struct {
	LineItems          []CreateInvoiceLineItemRequest `json:"line_items,omitempty"`
	DiscountPercentage *decimal.Decimal               `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal               `json:"discount_amount,omitempty"`
	DueDate            *time.Time                     `json:"due_date,omitempty"`
	Notes              *string                        `json:"notes,omitempty"`
	Metadata           types.Metadata                 `json:"metadata,omitempty"`
}

// RecordPaymentRequest records an out-of-band payment against an invoice
type RecordPaymentRequest struct {
	Amount        decimal.Decimal          `json:"amount" binding:"required"`
	PaymentDate   *time.Time               `json:"payment_date,omitempty"`
	PaymentMethod *types.PaymentMethodType `json:"payment_method,omitempty"`
}

// Validate validates the payment recording request
func (r *RecordPaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ierr.NewError("payment amount must be greater than zero").
			WithHint("Amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.PaymentMethod != nil {
		if err := r.PaymentMethod.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplyLateFeeRequest applies a late fee rule to a single invoice. The
// optional fields override the rule's pricing for this application only.
type ApplyLateFeeRequest struct {
	RuleID    string             `json:"rule_id" binding:"required"`
	Type      *types.LateFeeType `json:"type,omitempty"`
	Amount    *decimal.Decimal   `json:"amount,omitempty"`
	MaxAmount *decimal.Decimal   `json:"max_amount,omitempty"`
}

// Validate validates the late fee application request
func (r *ApplyLateFeeRequest) Validate() error {
	if r.RuleID == "" {
		return ierr.NewError("rule_id is required").
			WithHint("Rule ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.Type != nil {
		if err := r.Type.Validate(); err != nil {
			return err
		}
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		return ierr.NewError("late fee amount override must be greater than zero").
			WithHint("Amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.MaxAmount != nil && !r.MaxAmount.IsPositive() {
		return ierr.NewError("late fee cap override must be greater than zero").
			WithHint("Max amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceResponse wraps the invoice domain model
type InvoiceResponse struct {
	*invoice.Invoice
}

// ListInvoicesResponse is the paginated listing envelope
type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}
