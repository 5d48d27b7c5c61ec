package invoice

import (
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/shopspring/decimal"
)

// LineItem is a single billed line on an invoice. TotalPrice and TaxAmount
// are derived by the tax engine and recomputed whenever the invoice is
// updated; line items are otherwise immutable once the invoice is issued.
type LineItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	HSNCode     string          `json:"hsn_code,omitempty"`
}

// Validate validates the line item
func (li *LineItem) Validate() error {
	if li.Description == "" {
		return ierr.NewError("line item description is required").
			WithHint("Each line item needs a description").
			Mark(ierr.ErrValidation)
	}
	if !li.Quantity.IsPositive() {
		return ierr.NewError("line item quantity must be greater than zero").
			WithHint("Quantity must be greater than zero").
			WithReportableDetails(map[string]any{
				"description": li.Description,
				"quantity":    li.Quantity.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if li.UnitPrice.IsNegative() {
		return ierr.NewError("line item unit price must be non-negative").
			WithHint("Unit price cannot be negative").
			WithReportableDetails(map[string]any{
				"description": li.Description,
				"unit_price":  li.UnitPrice.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if li.TaxRate.IsNegative() || li.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("line item tax rate must be between 0 and 100").
			WithHint("Tax rate is a percentage between 0 and 100").
			WithReportableDetails(map[string]any{
				"description": li.Description,
				"tax_rate":    li.TaxRate.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
