// Package tax implements the GST tax and totals engine. Every function here
// is pure: a fixed input always produces a bit-identical output, with no
// clock reads or hidden state. All money math is decimal and rounded to two
// places after each operation.
package tax

import (
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds an amount to two decimal places, half away from zero
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotals holds the derived amounts for a single line item
type LineTotals struct {
	TotalPrice decimal.Decimal
	TaxAmount  decimal.Decimal
}

// ComputeLineTotals derives total_price = round2(qty * unit_price) and
// tax_amount = round2(total_price * tax_rate / 100).
func ComputeLineTotals(quantity, unitPrice, taxRate decimal.Decimal) LineTotals {
	totalPrice := Round2(quantity.Mul(unitPrice))
	taxAmount := Round2(totalPrice.Mul(taxRate).Div(hundred))
	return LineTotals{
		TotalPrice: totalPrice,
		TaxAmount:  taxAmount,
	}
}

// Breakdown is the GST split for an invoice: either CGST+SGST (intra-state)
// or IGST (inter-state), never both.
type Breakdown struct {
	TaxType        types.TaxType   `json:"tax_type"`
	CGSTRate       decimal.Decimal `json:"cgst_rate"`
	CGSTAmount     decimal.Decimal `json:"cgst_amount"`
	SGSTRate       decimal.Decimal `json:"sgst_rate"`
	SGSTAmount     decimal.Decimal `json:"sgst_amount"`
	IGSTRate       decimal.Decimal `json:"igst_rate"`
	IGSTAmount     decimal.Decimal `json:"igst_amount"`
	TotalTaxAmount decimal.Decimal `json:"total_tax_amount"`
}

// Validate checks the mutual-exclusion invariant and that the total equals
// the populated components.
func (b Breakdown) Validate() error {
	var sum decimal.Decimal
	switch b.TaxType {
	case types.TaxTypeIntraState:
		if !b.IGSTAmount.IsZero() {
			return ierr.NewError("igst must be zero for intra-state supply").
				WithHint("Intra-state tax is split into CGST and SGST only").
				Mark(ierr.ErrValidation)
		}
		sum = b.CGSTAmount.Add(b.SGSTAmount)
	case types.TaxTypeInterState:
		if !b.CGSTAmount.IsZero() || !b.SGSTAmount.IsZero() {
			return ierr.NewError("cgst and sgst must be zero for inter-state supply").
				WithHint("Inter-state tax is charged as IGST only").
				Mark(ierr.ErrValidation)
		}
		sum = b.IGSTAmount
	default:
		return ierr.NewError("invalid tax type").
			WithHint("Tax type must be intra_state or inter_state").
			Mark(ierr.ErrValidation)
	}

	if !b.TotalTaxAmount.Equal(sum) {
		return ierr.NewError("total tax amount does not equal the sum of its components").
			WithReportableDetails(map[string]any{
				"total_tax_amount": b.TotalTaxAmount.String(),
				"component_sum":    sum.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ComputeBreakdown splits tax on a subtotal by comparing seller and buyer GST
// state codes. Same state: CGST and SGST at rate/2 each. Different states:
// IGST at the full rate.
func ComputeBreakdown(subtotal, rate decimal.Decimal, sellerStateCode, buyerStateCode string) Breakdown {
	if sellerStateCode != buyerStateCode {
		igst := Round2(subtotal.Mul(rate).Div(hundred))
		return Breakdown{
			TaxType:        types.TaxTypeInterState,
			IGSTRate:       rate,
			IGSTAmount:     igst,
			TotalTaxAmount: igst,
		}
	}

	halfRate := rate.Div(decimal.NewFromInt(2))
	half := Round2(subtotal.Mul(halfRate).Div(hundred))
	return Breakdown{
		TaxType:        types.TaxTypeIntraState,
		CGSTRate:       halfRate,
		CGSTAmount:     half,
		SGSTRate:       halfRate,
		SGSTAmount:     half,
		TotalTaxAmount: half.Add(half),
	}
}

// LateFeeRule is the subset of a late-fee rule the engine needs to price a fee
type LateFeeRule struct {
	Type      types.LateFeeType
	Amount    decimal.Decimal
	MaxAmount *decimal.Decimal
}

// LateFeeAmount prices a late fee against the current outstanding balance.
// Percentage rules charge outstanding * amount/100; fixed rules charge the
// flat amount. The result is capped at MaxAmount when set. Compounding is the
// scheduler's concern: it calls this again with the grown outstanding balance
// once a full period has elapsed.
func LateFeeAmount(outstanding decimal.Decimal, rule LateFeeRule) decimal.Decimal {
	var fee decimal.Decimal
	switch rule.Type {
	case types.LateFeeTypePercentage:
		fee = Round2(outstanding.Mul(rule.Amount).Div(hundred))
	default:
		fee = Round2(rule.Amount)
	}

	if rule.MaxAmount != nil && fee.GreaterThan(*rule.MaxAmount) {
		fee = *rule.MaxAmount
	}
	return fee
}
