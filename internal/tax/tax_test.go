package tax

import (
	"testing"

	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeLineTotals(t *testing.T) {
	tests := []struct {
		name          string
		quantity      string
		unitPrice     string
		taxRate       string
		expectedTotal string
		expectedTax   string
	}{
		{
			name:          "whole_amounts",
			quantity:      "2",
			unitPrice:     "5000",
			taxRate:       "18",
			expectedTotal: "10000",
			expectedTax:   "1800",
		},
		{
			name:          "fractional_unit_price_rounds_total_before_tax",
			quantity:      "2",
			unitPrice:     "150.255",
			taxRate:       "18",
			expectedTotal: "300.51",
			expectedTax:   "54.09",
		},
		{
			name:          "zero_rate",
			quantity:      "3",
			unitPrice:     "99.99",
			taxRate:       "0",
			expectedTotal: "299.97",
			expectedTax:   "0",
		},
		{
			name:          "fractional_quantity",
			quantity:      "1.5",
			unitPrice:     "333.33",
			taxRate:       "12",
			expectedTotal: "500",
			expectedTax:   "60",
		},
		{
			name:          "five_percent_rate",
			quantity:      "1",
			unitPrice:     "1234.56",
			taxRate:       "5",
			expectedTotal: "1234.56",
			expectedTax:   "61.73",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeLineTotals(
				decimal.RequireFromString(tt.quantity),
				decimal.RequireFromString(tt.unitPrice),
				decimal.RequireFromString(tt.taxRate),
			)
			assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString(tt.expectedTotal)),
				"total price: got %s want %s", got.TotalPrice, tt.expectedTotal)
			assert.True(t, got.TaxAmount.Equal(decimal.RequireFromString(tt.expectedTax)),
				"tax amount: got %s want %s", got.TaxAmount, tt.expectedTax)
		})
	}
}

func TestComputeBreakdown_IntraState(t *testing.T) {
	b := ComputeBreakdown(decimal.NewFromInt(10000), decimal.NewFromInt(18), "29", "29")

	assert.Equal(t, types.TaxTypeIntraState, b.TaxType)
	assert.True(t, b.CGSTRate.Equal(decimal.NewFromInt(9)))
	assert.True(t, b.SGSTRate.Equal(decimal.NewFromInt(9)))
	assert.True(t, b.CGSTAmount.Equal(decimal.NewFromInt(900)), "cgst: %s", b.CGSTAmount)
	assert.True(t, b.SGSTAmount.Equal(decimal.NewFromInt(900)), "sgst: %s", b.SGSTAmount)
	assert.True(t, b.IGSTAmount.IsZero())
	assert.True(t, b.TotalTaxAmount.Equal(decimal.NewFromInt(1800)))
	require.NoError(t, b.Validate())
}

func TestComputeBreakdown_InterState(t *testing.T) {
	b := ComputeBreakdown(decimal.NewFromInt(10000), decimal.NewFromInt(18), "29", "27")

	assert.Equal(t, types.TaxTypeInterState, b.TaxType)
	assert.True(t, b.IGSTRate.Equal(decimal.NewFromInt(18)))
	assert.True(t, b.IGSTAmount.Equal(decimal.NewFromInt(1800)))
	assert.True(t, b.CGSTAmount.IsZero())
	assert.True(t, b.SGSTAmount.IsZero())
	assert.True(t, b.TotalTaxAmount.Equal(decimal.NewFromInt(1800)))
	require.NoError(t, b.Validate())
}

func TestComputeBreakdown_HalvesRoundIndependently(t *testing.T) {
	// 0.18% of 999 is 1.7982; each 0.09% half rounds to 0.90 on its own,
	// so the intra-state total is 1.80 while the inter-state total is also
	// 1.80 here. Pick a subtotal where the halves differ from half the IGST.
	b := ComputeBreakdown(decimal.RequireFromString("102.75"), decimal.NewFromInt(18), "29", "29")

	// 102.75 * 9% = 9.2475 -> 9.25 per half, total 18.50
	assert.True(t, b.CGSTAmount.Equal(decimal.RequireFromString("9.25")), "cgst: %s", b.CGSTAmount)
	assert.True(t, b.SGSTAmount.Equal(decimal.RequireFromString("9.25")))
	assert.True(t, b.TotalTaxAmount.Equal(decimal.RequireFromString("18.5")))

	igst := ComputeBreakdown(decimal.RequireFromString("102.75"), decimal.NewFromInt(18), "29", "27")
	// 102.75 * 18% = 18.495 -> 18.50 rounded once
	assert.True(t, igst.IGSTAmount.Equal(decimal.RequireFromString("18.5")), "igst: %s", igst.IGSTAmount)
}

func TestBreakdownValidate(t *testing.T) {
	tests := []struct {
		name      string
		breakdown Breakdown
		wantErr   bool
	}{
		{
			name: "intra_state_with_igst_rejected",
			breakdown: Breakdown{
				TaxType:        types.TaxTypeIntraState,
				CGSTAmount:     decimal.NewFromInt(900),
				SGSTAmount:     decimal.NewFromInt(900),
				IGSTAmount:     decimal.NewFromInt(1),
				TotalTaxAmount: decimal.NewFromInt(1800),
			},
			wantErr: true,
		},
		{
			name: "inter_state_with_cgst_rejected",
			breakdown: Breakdown{
				TaxType:        types.TaxTypeInterState,
				CGSTAmount:     decimal.NewFromInt(900),
				IGSTAmount:     decimal.NewFromInt(1800),
				TotalTaxAmount: decimal.NewFromInt(1800),
			},
			wantErr: true,
		},
		{
			name: "total_mismatch_rejected",
			breakdown: Breakdown{
				TaxType:        types.TaxTypeInterState,
				IGSTAmount:     decimal.NewFromInt(1800),
				TotalTaxAmount: decimal.NewFromInt(1799),
			},
			wantErr: true,
		},
		{
			name:      "unknown_tax_type_rejected",
			breakdown: Breakdown{TaxType: types.TaxType("gst")},
			wantErr:   true,
		},
		{
			name: "valid_intra_state",
			breakdown: Breakdown{
				TaxType:        types.TaxTypeIntraState,
				CGSTAmount:     decimal.NewFromInt(900),
				SGSTAmount:     decimal.NewFromInt(900),
				TotalTaxAmount: decimal.NewFromInt(1800),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.breakdown.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLateFeeAmount(t *testing.T) {
	cap100 := decimal.NewFromInt(100)

	tests := []struct {
		name        string
		outstanding string
		rule        LateFeeRule
		expected    string
	}{
		{
			name:        "percentage_of_outstanding",
			outstanding: "1180",
			rule: LateFeeRule{
				Type:   types.LateFeeTypePercentage,
				Amount: decimal.NewFromInt(2),
			},
			expected: "23.6",
		},
		{
			name:        "fixed_amount",
			outstanding: "1180",
			rule: LateFeeRule{
				Type:   types.LateFeeTypeFixed,
				Amount: decimal.NewFromInt(50),
			},
			expected: "50",
		},
		{
			name:        "percentage_capped_at_max",
			outstanding: "100000",
			rule: LateFeeRule{
				Type:      types.LateFeeTypePercentage,
				Amount:    decimal.NewFromInt(2),
				MaxAmount: &cap100,
			},
			expected: "100",
		},
		{
			name:        "fixed_under_cap_unchanged",
			outstanding: "500",
			rule: LateFeeRule{
				Type:      types.LateFeeTypeFixed,
				Amount:    decimal.NewFromInt(75),
				MaxAmount: &cap100,
			},
			expected: "75",
		},
		{
			name:        "percentage_rounds_half_up",
			outstanding: "333.33",
			rule: LateFeeRule{
				Type:   types.LateFeeTypePercentage,
				Amount: decimal.RequireFromString("1.5"),
			},
			expected: "5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee := LateFeeAmount(decimal.RequireFromString(tt.outstanding), tt.rule)
			assert.True(t, fee.Equal(decimal.RequireFromString(tt.expected)),
				"fee: got %s want %s", fee, tt.expected)
		})
	}
}
