package types

import (
	ierr "github.com/finvoice/finvoice/internal/errors"
)

// PaymentGatewayType is the closed set of supported payment providers
type PaymentGatewayType string

const (
	PaymentGatewayTypeStripe   PaymentGatewayType = "stripe"
	PaymentGatewayTypeRazorpay PaymentGatewayType = "razorpay"
	PaymentGatewayTypePayU     PaymentGatewayType = "payu"
)

// Validate validates the payment gateway type
func (p PaymentGatewayType) Validate() error {
	switch p {
	case PaymentGatewayTypeStripe, PaymentGatewayTypeRazorpay, PaymentGatewayTypePayU:
		return nil
	default:
		return ierr.NewError("invalid payment gateway type").
			WithHint("Please provide a valid payment gateway type").
			WithReportableDetails(map[string]any{
				"allowed": []PaymentGatewayType{
					PaymentGatewayTypeStripe,
					PaymentGatewayTypeRazorpay,
					PaymentGatewayTypePayU,
				},
			}).
			Mark(ierr.ErrValidation)
	}
}

// String returns the string representation of the payment gateway type
func (p PaymentGatewayType) String() string {
	return string(p)
}

// SignatureHeader returns the HTTP header carrying the provider's webhook
// signature. An empty string means the provider does not sign its webhooks.
func (p PaymentGatewayType) SignatureHeader() string {
	switch p {
	case PaymentGatewayTypeStripe:
		return "stripe-signature"
	case PaymentGatewayTypeRazorpay:
		return "x-razorpay-signature"
	default:
		return ""
	}
}

// FraudRecommendation is the outcome of pre-link fraud screening
type FraudRecommendation string

const (
	FraudRecommendationApprove FraudRecommendation = "approve"
	FraudRecommendationReview  FraudRecommendation = "review"
	FraudRecommendationDecline FraudRecommendation = "decline"
)

func (r FraudRecommendation) String() string {
	return string(r)
}

// FraudRiskLevel buckets the numeric fraud score
type FraudRiskLevel string

const (
	FraudRiskLevelLow    FraudRiskLevel = "low"
	FraudRiskLevelMedium FraudRiskLevel = "medium"
	FraudRiskLevelHigh   FraudRiskLevel = "high"
)

func (r FraudRiskLevel) String() string {
	return string(r)
}
