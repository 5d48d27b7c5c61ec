package types

import (
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/samber/lo"
)

// PaymentStatus is the normalized provider-agnostic payment state.
// Every gateway adapter maps its native event vocabulary onto this enum.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusProcessing        PaymentStatus = "processing"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusCancelled         PaymentStatus = "cancelled"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusCancelled,
		PaymentStatusRefunded,
		PaymentStatusPartiallyRefunded,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid payment status").
			WithHint("Please provide a valid payment status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentLinkStatus represents the state of a hosted payment link
type PaymentLinkStatus string

const (
	PaymentLinkStatusActive            PaymentLinkStatus = "active"
	PaymentLinkStatusExpired           PaymentLinkStatus = "expired"
	PaymentLinkStatusCompleted         PaymentLinkStatus = "completed"
	PaymentLinkStatusFailed            PaymentLinkStatus = "failed"
	PaymentLinkStatusRefunded          PaymentLinkStatus = "refunded"
	PaymentLinkStatusPartiallyRefunded PaymentLinkStatus = "partially_refunded"
)

func (s PaymentLinkStatus) String() string {
	return string(s)
}

func (s PaymentLinkStatus) Validate() error {
	allowed := []PaymentLinkStatus{
		PaymentLinkStatusActive,
		PaymentLinkStatusExpired,
		PaymentLinkStatusCompleted,
		PaymentLinkStatusFailed,
		PaymentLinkStatusRefunded,
		PaymentLinkStatusPartiallyRefunded,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid payment link status").
			WithHint("Please provide a valid payment link status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PaymentMethodType describes how a payment was collected
type PaymentMethodType string

const (
	PaymentMethodTypeCard         PaymentMethodType = "card"
	PaymentMethodTypeUPI          PaymentMethodType = "upi"
	PaymentMethodTypeNetbanking   PaymentMethodType = "netbanking"
	PaymentMethodTypeWallet       PaymentMethodType = "wallet"
	PaymentMethodTypeBankTransfer PaymentMethodType = "bank_transfer"
	PaymentMethodTypeCash         PaymentMethodType = "cash"
	PaymentMethodTypeCheque       PaymentMethodType = "cheque"
	PaymentMethodTypeOnline       PaymentMethodType = "online"
)

func (s PaymentMethodType) String() string {
	return string(s)
}

func (s PaymentMethodType) Validate() error {
	allowed := []PaymentMethodType{
		PaymentMethodTypeCard,
		PaymentMethodTypeUPI,
		PaymentMethodTypeNetbanking,
		PaymentMethodTypeWallet,
		PaymentMethodTypeBankTransfer,
		PaymentMethodTypeCash,
		PaymentMethodTypeCheque,
		PaymentMethodTypeOnline,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid payment method").
			WithHint("Please provide a valid payment method").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
