package types

import (
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus represents where an invoice sits in its lifecycle
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusSent,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether no further lifecycle transitions are legal
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// InvoicePaymentStatus tracks settlement progress independently of lifecycle status
type InvoicePaymentStatus string

const (
	InvoicePaymentStatusPending  InvoicePaymentStatus = "pending"
	InvoicePaymentStatusPartial  InvoicePaymentStatus = "partial"
	InvoicePaymentStatusPaid     InvoicePaymentStatus = "paid"
	InvoicePaymentStatusFailed   InvoicePaymentStatus = "failed"
	InvoicePaymentStatusRefunded InvoicePaymentStatus = "refunded"
)

func (s InvoicePaymentStatus) String() string {
	return string(s)
}

func (s InvoicePaymentStatus) Validate() error {
	allowed := []InvoicePaymentStatus{
		InvoicePaymentStatusPending,
		InvoicePaymentStatusPartial,
		InvoicePaymentStatusPaid,
		InvoicePaymentStatusFailed,
		InvoicePaymentStatusRefunded,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice payment status").
			WithHint("Please provide a valid invoice payment status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TaxType discriminates the GST split on an invoice
type TaxType string

const (
	// TaxTypeIntraState splits tax evenly between CGST and SGST
	TaxTypeIntraState TaxType = "intra_state"
	// TaxTypeInterState charges the full rate as IGST
	TaxTypeInterState TaxType = "inter_state"
)

func (t TaxType) String() string {
	return string(t)
}
