package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/finvoice/finvoice/internal/config"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter() *Adapter {
	return NewAdapter(config.RazorpayConfig{
		KeyID:         "rzp_test_key",
		SecretKey:     "rzp_test_secret",
		WebhookSecret: "whsec_test",
	}, 5*time.Second, logger.NewNopLogger())
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestProcessWebhook_PaymentLinkPaid(t *testing.T) {
	adapter := newTestAdapter()

	payload := []byte(`{
		"entity": "event",
		"event": "payment_link.paid",
		"created_at": 1767225600,
		"payload": {
			"payment_link": {
				"entity": {
					"id": "plink_Nx1",
					"amount": 1180000,
					"amount_paid": 1180000,
					"currency": "INR",
					"status": "paid",
					"notes": []
				}
			},
			"payment": {
				"entity": {
					"id": "pay_Nx2",
					"amount": 1180000,
					"currency": "INR",
					"status": "captured",
					"method": "upi",
					"notes": {}
				}
			}
		}
	}`)

	status, err := adapter.ProcessWebhook(context.Background(), payload, sign(payload, "whsec_test"))
	require.NoError(t, err)

	assert.Equal(t, "plink_Nx1", status.PaymentID)
	assert.Equal(t, "pay_Nx2", status.TransactionID)
	// paise convert to rupees at the adapter boundary
	assert.True(t, status.Amount.Equal(decimal.NewFromInt(11800)), "amount: %s", status.Amount)
	assert.True(t, status.PaidAmount.Equal(decimal.NewFromInt(11800)))
	require.NotNil(t, status.PaidAt)
	assert.Equal(t, int64(1767225600), status.PaidAt.Unix())
	require.NotNil(t, status.PaymentMethod)
	assert.Equal(t, "upi", string(*status.PaymentMethod))
}

func TestProcessWebhook_PaymentFailed(t *testing.T) {
	adapter := newTestAdapter()

	payload := []byte(`{
		"entity": "event",
		"event": "payment.failed",
		"created_at": 1767225600,
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_Nx3",
					"amount": 500000,
					"currency": "INR",
					"status": "failed",
					"error_code": "BAD_REQUEST_ERROR",
					"error_description": "Payment failed",
					"notes": {"payment_link_id": "plink_Nx1"}
				}
			}
		}
	}`)

	status, err := adapter.ProcessWebhook(context.Background(), payload, sign(payload, "whsec_test"))
	require.NoError(t, err)

	// the failure is attributed to the link named in the payment notes
	assert.Equal(t, "plink_Nx1", status.PaymentID)
	assert.Equal(t, "pay_Nx3", status.TransactionID)
	assert.True(t, status.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "BAD_REQUEST_ERROR", status.Metadata["error_code"])
}

func TestProcessWebhook_PaymentFailedResolvesThroughCreationNotes(t *testing.T) {
	adapter := newTestAdapter()

	// real link payments echo back only the notes set at creation, which
	// carry the invoice reference and no link id
	payload := []byte(`{
		"entity": "event",
		"event": "payment.failed",
		"created_at": 1767225600,
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_Nx7",
					"amount": 1180000,
					"currency": "INR",
					"status": "failed",
					"error_code": "BAD_REQUEST_ERROR",
					"error_description": "Payment failed",
					"notes": {"invoice_id": "inv_01hx"}
				}
			}
		}
	}`)

	status, err := adapter.ProcessWebhook(context.Background(), payload, sign(payload, "whsec_test"))
	require.NoError(t, err)

	assert.Equal(t, "pay_Nx7", status.PaymentID)
	assert.Equal(t, "pay_Nx7", status.TransactionID)
	assert.Equal(t, "inv_01hx", status.InvoiceID)
	assert.Equal(t, types.PaymentStatusFailed, status.Status)
}

func TestProcessWebhook_RefundProcessed(t *testing.T) {
	adapter := newTestAdapter()

	payload := []byte(`{
		"entity": "event",
		"event": "refund.processed",
		"created_at": 1767225600,
		"payload": {
			"refund": {
				"entity": {
					"id": "rfnd_Nx9",
					"amount": 500000,
					"currency": "INR",
					"payment_id": "pay_Nx2",
					"status": "processed",
					"notes": {"invoice_id": "inv_01hx"}
				}
			},
			"payment": {
				"entity": {
					"id": "pay_Nx2",
					"amount": 1180000,
					"currency": "INR",
					"status": "captured",
					"amount_refunded": 500000,
					"notes": {"invoice_id": "inv_01hx"}
				}
			}
		}
	}`)

	status, err := adapter.ProcessWebhook(context.Background(), payload, sign(payload, "whsec_test"))
	require.NoError(t, err)

	// without a link id note the refund is attributed to its payment id,
	// which matches the transaction recorded at settlement
	assert.Equal(t, "pay_Nx2", status.PaymentID)
	assert.Equal(t, "pay_Nx2", status.TransactionID)
	assert.Equal(t, "inv_01hx", status.InvoiceID)
	assert.Equal(t, types.PaymentStatusPartiallyRefunded, status.Status)
	assert.True(t, status.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "rfnd_Nx9", status.Metadata["refund_id"])
}

func TestProcessWebhook_SignatureRequired(t *testing.T) {
	adapter := newTestAdapter()
	payload := []byte(`{"event": "payment_link.paid"}`)

	_, err := adapter.ProcessWebhook(context.Background(), payload, "")
	assert.True(t, ierr.IsSignatureInvalid(err))

	_, err = adapter.ProcessWebhook(context.Background(), payload, "deadbeef")
	assert.True(t, ierr.IsSignatureInvalid(err))

	// a signature from the wrong secret is rejected too
	_, err = adapter.ProcessWebhook(context.Background(), payload, sign(payload, "other_secret"))
	assert.True(t, ierr.IsSignatureInvalid(err))
}

func TestProcessWebhook_TamperedPayloadRejected(t *testing.T) {
	adapter := newTestAdapter()
	payload := []byte(`{"event": "payment_link.paid", "payload": {}}`)
	signature := sign(payload, "whsec_test")

	tampered := []byte(`{"event": "payment_link.paid", "payload": { }}`)
	_, err := adapter.ProcessWebhook(context.Background(), tampered, signature)
	assert.True(t, ierr.IsSignatureInvalid(err))
}

func TestProcessWebhook_UnsupportedEvent(t *testing.T) {
	adapter := newTestAdapter()
	payload := []byte(`{"event": "order.paid", "payload": {}}`)

	_, err := adapter.ProcessWebhook(context.Background(), payload, sign(payload, "whsec_test"))
	assert.True(t, ierr.IsUnsupportedEvent(err))
}

func TestProcessWebhook_SecretKeyFallback(t *testing.T) {
	adapter := NewAdapter(config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		SecretKey: "rzp_test_secret",
	}, 5*time.Second, logger.NewNopLogger())

	payload := []byte(`{
		"event": "payment_link.expired",
		"payload": {
			"payment_link": {
				"entity": {"id": "plink_Nx9", "amount": 100000, "status": "expired", "notes": []}
			}
		}
	}`)

	status, err := adapter.ProcessWebhook(context.Background(), payload, sign(payload, "rzp_test_secret"))
	require.NoError(t, err)
	assert.Equal(t, "plink_Nx9", status.PaymentID)
	assert.True(t, status.Amount.Equal(decimal.NewFromInt(1000)))
}

func TestFlexibleNotes(t *testing.T) {
	var fn FlexibleNotes

	require.NoError(t, fn.UnmarshalJSON([]byte(`{"invoice_id": "inv_1"}`)))
	assert.Equal(t, "inv_1", fn.String("invoice_id"))

	// Razorpay sends [] for empty notes
	require.NoError(t, fn.UnmarshalJSON([]byte(`[]`)))
	assert.Empty(t, fn.String("invoice_id"))

	assert.Error(t, fn.UnmarshalJSON([]byte(`"notes"`)))
}
