// Package razorpay adapts Razorpay payment links to the gateway contract.
// Razorpay notifies through webhooks signed with HMAC-SHA256 over the raw
// body, hex encoded in the x-razorpay-signature header. Amounts are in paise.
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/finvoice/finvoice/internal/config"
	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/gateway"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/types"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

var paiseUnit = decimal.NewFromInt(100)

// Adapter implements gateway.Gateway over the Razorpay SDK
type Adapter struct {
	client  *razorpay.Client
	cfg     config.RazorpayConfig
	timeout time.Duration
	logger  *logger.Logger
}

// NewAdapter creates a Razorpay adapter from configured credentials
func NewAdapter(cfg config.RazorpayConfig, timeout time.Duration, logger *logger.Logger) *Adapter {
	return &Adapter{
		client:  razorpay.NewClient(cfg.KeyID, cfg.SecretKey),
		cfg:     cfg,
		timeout: timeout,
		logger:  logger,
	}
}

// Name returns the provider this adapter binds
func (a *Adapter) Name() types.PaymentGatewayType {
	return types.PaymentGatewayTypeRazorpay
}

// CreatePaymentLink creates a Razorpay payment link for the invoice amount
func (a *Adapter) CreatePaymentLink(ctx context.Context, params gateway.CreateLinkParams) (*paymentlink.PaymentLink, error) {
	amountPaise := params.Amount.Mul(paiseUnit).IntPart()

	linkData := map[string]interface{}{
		"amount":      amountPaise,
		"currency":    params.Currency,
		"description": params.Description,
		"customer": map[string]interface{}{
			"name":  params.PayerName,
			"email": params.PayerEmail,
		},
		"notify": map[string]interface{}{
			"email": true,
		},
		"accept_partial": params.AllowPartial,
		"notes": map[string]interface{}{
			"invoice_id": params.InvoiceID,
		},
	}
	if params.ExpiresAt != nil {
		linkData["expire_by"] = params.ExpiresAt.Unix()
	}
	if params.SuccessURL != "" {
		linkData["callback_url"] = params.SuccessURL
		linkData["callback_method"] = "get"
	}

	// the razorpay SDK does not take a context; run the call in a goroutine
	// so the deadline still bounds how long we wait
	link, err := a.withTimeout(ctx, func() (map[string]interface{}, error) {
		return a.client.PaymentLink.Create(linkData, nil)
	})
	if err != nil {
		a.logger.Errorw("failed to create razorpay payment link",
			"error", err,
			"invoice_id", params.InvoiceID)
		return nil, ierr.WithError(err).
			WithHint("Unable to create Razorpay payment link").
			WithReportableDetails(map[string]any{
				"invoice_id": params.InvoiceID,
			}).
			Mark(ierr.ErrGateway)
	}

	result := &paymentlink.PaymentLink{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_LINK),
		GatewayLinkID: mapString(link, "id"),
		Gateway:       types.PaymentGatewayTypeRazorpay,
		InvoiceID:     params.InvoiceID,
		URL:           mapString(link, "short_url"),
		Amount:        params.Amount,
		Currency:      params.Currency,
		LinkStatus:    types.PaymentLinkStatusActive,
		PayerEmail:    params.PayerEmail,
		PayerName:     params.PayerName,
		AllowPartial:  params.AllowPartial,
		ExpiresAt:     params.ExpiresAt,
		Metadata:      params.Metadata,
		BaseModel:     types.GetDefaultBaseModel(),
	}

	a.logger.Infow("created razorpay payment link",
		"payment_link_id", result.GatewayLinkID,
		"invoice_id", params.InvoiceID,
		"amount", params.Amount.String())

	return result, nil
}

// ProcessWebhook verifies the x-razorpay-signature header and maps the event
func (a *Adapter) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*gateway.PaymentStatus, error) {
	if err := a.verifySignature(payload, signature); err != nil {
		return nil, err
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}

	switch event.Event {
	case EventPaymentLinkPaid, EventPaymentLinkPartiallyPaid:
		if event.Payload.PaymentLink == nil {
			return nil, ierr.NewError("webhook payload missing payment link entity").
				WithHint("Malformed webhook payload").
				Mark(ierr.ErrValidation)
		}
		link := event.Payload.PaymentLink.Entity
		paidAt := time.Unix(event.CreatedAt, 0).UTC()
		status := &gateway.PaymentStatus{
			PaymentID:  link.ID,
			Status:     types.PaymentStatusCompleted,
			Amount:     decimal.NewFromInt(link.Amount).Div(paiseUnit),
			PaidAmount: decimal.NewFromInt(link.AmountPaid).Div(paiseUnit),
			PaidAt:     &paidAt,
			Metadata:   types.Metadata{"event_type": string(event.Event)},
		}
		if event.Payload.Payment != nil {
			payment := event.Payload.Payment.Entity
			status.TransactionID = payment.ID
			method := paymentMethodFromRazorpay(payment.Method)
			status.PaymentMethod = &method
		}
		return status, nil

	case EventPaymentLinkExpired:
		if event.Payload.PaymentLink == nil {
			return nil, ierr.NewError("webhook payload missing payment link entity").
				WithHint("Malformed webhook payload").
				Mark(ierr.ErrValidation)
		}
		link := event.Payload.PaymentLink.Entity
		return &gateway.PaymentStatus{
			PaymentID: link.ID,
			Status:    types.PaymentStatusCancelled,
			Amount:    decimal.NewFromInt(link.Amount).Div(paiseUnit),
			Metadata:  types.Metadata{"event_type": string(event.Event)},
		}, nil

	case EventPaymentFailed:
		if event.Payload.Payment == nil {
			return nil, ierr.NewError("webhook payload missing payment entity").
				WithHint("Malformed webhook payload").
				Mark(ierr.ErrValidation)
		}
		// link payments echo back only the notes set at creation, so the
		// payload carries no link id of its own. Resolution falls through
		// the payment id to the invoice_id note.
		payment := event.Payload.Payment.Entity
		paymentID := payment.Notes.String("payment_link_id")
		if paymentID == "" {
			paymentID = payment.ID
		}
		return &gateway.PaymentStatus{
			PaymentID:     paymentID,
			Status:        types.PaymentStatusFailed,
			Amount:        decimal.NewFromInt(payment.Amount).Div(paiseUnit),
			TransactionID: payment.ID,
			InvoiceID:     payment.Notes.String("invoice_id"),
			Metadata: types.Metadata{
				"event_type":  string(event.Event),
				"error_code":  payment.ErrorCode,
				"error_descr": payment.ErrorDescription,
			},
		}, nil

	case EventRefundProcessed:
		if event.Payload.Refund == nil {
			return nil, ierr.NewError("webhook payload missing refund entity").
				WithHint("Malformed webhook payload").
				Mark(ierr.ErrValidation)
		}
		refund := event.Payload.Refund.Entity
		status := types.PaymentStatusPartiallyRefunded
		if event.Payload.Payment != nil {
			payment := event.Payload.Payment.Entity
			if payment.AmountRefunded >= payment.Amount {
				status = types.PaymentStatusRefunded
			}
		}
		// refund.payment_id matches the transaction id recorded when the
		// payment settled, which the link store resolves
		paymentID := refund.Notes.String("payment_link_id")
		if paymentID == "" {
			paymentID = refund.PaymentID
		}
		return &gateway.PaymentStatus{
			PaymentID:     paymentID,
			Status:        status,
			Amount:        decimal.NewFromInt(refund.Amount).Div(paiseUnit),
			TransactionID: refund.PaymentID,
			InvoiceID:     refund.Notes.String("invoice_id"),
			Metadata:      types.Metadata{"event_type": string(event.Event), "refund_id": refund.ID},
		}, nil

	default:
		return nil, ierr.NewError("unsupported razorpay event type").
			WithHint("Webhook event type is not handled").
			WithReportableDetails(map[string]any{
				"event_type": string(event.Event),
			}).
			Mark(ierr.ErrUnsupportedEvent)
	}
}

// verifySignature checks the HMAC-SHA256 hex signature over the raw body.
// Razorpay signs with the webhook secret; the API secret is the documented
// fallback when no webhook secret is configured.
func (a *Adapter) verifySignature(payload []byte, signature string) error {
	if signature == "" {
		return ierr.NewError("missing razorpay signature").
			WithHint("The x-razorpay-signature header is required").
			Mark(ierr.ErrSignatureInvalid)
	}

	secret := a.cfg.WebhookSecret
	if secret == "" {
		secret = a.cfg.SecretKey
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		a.logger.Errorw("razorpay webhook signature mismatch",
			"payload_length", len(payload))
		return ierr.NewError("webhook signature verification failed").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrSignatureInvalid)
	}
	return nil
}

// GetPaymentStatus fetches a payment link (plink_*) or payment (pay_*)
func (a *Adapter) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.PaymentStatus, error) {
	if len(paymentID) > 4 && paymentID[:4] == "pay_" {
		payment, err := a.withTimeout(ctx, func() (map[string]interface{}, error) {
			return a.client.Payment.Fetch(paymentID, nil, nil)
		})
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to fetch payment from Razorpay").
				WithReportableDetails(map[string]any{"payment_id": paymentID}).
				Mark(ierr.ErrGateway)
		}
		return a.statusFromPayment(paymentID, payment), nil
	}

	link, err := a.withTimeout(ctx, func() (map[string]interface{}, error) {
		return a.client.PaymentLink.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to fetch payment link from Razorpay").
			WithReportableDetails(map[string]any{"payment_id": paymentID}).
			Mark(ierr.ErrGateway)
	}

	status := &gateway.PaymentStatus{
		PaymentID:  paymentID,
		Amount:     decimal.NewFromInt(mapInt64(link, "amount")).Div(paiseUnit),
		PaidAmount: decimal.NewFromInt(mapInt64(link, "amount_paid")).Div(paiseUnit),
	}
	switch mapString(link, "status") {
	case "paid":
		status.Status = types.PaymentStatusCompleted
	case "partially_paid":
		status.Status = types.PaymentStatusProcessing
	case "expired", "cancelled":
		status.Status = types.PaymentStatusCancelled
	default:
		status.Status = types.PaymentStatusPending
	}
	return status, nil
}

func (a *Adapter) statusFromPayment(paymentID string, payment map[string]interface{}) *gateway.PaymentStatus {
	amount := decimal.NewFromInt(mapInt64(payment, "amount")).Div(paiseUnit)
	status := &gateway.PaymentStatus{
		PaymentID:     paymentID,
		TransactionID: paymentID,
		Amount:        amount,
	}
	switch mapString(payment, "status") {
	case "captured":
		status.Status = types.PaymentStatusCompleted
		status.PaidAmount = amount
	case "refunded":
		status.Status = types.PaymentStatusRefunded
	case "failed":
		status.Status = types.PaymentStatusFailed
	case "authorized":
		status.Status = types.PaymentStatusProcessing
	default:
		status.Status = types.PaymentStatusPending
	}
	return status
}

// RefundPayment refunds a captured payment. The id must be the underlying
// payment id (pay_*); a link id alone has no refundable payment attached.
func (a *Adapter) RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal) (*gateway.RefundResult, error) {
	if len(paymentID) < 4 || paymentID[:4] != "pay_" {
		return nil, ierr.NewError("no completed payment exists for this link").
			WithHint("Only captured payments can be refunded").
			WithReportableDetails(map[string]any{"payment_id": paymentID}).
			Mark(ierr.ErrNotRefundable)
	}

	refundPaise := 0
	if amount != nil {
		refundPaise = int(amount.Mul(paiseUnit).IntPart())
	} else {
		payment, err := a.withTimeout(ctx, func() (map[string]interface{}, error) {
			return a.client.Payment.Fetch(paymentID, nil, nil)
		})
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to fetch payment for refund").
				WithReportableDetails(map[string]any{"payment_id": paymentID}).
				Mark(ierr.ErrGateway)
		}
		if mapString(payment, "status") != "captured" {
			return nil, ierr.NewError("payment is not in a refundable state").
				WithHint("Only captured payments can be refunded").
				WithReportableDetails(map[string]any{
					"payment_id": paymentID,
					"status":     mapString(payment, "status"),
				}).
				Mark(ierr.ErrNotRefundable)
		}
		refundPaise = int(mapInt64(payment, "amount"))
	}

	refund, err := a.withTimeout(ctx, func() (map[string]interface{}, error) {
		return a.client.Payment.Refund(paymentID, refundPaise, nil, nil)
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Razorpay refused the refund").
			WithReportableDetails(map[string]any{"payment_id": paymentID}).
			Mark(ierr.ErrGateway)
	}

	a.logger.Infow("created razorpay refund",
		"refund_id", mapString(refund, "id"),
		"payment_id", paymentID,
		"partial", amount != nil)

	return &gateway.RefundResult{
		RefundID:  mapString(refund, "id"),
		PaymentID: paymentID,
		Amount:    decimal.NewFromInt(int64(refundPaise)).Div(paiseUnit),
		Partial:   amount != nil,
		Status:    mapString(refund, "status"),
	}, nil
}

// withTimeout bounds a context-unaware SDK call with the adapter deadline
func (a *Adapter) withTimeout(ctx context.Context, call func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		value map[string]interface{}
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		value, err := call()
		ch <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.value, res.err
	}
}

func paymentMethodFromRazorpay(method string) types.PaymentMethodType {
	switch method {
	case "card":
		return types.PaymentMethodTypeCard
	case "upi":
		return types.PaymentMethodTypeUPI
	case "netbanking":
		return types.PaymentMethodTypeNetbanking
	case "wallet":
		return types.PaymentMethodTypeWallet
	default:
		return types.PaymentMethodTypeOnline
	}
}

func mapString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func mapInt64(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}
