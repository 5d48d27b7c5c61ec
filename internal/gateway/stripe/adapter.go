// Package stripe adapts Stripe hosted checkout to the gateway contract.
// A payment link is a checkout session; completion arrives through the
// `checkout.session.completed` webhook after the payer finishes the hosted
// redirect flow. Stripe reports amounts in the smallest currency unit, so
// this adapter converts to decimal currency at the boundary.
package stripe

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/finvoice/finvoice/internal/config"
	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/gateway"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var minorUnit = decimal.NewFromInt(100)

// Adapter implements gateway.Gateway over the Stripe API
type Adapter struct {
	client  *stripe.Client
	cfg     config.StripeConfig
	timeout time.Duration
	logger  *logger.Logger
}

// NewAdapter creates a Stripe adapter from configured credentials
func NewAdapter(cfg config.StripeConfig, timeout time.Duration, logger *logger.Logger) *Adapter {
	return &Adapter{
		client:  stripe.NewClient(cfg.SecretKey, nil),
		cfg:     cfg,
		timeout: timeout,
		logger:  logger,
	}
}

// Name returns the provider this adapter binds
func (a *Adapter) Name() types.PaymentGatewayType {
	return types.PaymentGatewayTypeStripe
}

// CreatePaymentLink creates a hosted checkout session for the invoice amount
func (a *Adapter) CreatePaymentLink(ctx context.Context, params gateway.CreateLinkParams) (*paymentlink.PaymentLink, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	amountCents := params.Amount.Mul(minorUnit).IntPart()

	metadata := map[string]string{
		"invoice_id": params.InvoiceID,
	}
	for k, v := range params.Metadata {
		metadata[k] = v
	}

	successURL := params.SuccessURL
	if successURL == "" {
		successURL = a.cfg.SuccessURL
	}
	cancelURL := params.CancelURL
	if cancelURL == "" {
		cancelURL = a.cfg.CancelURL
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(params.Currency)),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name:        stripe.String(params.Description),
						Description: stripe.String("Invoice " + params.InvoiceID),
					},
					UnitAmount: stripe.Int64(amountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:          stripe.String("payment"),
		SuccessURL:    stripe.String(successURL),
		CancelURL:     stripe.String(cancelURL),
		CustomerEmail: stripe.String(params.PayerEmail),
		Metadata:      metadata,
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if params.ExpiresAt != nil {
		sessionParams.ExpiresAt = stripe.Int64(params.ExpiresAt.Unix())
	}

	session, err := a.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		a.logger.Errorw("failed to create Stripe checkout session",
			"error", err,
			"invoice_id", params.InvoiceID)
		return nil, ierr.WithError(err).
			WithHint("Unable to create Stripe checkout session").
			WithReportableDetails(map[string]any{
				"invoice_id": params.InvoiceID,
			}).
			Mark(ierr.ErrGateway)
	}

	link := &paymentlink.PaymentLink{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_LINK),
		GatewayLinkID: session.ID,
		Gateway:       types.PaymentGatewayTypeStripe,
		InvoiceID:     params.InvoiceID,
		URL:           session.URL,
		Amount:        params.Amount,
		Currency:      params.Currency,
		LinkStatus:    types.PaymentLinkStatusActive,
		PayerEmail:    params.PayerEmail,
		PayerName:     params.PayerName,
		AllowPartial:  false, // checkout sessions collect the full amount
		ExpiresAt:     params.ExpiresAt,
		Metadata:      params.Metadata,
		BaseModel:     types.GetDefaultBaseModel(),
	}

	a.logger.Infow("created stripe checkout session",
		"session_id", session.ID,
		"invoice_id", params.InvoiceID,
		"amount", params.Amount.String())

	return link, nil
}

// ProcessWebhook verifies the stripe-signature header and maps the event
func (a *Adapter) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*gateway.PaymentStatus, error) {
	if signature == "" {
		return nil, ierr.NewError("missing stripe signature").
			WithHint("The stripe-signature header is required").
			Mark(ierr.ErrSignatureInvalid)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, a.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		a.logger.Errorw("stripe webhook verification failed", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrSignatureInvalid)
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Malformed checkout session payload").
				Mark(ierr.ErrValidation)
		}
		amount := decimal.NewFromInt(session.AmountTotal).Div(minorUnit)
		paidAt := time.Unix(event.Created, 0).UTC()
		status := &gateway.PaymentStatus{
			PaymentID:  session.ID,
			Status:     types.PaymentStatusCompleted,
			Amount:     amount,
			PaidAmount: amount,
			PaidAt:     &paidAt,
			Metadata:   types.Metadata{"event_type": string(event.Type)},
		}
		if session.PaymentIntent != nil {
			status.TransactionID = session.PaymentIntent.ID
		}
		method := types.PaymentMethodTypeCard
		status.PaymentMethod = &method
		return status, nil

	case "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Malformed checkout session payload").
				Mark(ierr.ErrValidation)
		}
		return &gateway.PaymentStatus{
			PaymentID: session.ID,
			Status:    types.PaymentStatusCancelled,
			Amount:    decimal.NewFromInt(session.AmountTotal).Div(minorUnit),
			Metadata:  types.Metadata{"event_type": string(event.Type)},
		}, nil

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Malformed payment intent payload").
				Mark(ierr.ErrValidation)
		}
		return &gateway.PaymentStatus{
			PaymentID:     intent.ID,
			Status:        types.PaymentStatusFailed,
			Amount:        decimal.NewFromInt(intent.Amount).Div(minorUnit),
			TransactionID: intent.ID,
			Metadata:      types.Metadata{"event_type": string(event.Type)},
		}, nil

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Malformed charge payload").
				Mark(ierr.ErrValidation)
		}
		status := types.PaymentStatusPartiallyRefunded
		if charge.AmountRefunded >= charge.Amount {
			status = types.PaymentStatusRefunded
		}
		result := &gateway.PaymentStatus{
			PaymentID:  charge.ID,
			Status:     status,
			Amount:     decimal.NewFromInt(charge.Amount).Div(minorUnit),
			PaidAmount: decimal.NewFromInt(charge.Amount - charge.AmountRefunded).Div(minorUnit),
			Metadata:   types.Metadata{"event_type": string(event.Type)},
		}
		if charge.PaymentIntent != nil {
			result.TransactionID = charge.PaymentIntent.ID
		}
		return result, nil

	default:
		return nil, ierr.NewError("unsupported stripe event type").
			WithHint("Webhook event type is not handled").
			WithReportableDetails(map[string]any{
				"event_type": string(event.Type),
			}).
			Mark(ierr.ErrUnsupportedEvent)
	}
}

// GetPaymentStatus retrieves the current state of a checkout session or
// payment intent, whichever kind of id the caller holds.
func (a *Adapter) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.PaymentStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if strings.HasPrefix(paymentID, "pi_") {
		intent, err := a.client.V1PaymentIntents.Retrieve(ctx, paymentID, nil)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to retrieve Stripe payment intent").
				WithReportableDetails(map[string]any{"payment_id": paymentID}).
				Mark(ierr.ErrGateway)
		}
		return a.statusFromIntent(intent), nil
	}

	params := &stripe.CheckoutSessionRetrieveParams{
		Expand: []*string{stripe.String("payment_intent")},
	}
	session, err := a.client.V1CheckoutSessions.Retrieve(ctx, paymentID, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to retrieve Stripe checkout session").
			WithReportableDetails(map[string]any{"payment_id": paymentID}).
			Mark(ierr.ErrGateway)
	}

	status := &gateway.PaymentStatus{
		PaymentID: session.ID,
		Amount:    decimal.NewFromInt(session.AmountTotal).Div(minorUnit),
	}
	switch session.Status {
	case stripe.CheckoutSessionStatusComplete:
		status.Status = types.PaymentStatusCompleted
		status.PaidAmount = status.Amount
	case stripe.CheckoutSessionStatusExpired:
		status.Status = types.PaymentStatusCancelled
	default:
		status.Status = types.PaymentStatusPending
	}
	if session.PaymentIntent != nil {
		status.TransactionID = session.PaymentIntent.ID
	}
	return status, nil
}

func (a *Adapter) statusFromIntent(intent *stripe.PaymentIntent) *gateway.PaymentStatus {
	status := &gateway.PaymentStatus{
		PaymentID:     intent.ID,
		TransactionID: intent.ID,
		Amount:        decimal.NewFromInt(intent.Amount).Div(minorUnit),
	}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		status.Status = types.PaymentStatusCompleted
		status.PaidAmount = decimal.NewFromInt(intent.AmountReceived).Div(minorUnit)
	case stripe.PaymentIntentStatusProcessing:
		status.Status = types.PaymentStatusProcessing
	case stripe.PaymentIntentStatusCanceled:
		status.Status = types.PaymentStatusCancelled
	default:
		status.Status = types.PaymentStatusPending
	}
	return status
}

// RefundPayment refunds a completed payment, partially when amount is given
func (a *Adapter) RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal) (*gateway.RefundResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	paymentIntentID := paymentID
	if !strings.HasPrefix(paymentID, "pi_") {
		params := &stripe.CheckoutSessionRetrieveParams{
			Expand: []*string{stripe.String("payment_intent")},
		}
		session, err := a.client.V1CheckoutSessions.Retrieve(ctx, paymentID, params)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Unable to resolve checkout session for refund").
				WithReportableDetails(map[string]any{"payment_id": paymentID}).
				Mark(ierr.ErrGateway)
		}
		if session.PaymentIntent == nil {
			return nil, ierr.NewError("no completed payment exists for this link").
				WithHint("Only completed payments can be refunded").
				WithReportableDetails(map[string]any{"payment_id": paymentID}).
				Mark(ierr.ErrNotRefundable)
		}
		paymentIntentID = session.PaymentIntent.ID
	}

	refundParams := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	if amount != nil {
		refundParams.Amount = stripe.Int64(amount.Mul(minorUnit).IntPart())
	}

	refund, err := a.client.V1Refunds.Create(ctx, refundParams)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stripe refused the refund").
			WithReportableDetails(map[string]any{"payment_id": paymentID}).
			Mark(ierr.ErrGateway)
	}

	a.logger.Infow("created stripe refund",
		"refund_id", refund.ID,
		"payment_intent_id", paymentIntentID,
		"partial", amount != nil)

	return &gateway.RefundResult{
		RefundID:  refund.ID,
		PaymentID: paymentID,
		Amount:    decimal.NewFromInt(refund.Amount).Div(minorUnit),
		Partial:   amount != nil,
		Status:    string(refund.Status),
	}, nil
}
