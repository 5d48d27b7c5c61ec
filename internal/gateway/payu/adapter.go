// Package payu adapts the PayU orders REST API to the gateway contract.
// PayU has no webhook signature, so every money-moving event is confirmed
// against the orders API before it is reported upstream. Payments settle in
// two steps: the payer authorizes through the hosted page, and the adapter
// captures the authorized order when the success webhook arrives.
package payu

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/finvoice/finvoice/internal/config"
	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/gateway"
	"github.com/finvoice/finvoice/internal/httpclient"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

// Adapter implements gateway.Gateway over the PayU orders API
type Adapter struct {
	client  httpclient.Client
	cfg     config.PayUConfig
	timeout time.Duration
	logger  *logger.Logger
}

// NewAdapter creates a PayU adapter from configured credentials
func NewAdapter(cfg config.PayUConfig, client httpclient.Client, timeout time.Duration, logger *logger.Logger) *Adapter {
	return &Adapter{
		client:  client,
		cfg:     cfg,
		timeout: timeout,
		logger:  logger,
	}
}

// Name returns the provider this adapter binds
func (a *Adapter) Name() types.PaymentGatewayType {
	return types.PaymentGatewayTypePayU
}

func (a *Adapter) authHeaders() map[string]string {
	credentials := base64.StdEncoding.EncodeToString(
		[]byte(a.cfg.MerchantKey + ":" + a.cfg.MerchantSecret))
	return map[string]string{
		"Authorization": "Basic " + credentials,
		"Accept":        "application/json",
	}
}

// CreatePaymentLink creates a PayU order and returns its hosted payment page
func (a *Adapter) CreatePaymentLink(ctx context.Context, params gateway.CreateLinkParams) (*paymentlink.PaymentLink, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload := createOrderRequest{
		MerchantTxnID: params.InvoiceID,
		Amount:        params.Amount.StringFixed(2),
		Currency:      params.Currency,
		Description:   params.Description,
		Email:         params.PayerEmail,
		Name:          params.PayerName,
		SuccessURL:    params.SuccessURL,
		FailureURL:    params.CancelURL,
	}
	if params.ExpiresAt != nil {
		payload.ExpiresAt = params.ExpiresAt.Unix()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to encode order request").
			Mark(ierr.ErrInternal)
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     a.cfg.BaseURL + "/orders",
		Headers: a.authHeaders(),
		Body:    body,
	})
	if err != nil {
		a.logger.Errorw("failed to create payu order",
			"error", err,
			"invoice_id", params.InvoiceID)
		return nil, ierr.WithError(err).
			WithHint("Unable to create PayU order").
			WithReportableDetails(map[string]any{
				"invoice_id": params.InvoiceID,
			}).
			Mark(ierr.ErrGateway)
	}

	var order Order
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed order response from PayU").
			Mark(ierr.ErrGateway)
	}

	link := &paymentlink.PaymentLink{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_LINK),
		GatewayLinkID: order.OrderID,
		Gateway:       types.PaymentGatewayTypePayU,
		InvoiceID:     params.InvoiceID,
		URL:           order.PaymentURL,
		Amount:        params.Amount,
		Currency:      params.Currency,
		LinkStatus:    types.PaymentLinkStatusActive,
		PayerEmail:    params.PayerEmail,
		PayerName:     params.PayerName,
		AllowPartial:  false, // orders settle in full
		ExpiresAt:     params.ExpiresAt,
		Metadata:      params.Metadata,
		BaseModel:     types.GetDefaultBaseModel(),
	}

	a.logger.Infow("created payu order",
		"order_id", order.OrderID,
		"invoice_id", params.InvoiceID,
		"amount", params.Amount.String())

	return link, nil
}

// ProcessWebhook maps a PayU event. The body is unsigned, so the reported
// order state is re-read from the API; a success event additionally captures
// the authorized order.
func (a *Adapter) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*gateway.PaymentStatus, error) {
	_ = signature // PayU sends no signature header

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}
	if event.Order.OrderID == "" {
		return nil, ierr.NewError("webhook payload missing order id").
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}

	switch event.Event {
	case EventPaymentSuccess:
		order, err := a.fetchOrder(ctx, event.Order.OrderID)
		if err != nil {
			return nil, err
		}
		if order.Status == "authorized" {
			captured, err := a.captureOrder(ctx, order.OrderID)
			if err != nil {
				return nil, err
			}
			order = captured
		}
		if order.Status != "captured" {
			return nil, ierr.NewError("order is not captured").
				WithHint("Success webhook did not match the order state").
				WithReportableDetails(map[string]any{
					"order_id": order.OrderID,
					"status":   order.Status,
				}).
				Mark(ierr.ErrGateway)
		}
		return a.statusFromOrder(order, string(event.Event))

	case EventPaymentFailed:
		order, err := a.fetchOrder(ctx, event.Order.OrderID)
		if err != nil {
			return nil, err
		}
		result, mapErr := a.statusFromOrder(order, string(event.Event))
		if mapErr != nil {
			return nil, mapErr
		}
		result.Status = types.PaymentStatusFailed
		return result, nil

	case EventOrderExpired:
		amount, err := decimal.NewFromString(event.Order.Amount)
		if err != nil {
			amount = decimal.Zero
		}
		return &gateway.PaymentStatus{
			PaymentID: event.Order.OrderID,
			Status:    types.PaymentStatusCancelled,
			Amount:    amount,
			Metadata:  types.Metadata{"event_type": string(event.Event)},
		}, nil

	case EventRefundComplete:
		order, err := a.fetchOrder(ctx, event.Order.OrderID)
		if err != nil {
			return nil, err
		}
		result, mapErr := a.statusFromOrder(order, string(event.Event))
		if mapErr != nil {
			return nil, mapErr
		}
		if result.PaidAmount.IsPositive() {
			result.Status = types.PaymentStatusPartiallyRefunded
		} else {
			result.Status = types.PaymentStatusRefunded
		}
		if event.Refund != nil {
			result.Metadata["refund_id"] = event.Refund.RefundID
		}
		return result, nil

	default:
		return nil, ierr.NewError("unsupported payu event type").
			WithHint("Webhook event type is not handled").
			WithReportableDetails(map[string]any{
				"event_type": string(event.Event),
			}).
			Mark(ierr.ErrUnsupportedEvent)
	}
}

// GetPaymentStatus reads the order from the orders API. Transaction ids
// are accepted too and resolved through the transactions endpoint.
func (a *Adapter) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.PaymentStatus, error) {
	var (
		order *Order
		err   error
	)
	if strings.HasPrefix(paymentID, "txn_") {
		order, err = a.fetchOrderByTransaction(ctx, paymentID)
	} else {
		order, err = a.fetchOrder(ctx, paymentID)
	}
	if err != nil {
		return nil, err
	}
	return a.statusFromOrder(order, "")
}

func (a *Adapter) fetchOrder(ctx context.Context, orderID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		URL:     a.cfg.BaseURL + "/orders/" + orderID,
		Headers: a.authHeaders(),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to fetch order from PayU").
			WithReportableDetails(map[string]any{"order_id": orderID}).
			Mark(ierr.ErrGateway)
	}

	var order Order
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed order response from PayU").
			Mark(ierr.ErrGateway)
	}
	return &order, nil
}

func (a *Adapter) fetchOrderByTransaction(ctx context.Context, txnID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		URL:     a.cfg.BaseURL + "/transactions/" + txnID + "/order",
		Headers: a.authHeaders(),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to resolve transaction with PayU").
			WithReportableDetails(map[string]any{"transaction_id": txnID}).
			Mark(ierr.ErrGateway)
	}

	var order Order
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed order response from PayU").
			Mark(ierr.ErrGateway)
	}
	return &order, nil
}

func (a *Adapter) captureOrder(ctx context.Context, orderID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     a.cfg.BaseURL + "/orders/" + orderID + "/capture",
		Headers: a.authHeaders(),
	})
	if err != nil {
		a.logger.Errorw("failed to capture payu order",
			"error", err,
			"order_id", orderID)
		return nil, ierr.WithError(err).
			WithHint("Unable to capture PayU order").
			WithReportableDetails(map[string]any{"order_id": orderID}).
			Mark(ierr.ErrGateway)
	}

	var order Order
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed capture response from PayU").
			Mark(ierr.ErrGateway)
	}

	a.logger.Infow("captured payu order", "order_id", orderID)
	return &order, nil
}

func (a *Adapter) statusFromOrder(order *Order, eventType string) (*gateway.PaymentStatus, error) {
	amount, err := decimal.NewFromString(order.Amount)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed amount in order response").
			WithReportableDetails(map[string]any{"order_id": order.OrderID}).
			Mark(ierr.ErrGateway)
	}
	paid := decimal.Zero
	if order.AmountPaid != "" {
		paid, err = decimal.NewFromString(order.AmountPaid)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Malformed paid amount in order response").
				WithReportableDetails(map[string]any{"order_id": order.OrderID}).
				Mark(ierr.ErrGateway)
		}
	}

	status := &gateway.PaymentStatus{
		PaymentID:     order.OrderID,
		Amount:        amount,
		PaidAmount:    paid,
		TransactionID: order.TransactionID,
		Metadata:      types.Metadata{},
	}
	if eventType != "" {
		status.Metadata["event_type"] = eventType
	}

	switch order.Status {
	case "captured":
		status.Status = types.PaymentStatusCompleted
		if status.PaidAmount.IsZero() {
			status.PaidAmount = amount
		}
		paidAt := time.Unix(order.CreatedAt, 0).UTC()
		status.PaidAt = &paidAt
		method := paymentMethodFromPayU(order.PaymentMode)
		status.PaymentMethod = &method
	case "authorized":
		status.Status = types.PaymentStatusProcessing
	case "failed":
		status.Status = types.PaymentStatusFailed
	case "expired":
		status.Status = types.PaymentStatusCancelled
	case "refunded":
		status.Status = types.PaymentStatusRefunded
		status.PaidAmount = decimal.Zero
	default:
		status.Status = types.PaymentStatusPending
	}
	return status, nil
}

// RefundPayment refunds a captured order, partially when amount is given
func (a *Adapter) RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal) (*gateway.RefundResult, error) {
	order, err := a.fetchOrder(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if order.Status != "captured" {
		return nil, ierr.NewError("order is not in a refundable state").
			WithHint("Only captured orders can be refunded").
			WithReportableDetails(map[string]any{
				"order_id": paymentID,
				"status":   order.Status,
			}).
			Mark(ierr.ErrNotRefundable)
	}

	payload := refundRequest{}
	if amount != nil {
		payload.Amount = amount.StringFixed(2)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Unable to encode refund request").
			Mark(ierr.ErrInternal)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     a.cfg.BaseURL + "/orders/" + paymentID + "/refunds",
		Headers: a.authHeaders(),
		Body:    body,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("PayU refused the refund").
			WithReportableDetails(map[string]any{"order_id": paymentID}).
			Mark(ierr.ErrGateway)
	}

	var refund Refund
	if err := json.Unmarshal(resp.Body, &refund); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed refund response from PayU").
			Mark(ierr.ErrGateway)
	}

	refundAmount, err := decimal.NewFromString(refund.Amount)
	if err != nil {
		refundAmount = decimal.Zero
	}

	a.logger.Infow("created payu refund",
		"refund_id", refund.RefundID,
		"order_id", paymentID,
		"partial", amount != nil)

	return &gateway.RefundResult{
		RefundID:  refund.RefundID,
		PaymentID: paymentID,
		Amount:    refundAmount,
		Partial:   amount != nil,
		Status:    refund.Status,
	}, nil
}

func paymentMethodFromPayU(mode string) types.PaymentMethodType {
	switch mode {
	case "CC", "DC":
		return types.PaymentMethodTypeCard
	case "UPI":
		return types.PaymentMethodTypeUPI
	case "NB":
		return types.PaymentMethodTypeNetbanking
	case "WALLET":
		return types.PaymentMethodTypeWallet
	default:
		return types.PaymentMethodTypeOnline
	}
}
