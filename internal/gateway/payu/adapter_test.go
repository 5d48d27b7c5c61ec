package payu

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/finvoice/finvoice/internal/config"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/httpclient"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns canned responses keyed by method and URL
type scriptedClient struct {
	responses map[string]*httpclient.Response
	requests  []*httpclient.Request
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{responses: make(map[string]*httpclient.Response)}
}

func (c *scriptedClient) script(method, url string, status int, body interface{}) {
	b, _ := json.Marshal(body)
	c.responses[method+" "+url] = &httpclient.Response{StatusCode: status, Body: b}
}

func (c *scriptedClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	c.requests = append(c.requests, req)
	resp, ok := c.responses[req.Method+" "+req.URL]
	if !ok {
		return nil, ierr.NewError("unscripted request: " + req.Method + " " + req.URL).
			Mark(ierr.ErrHTTPClient)
	}
	return resp, nil
}

func newTestAdapter(client httpclient.Client) *Adapter {
	return NewAdapter(config.PayUConfig{
		BaseURL:        "https://api.payu.test",
		MerchantKey:    "merchant_key",
		MerchantSecret: "merchant_secret",
	}, client, 5*time.Second, logger.NewNopLogger())
}

func TestProcessWebhook_SuccessCapturesAuthorizedOrder(t *testing.T) {
	client := newScriptedClient()
	adapter := newTestAdapter(client)

	client.script(http.MethodGet, "https://api.payu.test/orders/ord_1", 200, Order{
		OrderID:     "ord_1",
		Amount:      "11800.00",
		Currency:    "INR",
		Status:      "authorized",
		PaymentMode: "UPI",
		CreatedAt:   1767225600,
	})
	client.script(http.MethodPost, "https://api.payu.test/orders/ord_1/capture", 200, Order{
		OrderID:       "ord_1",
		Amount:        "11800.00",
		AmountPaid:    "11800.00",
		Currency:      "INR",
		Status:        "captured",
		PaymentMode:   "UPI",
		TransactionID: "txn_1",
		CreatedAt:     1767225600,
	})

	payload := []byte(`{"event": "payment.success", "order": {"order_id": "ord_1"}}`)
	status, err := adapter.ProcessWebhook(context.Background(), payload, "")
	require.NoError(t, err)

	assert.Equal(t, "ord_1", status.PaymentID)
	assert.Equal(t, types.PaymentStatusCompleted, status.Status)
	assert.True(t, status.Amount.Equal(decimal.NewFromInt(11800)))
	assert.True(t, status.PaidAmount.Equal(decimal.NewFromInt(11800)))
	assert.Equal(t, "txn_1", status.TransactionID)
	require.NotNil(t, status.PaymentMethod)
	assert.Equal(t, types.PaymentMethodTypeUPI, *status.PaymentMethod)

	// the authorized order was captured before being reported settled
	require.Len(t, client.requests, 2)
	assert.Equal(t, http.MethodPost, client.requests[1].Method)
}

func TestProcessWebhook_SuccessAlreadyCaptured(t *testing.T) {
	client := newScriptedClient()
	adapter := newTestAdapter(client)

	client.script(http.MethodGet, "https://api.payu.test/orders/ord_2", 200, Order{
		OrderID:    "ord_2",
		Amount:     "5000.00",
		AmountPaid: "5000.00",
		Status:     "captured",
		CreatedAt:  1767225600,
	})

	payload := []byte(`{"event": "payment.success", "order": {"order_id": "ord_2"}}`)
	status, err := adapter.ProcessWebhook(context.Background(), payload, "")
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusCompleted, status.Status)
	require.Len(t, client.requests, 1)
}

func TestProcessWebhook_SuccessMismatchedOrderState(t *testing.T) {
	client := newScriptedClient()
	adapter := newTestAdapter(client)

	// the webhook claims success but the API says the order failed
	client.script(http.MethodGet, "https://api.payu.test/orders/ord_3", 200, Order{
		OrderID: "ord_3",
		Amount:  "5000.00",
		Status:  "failed",
	})

	payload := []byte(`{"event": "payment.success", "order": {"order_id": "ord_3"}}`)
	_, err := adapter.ProcessWebhook(context.Background(), payload, "")
	assert.True(t, ierr.IsGateway(err))
}

func TestProcessWebhook_Failed(t *testing.T) {
	client := newScriptedClient()
	adapter := newTestAdapter(client)

	client.script(http.MethodGet, "https://api.payu.test/orders/ord_4", 200, Order{
		OrderID:      "ord_4",
		Amount:       "5000.00",
		Status:       "failed",
		ErrorMessage: "insufficient funds",
	})

	payload := []byte(`{"event": "payment.failed", "order": {"order_id": "ord_4"}}`)
	status, err := adapter.ProcessWebhook(context.Background(), payload, "")
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusFailed, status.Status)
	assert.True(t, status.Amount.Equal(decimal.NewFromInt(5000)))
}

func TestProcessWebhook_OrderExpired(t *testing.T) {
	client := newScriptedClient()
	adapter := newTestAdapter(client)

	payload := []byte(`{"event": "order.expired", "order": {"order_id": "ord_5", "amount": "750.50"}}`)
	status, err := adapter.ProcessWebhook(context.Background(), payload, "")
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusCancelled, status.Status)
	assert.True(t, status.Amount.Equal(decimal.RequireFromString("750.50")))
	// the expired path never touches the API
	assert.Empty(t, client.requests)
}

func TestProcessWebhook_MalformedPayload(t *testing.T) {
	adapter := newTestAdapter(newScriptedClient())

	_, err := adapter.ProcessWebhook(context.Background(), []byte(`not json`), "")
	assert.True(t, ierr.IsValidation(err))

	_, err = adapter.ProcessWebhook(context.Background(), []byte(`{"event": "payment.success", "order": {}}`), "")
	assert.True(t, ierr.IsValidation(err))
}

func TestProcessWebhook_UnsupportedEvent(t *testing.T) {
	adapter := newTestAdapter(newScriptedClient())

	payload := []byte(`{"event": "settlement.completed", "order": {"order_id": "ord_6"}}`)
	_, err := adapter.ProcessWebhook(context.Background(), payload, "")
	assert.True(t, ierr.IsUnsupportedEvent(err))
}

func TestGetPaymentStatus(t *testing.T) {
	client := newScriptedClient()
	adapter := newTestAdapter(client)

	client.script(http.MethodGet, "https://api.payu.test/orders/ord_7", 200, Order{
		OrderID: "ord_7",
		Amount:  "100.00",
		Status:  "created",
	})

	status, err := adapter.GetPaymentStatus(context.Background(), "ord_7")
	require.NoError(t, err)
	assert.Equal(t, types.PaymentStatusPending, status.Status)

	auth := client.requests[0].Headers["Authorization"]
	assert.NotEmpty(t, auth)
}

func TestGetPaymentStatusByTransactionID(t *testing.T) {
	client := newScriptedClient()
	adapter := newTestAdapter(client)

	client.script(http.MethodGet, "https://api.payu.test/transactions/txn_42/order", 200, Order{
		OrderID:       "ord_8",
		Amount:        "11800.00",
		AmountPaid:    "11800.00",
		Currency:      "INR",
		Status:        "captured",
		PaymentMode:   "UPI",
		TransactionID: "txn_42",
		CreatedAt:     1767225600,
	})

	status, err := adapter.GetPaymentStatus(context.Background(), "txn_42")
	require.NoError(t, err)
	assert.Equal(t, "ord_8", status.PaymentID)
	assert.Equal(t, "txn_42", status.TransactionID)
	assert.Equal(t, types.PaymentStatusCompleted, status.Status)
	assert.True(t, status.PaidAmount.Equal(decimal.NewFromInt(11800)))

	require.Len(t, client.requests, 1)
	assert.Equal(t, "https://api.payu.test/transactions/txn_42/order", client.requests[0].URL)
}
