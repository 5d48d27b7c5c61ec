package payu

// EventType represents the type of PayU webhook event
type EventType string

const (
	EventPaymentSuccess EventType = "payment.success"
	EventPaymentFailed  EventType = "payment.failed"
	EventOrderExpired   EventType = "order.expired"
	EventRefundComplete EventType = "refund.completed"
)

// WebhookEvent is the PayU webhook envelope. PayU does not sign its
// webhooks, so the adapter never trusts the body for money movement and
// re-fetches the order from the API instead.
type WebhookEvent struct {
	Event     EventType `json:"event"`
	Order     Order     `json:"order"`
	Refund    *Refund   `json:"refund,omitempty"`
	CreatedAt int64     `json:"created_at"`
}

// Order is a PayU order as returned by the orders API
type Order struct {
	OrderID       string `json:"order_id"`
	MerchantTxnID string `json:"merchant_txn_id"`
	Amount        string `json:"amount"` // decimal string, rupees
	AmountPaid    string `json:"amount_paid"`
	Currency      string `json:"currency"`
	Status        string `json:"status"` // created, authorized, captured, failed, expired, refunded
	PaymentURL    string `json:"payment_url"`
	PaymentMode   string `json:"payment_mode"` // CC, DC, UPI, NB, WALLET
	TransactionID string `json:"transaction_id"`
	Email         string `json:"email"`
	ErrorMessage  string `json:"error_message"`
	CreatedAt     int64  `json:"created_at"`
}

// Refund is a PayU refund record
type Refund struct {
	RefundID  string `json:"refund_id"`
	OrderID   string `json:"order_id"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type createOrderRequest struct {
	MerchantTxnID string `json:"merchant_txn_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Description   string `json:"description"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	SuccessURL    string `json:"success_url,omitempty"`
	FailureURL    string `json:"failure_url,omitempty"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
}

type refundRequest struct {
	Amount string `json:"amount,omitempty"`
}
