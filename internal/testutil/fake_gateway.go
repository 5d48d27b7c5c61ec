package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/gateway"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/shopspring/decimal"
)

// FakeGateway is a scripted gateway.Gateway for orchestrator tests. Webhook
// payloads are not parsed; each ProcessWebhook call pops the next scripted
// status.
type FakeGateway struct {
	Provider types.PaymentGatewayType

	mu       sync.Mutex
	links    int
	statuses []*gateway.PaymentStatus

	// CreateErr makes CreatePaymentLink fail when set
	CreateErr error
	// RefundResult is returned by RefundPayment when set
	RefundResult *gateway.RefundResult
}

var _ gateway.Gateway = (*FakeGateway)(nil)

// NewFakeGateway creates a fake adapter registered under the given provider
func NewFakeGateway(provider types.PaymentGatewayType) *FakeGateway {
	return &FakeGateway{Provider: provider}
}

func (g *FakeGateway) Name() types.PaymentGatewayType {
	return g.Provider
}

func (g *FakeGateway) CreatePaymentLink(ctx context.Context, params gateway.CreateLinkParams) (*paymentlink.PaymentLink, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.CreateErr != nil {
		return nil, g.CreateErr
	}

	g.links++
	linkID := fmt.Sprintf("fake_link_%d", g.links)

	return &paymentlink.PaymentLink{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_LINK),
		GatewayLinkID: linkID,
		Gateway:       g.Provider,
		InvoiceID:     params.InvoiceID,
		URL:           "https://pay.example.com/" + linkID,
		Amount:        params.Amount,
		Currency:      params.Currency,
		LinkStatus:    types.PaymentLinkStatusActive,
		PayerEmail:    params.PayerEmail,
		PayerName:     params.PayerName,
		AllowPartial:  params.AllowPartial,
		ExpiresAt:     params.ExpiresAt,
		Metadata:      params.Metadata,
		BaseModel:     types.GetDefaultBaseModel(),
	}, nil
}

// ScriptWebhook queues the status the next ProcessWebhook call returns
func (g *FakeGateway) ScriptWebhook(status *gateway.PaymentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses = append(g.statuses, status)
}

func (g *FakeGateway) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*gateway.PaymentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.statuses) == 0 {
		return nil, ierr.NewError("no scripted webhook status").
			WithHint("Script a webhook status before delivering one").
			Mark(ierr.ErrUnsupportedEvent)
	}

	status := g.statuses[0]
	g.statuses = g.statuses[1:]
	return status, nil
}

func (g *FakeGateway) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.PaymentStatus, error) {
	return &gateway.PaymentStatus{
		PaymentID: paymentID,
		Status:    types.PaymentStatusPending,
	}, nil
}

func (g *FakeGateway) RefundPayment(ctx context.Context, paymentID string, amount *decimal.Decimal) (*gateway.RefundResult, error) {
	if g.RefundResult != nil {
		return g.RefundResult, nil
	}

	result := &gateway.RefundResult{
		RefundID:  "fake_rfnd_" + paymentID,
		PaymentID: paymentID,
		Status:    "processed",
		Partial:   amount != nil,
	}
	if amount != nil {
		result.Amount = *amount
	}
	return result, nil
}
