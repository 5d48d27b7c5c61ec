package service

import (
	"context"
	"time"

	"github.com/finvoice/finvoice/internal/api/dto"
	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/events"
	"github.com/finvoice/finvoice/internal/gateway"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PaymentService is the orchestrator over the gateway registry: it gates
// link creation behind fraud screening, reconciles webhook-reported provider
// state onto payment links and invoices, and aggregates settlement analytics.
type PaymentService interface {
	CreatePaymentLink(ctx context.Context, req dto.CreatePaymentLinkRequest) (*dto.PaymentLinkResponse, error)
	GetPaymentLink(ctx context.Context, id string) (*dto.PaymentLinkResponse, error)
	ListPaymentLinks(ctx context.Context, filter *paymentlink.Filter) (*dto.ListPaymentLinksResponse, error)
	// ProcessWebhook verifies and reconciles one provider callback. Delivery
	// is at-least-once: replaying a settled status is a no-op, never a
	// double credit.
	ProcessWebhook(ctx context.Context, provider types.PaymentGatewayType, payload []byte, signature string) (*dto.WebhookResponse, error)
	GetPaymentStatus(ctx context.Context, provider types.PaymentGatewayType, paymentID string) (*gateway.PaymentStatus, error)
	RefundPayment(ctx context.Context, req dto.RefundPaymentRequest) (*dto.RefundPaymentResponse, error)
	GetPaymentAnalytics(ctx context.Context, provider *types.PaymentGatewayType, from, to *time.Time) (*dto.PaymentAnalyticsResponse, error)
}

type paymentService struct {
	ServiceParams
	fraud FraudService
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(params ServiceParams, fraud FraudService) PaymentService {
	return &paymentService{
		ServiceParams: params,
		fraud:         fraud,
	}
}

func (s *paymentService) adapter(provider types.PaymentGatewayType) (gateway.Gateway, error) {
	adapter, ok := s.GatewayRegistry.Get(provider)
	if !ok {
		return nil, ierr.NewError("unknown payment gateway").
			WithHint("Gateway is not supported or not configured").
			WithReportableDetails(map[string]any{
				"gateway":    provider,
				"configured": s.GatewayRegistry.Names(),
			}).
			Mark(ierr.ErrUnknownGateway)
	}
	return adapter, nil
}

// CreatePaymentLink screens the payer, then delegates to the provider and
// durably records the link before returning it.
func (s *paymentService) CreatePaymentLink(ctx context.Context, req dto.CreatePaymentLinkRequest) (*dto.PaymentLinkResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	adapter, err := s.adapter(req.Gateway)
	if err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceStatus == types.InvoiceStatusCancelled {
		return nil, ierr.NewError("cannot collect payment on a cancelled invoice").
			WithHint("Cancelled invoices do not accept payments").
			Mark(ierr.ErrInvalidState)
	}
	if inv.IsFullyPaid() {
		return nil, ierr.NewError("invoice is already fully paid").
			WithHint("Invoice has no outstanding balance").
			Mark(ierr.ErrInvalidState)
	}

	cust, err := s.CustomerRepo.Get(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	payerEmail := req.PayerEmail
	if payerEmail == "" {
		payerEmail = cust.Email
	}

	amount := inv.RemainingBalance()
	if req.Amount != nil {
		if req.Amount.GreaterThan(inv.RemainingBalance()) {
			return nil, ierr.NewError("amount exceeds the invoice's remaining balance").
				WithHint("Payment link amount cannot exceed the outstanding balance").
				WithReportableDetails(map[string]any{
					"amount":            req.Amount.String(),
					"remaining_balance": inv.RemainingBalance().String(),
				}).
				Mark(ierr.ErrValidation)
		}
		amount = *req.Amount
	}

	screen, err := s.fraud.Screen(ctx, payerEmail, amount)
	if err != nil {
		return nil, err
	}
	if screen.Recommendation == types.FraudRecommendationDecline {
		return nil, ierr.NewError("transaction declined by fraud screening").
			WithHint("The transaction was declined by fraud screening").
			WithReportableDetails(map[string]any{
				"score":      screen.Score,
				"risk_level": screen.RiskLevel,
				"flags":      screen.Flags,
			}).
			Mark(ierr.ErrFraudDeclined)
	}

	link, err := adapter.CreatePaymentLink(ctx, gateway.CreateLinkParams{
		InvoiceID:    inv.ID,
		Amount:       amount,
		Currency:     inv.Currency,
		Description:  "Invoice " + inv.InvoiceNumber,
		PayerEmail:   payerEmail,
		PayerName:    cust.Name,
		SuccessURL:   req.SuccessURL,
		CancelURL:    req.CancelURL,
		ExpiresAt:    req.ExpiresAt,
		AllowPartial: req.AllowPartial,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if err := s.PaymentLinkRepo.Create(ctx, link); err != nil {
		s.Logger.Errorw("failed to store payment link",
			"error", err,
			"gateway_link_id", link.GatewayLinkID,
			"invoice_id", inv.ID)
		return nil, err
	}
	s.fraud.RecordAttempt(payerEmail)

	s.Logger.Infow("created payment link",
		"payment_link_id", link.ID,
		"gateway", link.Gateway,
		"invoice_id", inv.ID,
		"amount", amount.String())

	return &dto.PaymentLinkResponse{PaymentLink: link, Fraud: screen}, nil
}

func (s *paymentService) GetPaymentLink(ctx context.Context, id string) (*dto.PaymentLinkResponse, error) {
	link, err := s.PaymentLinkRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.PaymentLinkResponse{PaymentLink: link}, nil
}

func (s *paymentService) ListPaymentLinks(ctx context.Context, filter *paymentlink.Filter) (*dto.ListPaymentLinksResponse, error) {
	links, err := s.PaymentLinkRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.ListPaymentLinksResponse{
		Items: lo.Map(links, func(pl *paymentlink.PaymentLink, _ int) *dto.PaymentLinkResponse {
			return &dto.PaymentLinkResponse{PaymentLink: pl}
		}),
		Total: len(links),
	}, nil
}

// ProcessWebhook reconciles one provider callback onto the stored link and
// its invoice. Reconciliation for a given payment id is serialized under a
// keyed lock because providers redeliver webhooks.
func (s *paymentService) ProcessWebhook(ctx context.Context, provider types.PaymentGatewayType, payload []byte, signature string) (*dto.WebhookResponse, error) {
	adapter, err := s.adapter(provider)
	if err != nil {
		return nil, err
	}

	status, err := adapter.ProcessWebhook(ctx, payload, signature)
	if err != nil {
		return nil, err
	}

	unlock := s.PaymentLocks.Lock(string(provider) + ":" + status.PaymentID)
	defer unlock()

	link, err := s.resolveLink(ctx, provider, status)
	if err != nil {
		s.Logger.Errorw("webhook references unknown payment link",
			"gateway", provider,
			"payment_id", status.PaymentID,
			"invoice_id", status.InvoiceID)
		return nil, err
	}

	switch status.Status {
	case types.PaymentStatusCompleted:
		if err := s.reconcileCompleted(ctx, link, status); err != nil {
			return nil, err
		}
	case types.PaymentStatusFailed:
		if err := s.reconcileFailed(ctx, link, status); err != nil {
			return nil, err
		}
	case types.PaymentStatusCancelled:
		if link.LinkStatus == types.PaymentLinkStatusActive {
			link.LinkStatus = types.PaymentLinkStatusExpired
			if err := s.PaymentLinkRepo.Update(ctx, link); err != nil {
				return nil, err
			}
		}
	case types.PaymentStatusRefunded, types.PaymentStatusPartiallyRefunded:
		if err := s.reconcileRefunded(ctx, link, status); err != nil {
			return nil, err
		}
	default:
		return nil, ierr.NewError("webhook carried an unexpected payment status").
			WithReportableDetails(map[string]any{
				"gateway": provider,
				"status":  status.Status,
			}).
			Mark(ierr.ErrUnsupportedEvent)
	}

	return &dto.WebhookResponse{
		PaymentLinkID: link.ID,
		InvoiceID:     link.InvoiceID,
		Status:        status.Status,
	}, nil
}

// resolveLink finds the stored link for a webhook status. The provider id
// (link id or transaction id) wins; events that carry neither, such as a
// failure on a link payment whose notes only echo the invoice reference,
// resolve through the invoice id instead.
func (s *paymentService) resolveLink(ctx context.Context, provider types.PaymentGatewayType, status *gateway.PaymentStatus) (*paymentlink.PaymentLink, error) {
	link, err := s.PaymentLinkRepo.GetByGatewayLinkID(ctx, provider, status.PaymentID)
	if err == nil {
		return link, nil
	}
	if !ierr.IsNotFound(err) || status.InvoiceID == "" {
		return nil, err
	}

	links, listErr := s.PaymentLinkRepo.List(ctx, &paymentlink.Filter{
		Gateway:   provider,
		InvoiceID: status.InvoiceID,
	})
	if listErr != nil {
		return nil, listErr
	}
	// prefer the link still awaiting payment; otherwise the newest one
	for _, l := range links {
		if l.LinkStatus == types.PaymentLinkStatusActive {
			return l, nil
		}
	}
	if len(links) > 0 {
		return links[len(links)-1], nil
	}
	return nil, err
}

// reconcileCompleted credits the invoice with the newly paid delta. A replay
// of an already-settled status finds no delta and changes nothing.
func (s *paymentService) reconcileCompleted(ctx context.Context, link *paymentlink.PaymentLink, status *gateway.PaymentStatus) error {
	paid := status.PaidAmount
	if paid.IsZero() {
		paid = status.Amount
	}

	credit := paid.Sub(link.PaidAmount)
	if link.IsSettled() || !credit.IsPositive() {
		s.Logger.Infow("webhook replay ignored, link already settled",
			"payment_link_id", link.ID,
			"gateway_link_id", link.GatewayLinkID)
		return nil
	}

	inv, err := s.InvoiceRepo.Get(ctx, link.InvoiceID)
	if err != nil {
		return err
	}

	paidAt := time.Now().UTC()
	if status.PaidAt != nil {
		paidAt = *status.PaidAt
	}
	method := types.PaymentMethodTypeOnline
	if status.PaymentMethod != nil {
		method = *status.PaymentMethod
	}

	if err := inv.RecordPayment(credit, paidAt, method); err != nil {
		return err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	link.PaidAmount = paid
	link.PaymentMethod = &method
	link.CompletedAt = &paidAt
	if status.TransactionID != "" {
		link.TransactionID = lo.ToPtr(status.TransactionID)
	}
	if link.AllowPartial && paid.LessThan(link.Amount) {
		// keep collecting on the same link until it is paid out
		link.LinkStatus = types.PaymentLinkStatusActive
	} else {
		link.LinkStatus = types.PaymentLinkStatusCompleted
	}
	if err := s.PaymentLinkRepo.Update(ctx, link); err != nil {
		return err
	}

	s.Logger.Infow("reconciled completed payment",
		"payment_link_id", link.ID,
		"invoice_id", inv.ID,
		"credited", credit.String(),
		"payment_status", inv.PaymentStatus)

	s.publishPaymentCompleted(ctx, link, inv.InvoiceNumber, credit, inv.IsFullyPaid())
	return nil
}

// publishPaymentCompleted emits the downstream event. Best effort: a publish
// failure is logged and swallowed so the provider still gets its 2xx.
func (s *paymentService) publishPaymentCompleted(ctx context.Context, link *paymentlink.PaymentLink, invoiceNumber string, amount decimal.Decimal, fullyPaid bool) {
	event, err := events.NewEvent(events.TopicPaymentCompleted, events.PaymentCompletedPayload{
		InvoiceID:     link.InvoiceID,
		InvoiceNumber: invoiceNumber,
		PaymentLinkID: link.ID,
		Gateway:       link.Gateway,
		Amount:        amount,
		Currency:      link.Currency,
		PayerEmail:    link.PayerEmail,
		FullyPaid:     fullyPaid,
	})
	if err == nil {
		err = s.EventPublisher.Publish(ctx, event)
	}
	if err != nil {
		s.Logger.Errorw("failed to publish payment completed event",
			"error", err,
			"payment_link_id", link.ID,
			"invoice_id", link.InvoiceID)
	}
}

func (s *paymentService) reconcileFailed(ctx context.Context, link *paymentlink.PaymentLink, status *gateway.PaymentStatus) error {
	if link.LinkStatus == types.PaymentLinkStatusFailed || link.IsSettled() {
		return nil
	}

	inv, err := s.InvoiceRepo.Get(ctx, link.InvoiceID)
	if err != nil {
		return err
	}
	if err := inv.MarkPaymentFailed(); err != nil {
		return err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	link.LinkStatus = types.PaymentLinkStatusFailed
	if status.TransactionID != "" {
		link.TransactionID = lo.ToPtr(status.TransactionID)
	}
	if err := s.PaymentLinkRepo.Update(ctx, link); err != nil {
		return err
	}

	s.Logger.Warnw("reconciled failed payment",
		"payment_link_id", link.ID,
		"invoice_id", inv.ID)
	return nil
}

func (s *paymentService) reconcileRefunded(ctx context.Context, link *paymentlink.PaymentLink, status *gateway.PaymentStatus) error {
	link.LinkStatus = types.PaymentLinkStatusPartiallyRefunded
	if status.Status == types.PaymentStatusRefunded {
		link.LinkStatus = types.PaymentLinkStatusRefunded

		inv, err := s.InvoiceRepo.Get(ctx, link.InvoiceID)
		if err != nil {
			return err
		}
		inv.MarkPaymentRefunded()
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
	}
	return s.PaymentLinkRepo.Update(ctx, link)
}

// GetPaymentStatus queries the provider directly, an idempotent read
func (s *paymentService) GetPaymentStatus(ctx context.Context, provider types.PaymentGatewayType, paymentID string) (*gateway.PaymentStatus, error) {
	adapter, err := s.adapter(provider)
	if err != nil {
		return nil, err
	}
	return adapter.GetPaymentStatus(ctx, paymentID)
}

// RefundPayment refunds through the provider, then downgrades the stored
// link to refunded or partially_refunded.
func (s *paymentService) RefundPayment(ctx context.Context, req dto.RefundPaymentRequest) (*dto.RefundPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	adapter, err := s.adapter(req.Gateway)
	if err != nil {
		return nil, err
	}

	unlock := s.PaymentLocks.Lock(string(req.Gateway) + ":" + req.PaymentID)
	defer unlock()

	link, err := s.PaymentLinkRepo.GetByGatewayLinkID(ctx, req.Gateway, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if !link.IsSettled() || link.LinkStatus == types.PaymentLinkStatusRefunded {
		return nil, ierr.NewError("payment link has no refundable payment").
			WithHint("Only completed payments can be refunded").
			WithReportableDetails(map[string]any{
				"payment_link_id": link.ID,
				"link_status":     link.LinkStatus,
			}).
			Mark(ierr.ErrNotRefundable)
	}

	// providers refund against the transaction, not the link
	refundTarget := link.GatewayLinkID
	if link.TransactionID != nil {
		refundTarget = *link.TransactionID
	}

	result, err := adapter.RefundPayment(ctx, refundTarget, req.Amount)
	if err != nil {
		return nil, err
	}

	if req.Amount != nil && req.Amount.LessThan(link.PaidAmount) {
		link.LinkStatus = types.PaymentLinkStatusPartiallyRefunded
	} else {
		link.LinkStatus = types.PaymentLinkStatusRefunded

		inv, err := s.InvoiceRepo.Get(ctx, link.InvoiceID)
		if err != nil {
			return nil, err
		}
		inv.MarkPaymentRefunded()
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return nil, err
		}
	}
	if err := s.PaymentLinkRepo.Update(ctx, link); err != nil {
		return nil, err
	}

	s.Logger.Infow("refunded payment",
		"payment_link_id", link.ID,
		"refund_id", result.RefundID,
		"partial", result.Partial)

	return &dto.RefundPaymentResponse{
		RefundID:  result.RefundID,
		PaymentID: req.PaymentID,
		Amount:    result.Amount,
		Partial:   result.Partial,
		Status:    result.Status,
	}, nil
}

// GetPaymentAnalytics aggregates stored links into per-provider success
// rate, average settlement days, and average amount over an optional window.
func (s *paymentService) GetPaymentAnalytics(ctx context.Context, provider *types.PaymentGatewayType, from, to *time.Time) (*dto.PaymentAnalyticsResponse, error) {
	filter := &paymentlink.Filter{From: from, To: to}
	if provider != nil {
		filter.Gateway = *provider
	}
	links, err := s.PaymentLinkRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	grouped := lo.GroupBy(links, func(pl *paymentlink.PaymentLink) types.PaymentGatewayType {
		return pl.Gateway
	})

	response := &dto.PaymentAnalyticsResponse{From: from, To: to}
	for gw, group := range grouped {
		analytics := dto.GatewayAnalytics{
			Gateway:    gw,
			TotalLinks: len(group),
		}

		amountSum := decimal.Zero
		settlementDays := decimal.Zero
		for _, pl := range group {
			amountSum = amountSum.Add(pl.Amount)
			if pl.CompletedAt != nil {
				analytics.CompletedLinks++
				days := decimal.NewFromFloat(pl.CompletedAt.Sub(pl.CreatedAt).Hours() / 24)
				settlementDays = settlementDays.Add(days)
			}
		}

		total := decimal.NewFromInt(int64(len(group)))
		analytics.AvgAmount = amountSum.Div(total).Round(2)
		analytics.SuccessRate = decimal.NewFromInt(int64(analytics.CompletedLinks)).
			Div(total).Mul(decimal.NewFromInt(100)).Round(2)
		if analytics.CompletedLinks > 0 {
			analytics.AvgSettlementDays = settlementDays.
				Div(decimal.NewFromInt(int64(analytics.CompletedLinks))).Round(2)
		}

		response.Gateways = append(response.Gateways, analytics)
	}
	return response, nil
}
