package v1

import (
	"io"
	"net/http"
	"time"

	"github.com/finvoice/finvoice/internal/api/dto"
	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/service"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

func (h *PaymentHandler) CreatePaymentLink(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreatePaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreatePaymentLink(ctx, req)
	if err != nil {
		h.log.Error("Failed to create payment link", "error", err, "invoice_id", req.InvoiceID)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PaymentHandler) GetPaymentLink(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.GetPaymentLink(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) ListPaymentLinks(c *gin.Context) {
	ctx := c.Request.Context()

	filter := &paymentlink.Filter{
		Gateway:    types.PaymentGatewayType(c.Query("gateway")),
		InvoiceID:  c.Query("invoice_id"),
		PayerEmail: c.Query("payer_email"),
	}
	if from, ok := parseTimeQuery(c, "from"); ok {
		filter.From = from
	}
	if to, ok := parseTimeQuery(c, "to"); ok {
		filter.To = to
	}

	resp, err := h.service.ListPaymentLinks(ctx, filter)
	if err != nil {
		h.log.Error("Failed to list payment links", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleWebhook receives a provider callback, verifies it, and reconciles
// the payment. Providers retry on non-2xx; anything we reconciled, even to
// a no-op, acknowledges with 200.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	provider := types.PaymentGatewayType(c.Param("gateway"))
	if err := provider.Validate(); err != nil {
		c.Error(err)
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader(provider.SignatureHeader())

	resp, err := h.service.ProcessWebhook(ctx, provider, payload, signature)
	if err != nil {
		h.log.Error("Failed to process webhook", "error", err, "gateway", provider)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"data":     resp,
	})
}

func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	ctx := c.Request.Context()

	provider := types.PaymentGatewayType(c.Param("gateway"))
	if err := provider.Validate(); err != nil {
		c.Error(err)
		return
	}

	status, err := h.service.GetPaymentStatus(ctx, provider, c.Param("paymentId"))
	if err != nil {
		h.log.Error("Failed to fetch payment status", "error", err, "gateway", provider)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RefundPayment(ctx, req)
	if err != nil {
		h.log.Error("Failed to refund payment", "error", err, "gateway", req.Gateway)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) GetPaymentAnalytics(c *gin.Context) {
	ctx := c.Request.Context()

	var provider *types.PaymentGatewayType
	if g := c.Query("gateway"); g != "" {
		p := types.PaymentGatewayType(g)
		if err := p.Validate(); err != nil {
			c.Error(err)
			return
		}
		provider = lo.ToPtr(p)
	}

	from, _ := parseTimeQuery(c, "from")
	to, _ := parseTimeQuery(c, "to")

	resp, err := h.service.GetPaymentAnalytics(ctx, provider, from, to)
	if err != nil {
		h.log.Error("Failed to compute payment analytics", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if t, err = time.Parse(time.DateOnly, raw); err != nil {
			return nil, false
		}
	}
	return &t, true
}
