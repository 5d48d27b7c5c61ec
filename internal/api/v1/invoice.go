package v1

import (
	"net/http"

	"github.com/finvoice/finvoice/internal/api/dto"
	"github.com/finvoice/finvoice/internal/domain/invoice"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/service"
	"github.com/finvoice/finvoice/internal/types"
	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	service service.InvoiceService
	log     *logger.Logger
}

func NewInvoiceHandler(service service.InvoiceService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: service, log: log}
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateInvoice(ctx, req)
	if err != nil {
		h.log.Error("Failed to create invoice", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.GetInvoice(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	ctx := c.Request.Context()

	filter := &invoice.Filter{
		CustomerID:    c.Query("customer_id"),
		InvoiceStatus: types.InvoiceStatus(c.Query("status")),
		PaymentStatus: types.InvoicePaymentStatus(c.Query("payment_status")),
	}

	resp, err := h.service.ListInvoices(ctx, filter)
	if err != nil {
		h.log.Error("Failed to list invoices", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateInvoice(ctx, c.Param("id"), req)
	if err != nil {
		h.log.Error("Failed to update invoice", "error", err, "invoice_id", c.Param("id"))
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.SendInvoice(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to send invoice", "error", err, "invoice_id", c.Param("id"))
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RecordPayment(ctx, c.Param("id"), req)
	if err != nil {
		h.log.Error("Failed to record payment", "error", err, "invoice_id", c.Param("id"))
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.CancelInvoice(ctx, c.Param("id"))
	if err != nil {
		h.log.Error("Failed to cancel invoice", "error", err, "invoice_id", c.Param("id"))
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) ApplyLateFee(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ApplyLateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("rule_id is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ApplyLateFee(ctx, c.Param("id"), req)
	if err != nil {
		h.log.Error("Failed to apply late fee", "error", err, "invoice_id", c.Param("id"))
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
