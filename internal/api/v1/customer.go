package v1

import (
	"net/http"

	"github.com/finvoice/finvoice/internal/api/dto"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/service"
	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	service service.CustomerService
	log     *logger.Logger
}

func NewCustomerHandler(service service.CustomerService, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{service: service, log: log}
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateCustomer(ctx, req)
	if err != nil {
		h.log.Error("Failed to create customer", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.GetCustomer(ctx, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.ListCustomers(ctx)
	if err != nil {
		h.log.Error("Failed to list customers", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateCustomer(ctx, c.Param("id"), req)
	if err != nil {
		h.log.Error("Failed to update customer", "error", err, "customer_id", c.Param("id"))
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.service.DeleteCustomer(ctx, c.Param("id")); err != nil {
		h.log.Error("Failed to delete customer", "error", err, "customer_id", c.Param("id"))
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "customer deleted successfully"})
}
