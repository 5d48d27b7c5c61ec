package v1

import (
	"net/http"

	"github.com/finvoice/finvoice/internal/api/dto"
	ierr "github.com/finvoice/finvoice/internal/errors"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/service"
	"github.com/gin-gonic/gin"
)

type SchedulerHandler struct {
	service service.SchedulerService
	log     *logger.Logger
}

func NewSchedulerHandler(service service.SchedulerService, log *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{service: service, log: log}
}

func (h *SchedulerHandler) CreateReminderRule(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateReminderRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateReminderRule(ctx, req)
	if err != nil {
		h.log.Error("Failed to create reminder rule", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SchedulerHandler) ListReminderRules(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.ListReminderRules(ctx, c.Query("invoice_id"))
	if err != nil {
		h.log.Error("Failed to list reminder rules", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": resp, "total": len(resp)})
}

func (h *SchedulerHandler) CreateLateFeeRule(c *gin.Context) {
	ctx := c.Request.Context()
	var req dto.CreateLateFeeRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateLateFeeRule(ctx, req)
	if err != nil {
		h.log.Error("Failed to create late fee rule", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SchedulerHandler) ListLateFeeRules(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.ListLateFeeRules(ctx)
	if err != nil {
		h.log.Error("Failed to list late fee rules", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": resp, "total": len(resp)})
}
