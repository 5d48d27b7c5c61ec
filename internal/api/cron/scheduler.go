package cron

import (
	"net/http"

	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/service"
	"github.com/gin-gonic/gin"
)

// SchedulerHandler exposes the reminder and late fee sweeps as cron
// endpoints so an external scheduler can drive them.
type SchedulerHandler struct {
	schedulerService service.SchedulerService
	log              *logger.Logger
}

func NewSchedulerHandler(schedulerService service.SchedulerService, log *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		schedulerService: schedulerService,
		log:              log,
	}
}

func (h *SchedulerHandler) ProcessReminders(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := h.schedulerService.ProcessReminders(ctx)
	if err != nil {
		h.log.Error("Reminder sweep failed", "error", err)
		c.Error(err)
		return
	}

	h.log.Infow("reminder sweep completed",
		"invoices_scanned", resp.InvoicesScanned,
		"reminders_sent", resp.RemindersSent,
		"failures_tolerated", resp.FailuresTolerated,
	)
	c.JSON(http.StatusOK, resp)
}

func (h *SchedulerHandler) ProcessLateFees(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := h.schedulerService.ProcessLateFees(ctx)
	if err != nil {
		h.log.Error("Late fee sweep failed", "error", err)
		c.Error(err)
		return
	}

	h.log.Infow("late fee sweep completed",
		"invoices_scanned", resp.InvoicesScanned,
		"invoices_overdue", resp.InvoicesOverdue,
		"late_fees_applied", resp.LateFeesApplied,
		"failures_tolerated", resp.FailuresTolerated,
	)
	c.JSON(http.StatusOK, resp)
}
