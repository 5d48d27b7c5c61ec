package api

import (
	"net/http"

	"github.com/finvoice/finvoice/internal/api/cron"
	v1 "github.com/finvoice/finvoice/internal/api/v1"
	"github.com/finvoice/finvoice/internal/config"
	"github.com/finvoice/finvoice/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Invoice   *v1.InvoiceHandler
	Customer  *v1.CustomerHandler
	Payment   *v1.PaymentHandler
	Scheduler *v1.SchedulerHandler

	CronScheduler *cron.SchedulerHandler
}

func NewRouter(cfg *config.Configuration, handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigin))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	cronGroup := router.Group("/v1/cron")
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	customers := router.Group("/customers")
	{
		customers.POST("", handlers.Customer.CreateCustomer)
		customers.GET("", handlers.Customer.ListCustomers)
		customers.GET("/:id", handlers.Customer.GetCustomer)
		customers.PUT("/:id", handlers.Customer.UpdateCustomer)
		customers.DELETE("/:id", handlers.Customer.DeleteCustomer)
	}

	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.PUT("/:id", handlers.Invoice.UpdateInvoice)
		invoices.POST("/:id/send", handlers.Invoice.SendInvoice)
		invoices.POST("/:id/payments", handlers.Invoice.RecordPayment)
		invoices.POST("/:id/cancel", handlers.Invoice.CancelInvoice)
		invoices.POST("/:id/late-fees", handlers.Invoice.ApplyLateFee)
	}

	payments := router.Group("/payments")
	{
		payments.POST("/links", handlers.Payment.CreatePaymentLink)
		payments.GET("/links", handlers.Payment.ListPaymentLinks)
		payments.GET("/links/:id", handlers.Payment.GetPaymentLink)
		payments.GET("/analytics", handlers.Payment.GetPaymentAnalytics)
		payments.GET("/status/:gateway/:paymentId", handlers.Payment.GetPaymentStatus)
		payments.POST("/refund", handlers.Payment.RefundPayment)

		// Provider callbacks; each adapter verifies its own signature
		// scheme before anything is reconciled.
		payments.POST("/webhooks/:gateway", handlers.Payment.HandleWebhook)
	}

	rules := router.Group("/rules")
	{
		rules.POST("/reminders", handlers.Scheduler.CreateReminderRule)
		rules.GET("/reminders", handlers.Scheduler.ListReminderRules)
		rules.POST("/late-fees", handlers.Scheduler.CreateLateFeeRule)
		rules.GET("/late-fees", handlers.Scheduler.ListLateFeeRules)
	}
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	payments := router.Group("/payments")
	{
		payments.POST("/reminders/process", handlers.CronScheduler.ProcessReminders)
		payments.POST("/late-fees/process", handlers.CronScheduler.ProcessLateFees)
	}
}
