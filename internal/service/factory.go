package service

import (
	"github.com/finvoice/finvoice/internal/config"
	"github.com/finvoice/finvoice/internal/domain/customer"
	"github.com/finvoice/finvoice/internal/domain/invoice"
	"github.com/finvoice/finvoice/internal/domain/latefee"
	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	"github.com/finvoice/finvoice/internal/domain/reminder"
	"github.com/finvoice/finvoice/internal/gateway"
	"github.com/finvoice/finvoice/internal/httpclient"
	"github.com/finvoice/finvoice/internal/lock"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/publisher"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// Repositories
	CustomerRepo    customer.Repository
	InvoiceRepo     invoice.Repository
	PaymentLinkRepo paymentlink.Repository
	LateFeeRepo     latefee.Repository
	ReminderRepo    reminder.Repository

	// Gateways
	GatewayRegistry *gateway.Registry

	// Publishers
	EventPublisher publisher.EventPublisher

	// PaymentLocks serializes webhook reconciliation per payment link
	PaymentLocks *lock.KeyedMutex

	// http client
	Client httpclient.Client
}
