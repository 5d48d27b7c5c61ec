package testutil

import (
	"context"
	"time"

	"github.com/finvoice/finvoice/internal/config"
	"github.com/finvoice/finvoice/internal/domain/customer"
	"github.com/finvoice/finvoice/internal/domain/invoice"
	"github.com/finvoice/finvoice/internal/domain/latefee"
	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	"github.com/finvoice/finvoice/internal/domain/reminder"
	"github.com/finvoice/finvoice/internal/gateway"
	"github.com/finvoice/finvoice/internal/lock"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	CustomerRepo    customer.Repository
	InvoiceRepo     invoice.Repository
	PaymentLinkRepo paymentlink.Repository
	LateFeeRepo     latefee.Repository
	ReminderRepo    reminder.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	publisher *InMemoryEventPublisher
	registry  *gateway.Registry
	locks     *lock.KeyedMutex
	logger    *logger.Logger
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	s.logger = logger.NewNopLogger()
	s.config = &config.Configuration{
		Logging: config.LoggingConfig{Level: "info"},
		Seller: config.SellerConfig{
			Name:      "Test Seller Pvt Ltd",
			GSTIN:     "29ABCDE1234F1Z5",
			StateCode: "29",
			Currency:  "INR",
		},
		Gateways: config.GatewaysConfig{
			Timeout: 10 * time.Second,
		},
		Fraud: config.FraudConfig{
			HighAmountThreshold: 100000,
			VelocityLimit:       5,
			VelocityWindow:      time.Hour,
		},
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		CustomerRepo:    NewInMemoryCustomerStore(),
		InvoiceRepo:     NewInMemoryInvoiceStore(),
		PaymentLinkRepo: NewInMemoryPaymentLinkStore(),
		LateFeeRepo:     NewInMemoryLateFeeStore(),
		ReminderRepo:    NewInMemoryReminderStore(),
	}
	s.publisher = NewInMemoryEventPublisher()
	s.registry = gateway.NewRegistry()
	s.locks = lock.NewKeyedMutex()
}

// ClearStores resets every store between tests
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.CustomerRepo.(*InMemoryCustomerStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.PaymentLinkRepo.(*InMemoryPaymentLinkStore).Clear()
	s.stores.LateFeeRepo.(*InMemoryLateFeeStore).Clear()
	s.stores.ReminderRepo.(*InMemoryReminderStore).Clear()
	s.publisher.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPublisher returns the capturing event publisher
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryEventPublisher {
	return s.publisher
}

// GetRegistry returns the gateway registry
func (s *BaseServiceTestSuite) GetRegistry() *gateway.Registry {
	return s.registry
}

// SetRegistry replaces the gateway registry, used to install fakes
func (s *BaseServiceTestSuite) SetRegistry(r *gateway.Registry) {
	s.registry = r
}

// GetLocks returns the keyed payment locks
func (s *BaseServiceTestSuite) GetLocks() *lock.KeyedMutex {
	return s.locks
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
