package main

import (
	"context"
	"time"

	"github.com/finvoice/finvoice/internal/api"
	"github.com/finvoice/finvoice/internal/api/cron"
	v1 "github.com/finvoice/finvoice/internal/api/v1"
	"github.com/finvoice/finvoice/internal/config"
	"github.com/finvoice/finvoice/internal/domain/customer"
	"github.com/finvoice/finvoice/internal/domain/invoice"
	"github.com/finvoice/finvoice/internal/domain/latefee"
	"github.com/finvoice/finvoice/internal/domain/paymentlink"
	"github.com/finvoice/finvoice/internal/domain/reminder"
	"github.com/finvoice/finvoice/internal/gateway"
	"github.com/finvoice/finvoice/internal/gateway/payu"
	"github.com/finvoice/finvoice/internal/gateway/razorpay"
	"github.com/finvoice/finvoice/internal/gateway/stripe"
	"github.com/finvoice/finvoice/internal/httpclient"
	"github.com/finvoice/finvoice/internal/lock"
	"github.com/finvoice/finvoice/internal/logger"
	"github.com/finvoice/finvoice/internal/notification"
	"github.com/finvoice/finvoice/internal/pubsub"
	pubsubmemory "github.com/finvoice/finvoice/internal/pubsub/memory"
	"github.com/finvoice/finvoice/internal/publisher"
	"github.com/finvoice/finvoice/internal/service"
	"github.com/finvoice/finvoice/internal/testutil"
	"github.com/finvoice/finvoice/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// Missing .env is fine, config falls back to defaults and env vars
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			provideLogger,

			provideStores,
			provideCustomerRepo,
			provideInvoiceRepo,
			providePaymentLinkRepo,
			provideLateFeeRepo,
			provideReminderRepo,

			providePubSub,
			provideEventPublisher,
			provideHTTPClient,
			provideGatewayRegistry,
			lock.NewKeyedMutex,

			provideServiceParams,
			service.NewFraudService,
			service.NewCustomerService,
			service.NewInvoiceService,
			service.NewPaymentService,
			service.NewSchedulerService,

			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startServer,
			startNotificationConsumer,
			startScheduler,
		),
	)

	app.Run()
}

func provideLogger(cfg *config.Configuration) (*logger.Logger, error) {
	return logger.NewLoggerWithLevel(cfg.Logging.Level)
}

func provideStores() testutil.Stores {
	return testutil.Stores{
		CustomerRepo:    testutil.NewInMemoryCustomerStore(),
		InvoiceRepo:     testutil.NewInMemoryInvoiceStore(),
		PaymentLinkRepo: testutil.NewInMemoryPaymentLinkStore(),
		LateFeeRepo:     testutil.NewInMemoryLateFeeStore(),
		ReminderRepo:    testutil.NewInMemoryReminderStore(),
	}
}

func provideCustomerRepo(stores testutil.Stores) customer.Repository {
	return stores.CustomerRepo
}

func provideInvoiceRepo(stores testutil.Stores) invoice.Repository {
	return stores.InvoiceRepo
}

func providePaymentLinkRepo(stores testutil.Stores) paymentlink.Repository {
	return stores.PaymentLinkRepo
}

func provideLateFeeRepo(stores testutil.Stores) latefee.Repository {
	return stores.LateFeeRepo
}

func provideReminderRepo(stores testutil.Stores) reminder.Repository {
	return stores.ReminderRepo
}

func providePubSub(log *logger.Logger) pubsub.PubSub {
	return pubsubmemory.NewPubSub(log)
}

func provideEventPublisher(ps pubsub.PubSub, log *logger.Logger) publisher.EventPublisher {
	return publisher.NewEventPublisher(ps, log)
}

func provideHTTPClient(cfg *config.Configuration) httpclient.Client {
	return httpclient.NewRetryableClient(cfg.Gateways.Timeout)
}

// provideGatewayRegistry registers every provider with credentials present.
// Running with no gateways is valid; link creation then reports the provider
// as unknown.
func provideGatewayRegistry(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) *gateway.Registry {
	var gateways []gateway.Gateway

	timeout := cfg.Gateways.Timeout
	if cfg.Gateways.Stripe.Enabled() {
		gateways = append(gateways, stripe.NewAdapter(cfg.Gateways.Stripe, timeout, log))
	}
	if cfg.Gateways.Razorpay.Enabled() {
		gateways = append(gateways, razorpay.NewAdapter(cfg.Gateways.Razorpay, timeout, log))
	}
	if cfg.Gateways.PayU.Enabled() {
		gateways = append(gateways, payu.NewAdapter(cfg.Gateways.PayU, client, timeout, log))
	}

	registry := gateway.NewRegistry(gateways...)
	log.Infow("payment gateways registered", "gateways", registry.Names())
	return registry
}

func provideServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	customerRepo customer.Repository,
	invoiceRepo invoice.Repository,
	paymentLinkRepo paymentlink.Repository,
	lateFeeRepo latefee.Repository,
	reminderRepo reminder.Repository,
	registry *gateway.Registry,
	eventPublisher publisher.EventPublisher,
	locks *lock.KeyedMutex,
	client httpclient.Client,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:          log,
		Config:          cfg,
		CustomerRepo:    customerRepo,
		InvoiceRepo:     invoiceRepo,
		PaymentLinkRepo: paymentLinkRepo,
		LateFeeRepo:     lateFeeRepo,
		ReminderRepo:    reminderRepo,
		GatewayRegistry: registry,
		EventPublisher:  eventPublisher,
		PaymentLocks:    locks,
		Client:          client,
	}
}

func provideHandlers(
	log *logger.Logger,
	customerService service.CustomerService,
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
	schedulerService service.SchedulerService,
) api.Handlers {
	return api.Handlers{
		Invoice:       v1.NewInvoiceHandler(invoiceService, log),
		Customer:      v1.NewCustomerHandler(customerService, log),
		Payment:       v1.NewPaymentHandler(paymentService, log),
		Scheduler:     v1.NewSchedulerHandler(schedulerService, log),
		CronScheduler: cron.NewSchedulerHandler(schedulerService, log),
	}
}

func provideRouter(cfg *config.Configuration, handlers api.Handlers) *gin.Engine {
	return api.NewRouter(cfg, handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startNotificationConsumer(
	lc fx.Lifecycle,
	ps pubsub.PubSub,
	log *logger.Logger,
) {
	consumer := notification.NewConsumer(ps, notification.NewLogSender(log), log)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return consumer.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			consumer.Stop()
			return ps.Close()
		},
	})
}

// startScheduler drives the reminder and late fee sweeps on a ticker. The
// cron endpoints keep working when the ticker is disabled.
func startScheduler(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	schedulerService service.SchedulerService,
	log *logger.Logger,
) {
	if !cfg.Scheduler.Enabled {
		log.Info("Background scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(cfg.Scheduler.Interval)
				defer ticker.Stop()

				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := schedulerService.Run(ctx); err != nil {
							log.Errorw("scheduler sweep failed", "error", err)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
