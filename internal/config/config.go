package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Configuration struct {
	Server    ServerConfig    `validate:"required"`
	Logging   LoggingConfig   `validate:"required"`
	Seller    SellerConfig    `validate:"required"`
	Gateways  GatewaysConfig  `mapstructure:"gateways"`
	Fraud     FraudConfig     `mapstructure:"fraud"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Address       string `validate:"required"`
	AllowedOrigin string `mapstructure:"allowed_origin"`
}

type LoggingConfig struct {
	Level string `validate:"required"`
}

// SellerConfig identifies the invoicing business itself. The GST state code
// decides intra-state versus inter-state tax splits against the buyer's state.
type SellerConfig struct {
	Name      string `validate:"required"`
	GSTIN     string
	StateCode string `mapstructure:"state_code" validate:"required"`
	Currency  string `validate:"required"`
}

// GatewaysConfig holds per-provider credentials. A provider with empty
// credentials is simply not registered; it is not a startup failure.
type GatewaysConfig struct {
	Timeout  time.Duration  `mapstructure:"timeout"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Razorpay RazorpayConfig `mapstructure:"razorpay"`
	PayU     PayUConfig     `mapstructure:"payu"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	SuccessURL    string `mapstructure:"success_url"`
	CancelURL     string `mapstructure:"cancel_url"`
}

func (c StripeConfig) Enabled() bool {
	return c.SecretKey != ""
}

type RazorpayConfig struct {
	KeyID         string `mapstructure:"key_id"`
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

func (c RazorpayConfig) Enabled() bool {
	return c.KeyID != "" && c.SecretKey != ""
}

type PayUConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	MerchantKey    string `mapstructure:"merchant_key"`
	MerchantSecret string `mapstructure:"merchant_secret"`
}

func (c PayUConfig) Enabled() bool {
	return c.MerchantKey != "" && c.MerchantSecret != ""
}

// FraudConfig tunes the scored heuristics run before payment link creation
type FraudConfig struct {
	HighAmountThreshold float64       `mapstructure:"high_amount_threshold"`
	VelocityLimit       int           `mapstructure:"velocity_limit"`
	VelocityWindow      time.Duration `mapstructure:"velocity_window"`
}

// HighAmountThresholdDecimal returns the threshold as a decimal for money math
func (c FraudConfig) HighAmountThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.HighAmountThreshold)
}

type SchedulerConfig struct {
	// Enabled controls the background ticker; manual cron endpoints work
	// regardless.
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/finvoice")

	v.SetEnvPrefix("FINVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("seller.name", "finvoice")
	v.SetDefault("seller.state_code", "29")
	v.SetDefault("seller.currency", "INR")
	v.SetDefault("gateways.timeout", 30*time.Second)
	v.SetDefault("fraud.high_amount_threshold", 100000.0)
	v.SetDefault("fraud.velocity_limit", 5)
	v.SetDefault("fraud.velocity_window", 24*time.Hour)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Hour)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:  ServerConfig{Address: ":8080"},
		Logging: LoggingConfig{Level: "debug"},
		Seller: SellerConfig{
			Name:      "finvoice",
			StateCode: "29",
			Currency:  "INR",
		},
		Gateways: GatewaysConfig{Timeout: 30 * time.Second},
		Fraud: FraudConfig{
			HighAmountThreshold: 100000,
			VelocityLimit:       5,
			VelocityWindow:      24 * time.Hour,
		},
		Scheduler: SchedulerConfig{Enabled: false, Interval: time.Hour},
	}
}
