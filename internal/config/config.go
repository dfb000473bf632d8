package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/loopcrm/billing/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Audit      AuditConfig
	Cache      CacheConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the postgres connection string
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

// BillingConfig holds the policy knobs of the entitlement engine
type BillingConfig struct {
	// TrialPeriodDays is the length of the free trial started at signup
	TrialPeriodDays int `mapstructure:"trial_period_days" validate:"gte=0"`
	// GracePeriodDays is the window after trial expiry during which feature
	// access is still granted despite the nominal past_due status
	GracePeriodDays int `mapstructure:"grace_period_days" validate:"gte=0"`
	// AllowSelfVerify permits the lower-trust record-and-activate shortcut
	// where the collector also verifies the payment
	AllowSelfVerify bool `mapstructure:"allow_self_verify"`
	// EntitlementTimeoutMS bounds the enhanced entitlement path before it
	// falls back to the plan-only decision
	EntitlementTimeoutMS int `mapstructure:"entitlement_timeout_ms" validate:"gte=0"`
}

type AuditConfig struct {
	Topic string `mapstructure:"topic"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/loopcrm")

	v.SetEnvPrefix("LOOPCRM")
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
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "loopcrm")
	v.SetDefault("postgres.dbname", "loopcrm")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("billing.trial_period_days", 14)
	v.SetDefault("billing.grace_period_days", 5)
	v.SetDefault("billing.allow_self_verify", true)
	v.SetDefault("billing.entitlement_timeout_ms", 500)
	v.SetDefault("audit.topic", "billing.audit")
	v.SetDefault("cache.enabled", true)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development and
// tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Billing: BillingConfig{
			TrialPeriodDays:      14,
			GracePeriodDays:      5,
			AllowSelfVerify:      true,
			EntitlementTimeoutMS: 500,
		},
		Audit: AuditConfig{Topic: "billing.audit"},
		Cache: CacheConfig{Enabled: true},
	}
}
