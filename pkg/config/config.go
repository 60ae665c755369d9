package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	// EnvPrefix scopes every environment variable the service reads.
	EnvPrefix = "SEAMLINE"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Checkout CheckoutConfig
	Payout   PayoutConfig
	Outbox   OutboxConfig
	Eventing EventingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Payout.TailorRate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SEAMLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"SEAMLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SEAMLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SEAMLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SEAMLINE_DB_DSN"`
	Driver string `envconfig:"SEAMLINE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SEAMLINE_DB_HOST"`
	Port     int    `envconfig:"SEAMLINE_DB_PORT" default:"5432"`
	User     string `envconfig:"SEAMLINE_DB_USER"`
	Password string `envconfig:"SEAMLINE_DB_PASSWORD"`
	Name     string `envconfig:"SEAMLINE_DB_NAME"`
	SSLMode  string `envconfig:"SEAMLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SEAMLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SEAMLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SEAMLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SEAMLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"SEAMLINE_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SEAMLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SEAMLINE_REDIS_ADDR"`
	Password     string        `envconfig:"SEAMLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SEAMLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SEAMLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SEAMLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SEAMLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SEAMLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SEAMLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SEAMLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SEAMLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SEAMLINE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type StripeConfig struct {
	APIKey        string        `envconfig:"SEAMLINE_STRIPE_API_KEY"`
	WebhookSecret string        `envconfig:"SEAMLINE_STRIPE_WEBHOOK_SECRET"`
	Env           string        `envconfig:"SEAMLINE_STRIPE_ENV" default:"test"`
	SuccessURL    string        `envconfig:"SEAMLINE_STRIPE_SUCCESS_URL" default:"https://seamline.app/orders/confirmed"`
	CancelURL     string        `envconfig:"SEAMLINE_STRIPE_CANCEL_URL" default:"https://seamline.app/orders/payment-failed"`
	CallTimeout   time.Duration `envconfig:"SEAMLINE_STRIPE_CALL_TIMEOUT" default:"15s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	DeliveryFeeCents int           `envconfig:"SEAMLINE_CHECKOUT_DELIVERY_FEE_CENTS" default:"700"`
	Currency         string        `envconfig:"SEAMLINE_CHECKOUT_CURRENCY" default:"GBP"`
	SessionTTL       time.Duration `envconfig:"SEAMLINE_CHECKOUT_SESSION_TTL" default:"30m"`
}

// PayoutConfig carries the platform-configured payout constants. The values
// are injected into the payout calculator at construction so tests can vary
// rates without process-wide state.
type PayoutConfig struct {
	TailorPayoutRate string `envconfig:"SEAMLINE_PAYOUT_TAILOR_RATE" default:"0.60"`
	RunnerFeeCents   int    `envconfig:"SEAMLINE_PAYOUT_RUNNER_FEE_CENTS" default:"500"`
}

// TailorRate parses the configured rate into a decimal fraction in [0, 1].
func (p PayoutConfig) TailorRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.TailorPayoutRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing tailor payout rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("tailor payout rate %s out of range", rate)
	}
	return rate, nil
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"SEAMLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"SEAMLINE_OUTBOX_PUBLISH_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"SEAMLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Workers      int           `envconfig:"SEAMLINE_OUTBOX_PUBLISH_WORKERS" default:"4"`
}

type EventingConfig struct {
	WebhookIdempotencyTTL time.Duration `envconfig:"SEAMLINE_EVENTING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"SEAMLINE_DB_HOST": db.Host,
		"SEAMLINE_DB_USER": db.User,
		"SEAMLINE_DB_NAME": db.Name,
	}
	for _, key := range []string{"SEAMLINE_DB_HOST", "SEAMLINE_DB_USER", "SEAMLINE_DB_NAME"} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either SEAMLINE_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
