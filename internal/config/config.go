package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
	Plan     PlanConfig
	Payments PaymentsConfig
	Kafka    KafkaConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for hosted-Postgres posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

// GatewayConfig carries the mobile-money (Daraja) credentials and endpoints.
// When ConsumerKey/ConsumerSecret are empty the gateway runs in simulation
// mode and self-delivers synthetic callbacks.
type GatewayConfig struct {
	Environment    string // sandbox | production
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string

	// B2C payout credentials.
	InitiatorName      string
	SecurityCredential string

	CallbackBaseURL string

	// TokenExpiryMargin is subtracted from the provider-reported token TTL
	// before caching; tokens within the margin are treated as expired.
	TokenExpiryMargin time.Duration
	// TokenLockTTL bounds the cluster-wide token-refresh lock.
	TokenLockTTL time.Duration

	// SimulatorDelay is how long the simulator waits before self-delivering
	// a synthetic callback.
	SimulatorDelay time.Duration
}

// PlanConfig describes the fixed single-currency payment plan:
// one deposit followed by DailyCount daily payments.
type PlanConfig struct {
	DepositAmountMinor int64
	DailyAmountMinor   int64
	DailyCount         int

	// Premium split, in minor units. The remainder of each payment is the
	// service-fee component.
	Day1PremiumMinor  int64
	DailyPremiumMinor int64
}

type PaymentsConfig struct {
	// AmountToleranceMinor absorbs provider-side rounding on callback
	// amounts. Mismatches beyond it are treated as fraud signals.
	AmountToleranceMinor int64
	// RequestExpiry is how long a pushed payment may wait for a callback.
	RequestExpiry time.Duration
	// PollMaxAge / PollLimit bound the stale-request poller.
	PollMaxAge time.Duration
	PollLimit  int
}

type KafkaConfig struct {
	// Brokers is a comma-separated list; empty disables Kafka and the
	// policy notifier falls back to log-only delivery.
	Brokers []string
	Topic   string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = optDuration("JWT_ACCESS_TTL")

	c.Gateway.Environment = strings.TrimSpace(os.Getenv("GATEWAY_ENV"))
	c.Gateway.ConsumerKey = os.Getenv("GATEWAY_CONSUMER_KEY")
	c.Gateway.ConsumerSecret = os.Getenv("GATEWAY_CONSUMER_SECRET")
	c.Gateway.ShortCode = strings.TrimSpace(os.Getenv("GATEWAY_SHORTCODE"))
	c.Gateway.Passkey = os.Getenv("GATEWAY_PASSKEY")
	c.Gateway.InitiatorName = strings.TrimSpace(os.Getenv("GATEWAY_INITIATOR_NAME"))
	c.Gateway.SecurityCredential = os.Getenv("GATEWAY_SECURITY_CREDENTIAL")
	c.Gateway.CallbackBaseURL = strings.TrimSpace(os.Getenv("GATEWAY_CALLBACK_BASE_URL"))
	c.Gateway.TokenExpiryMargin = optDuration("GATEWAY_TOKEN_EXPIRY_MARGIN")
	c.Gateway.TokenLockTTL = optDuration("GATEWAY_TOKEN_LOCK_TTL")
	c.Gateway.SimulatorDelay = optDuration("GATEWAY_SIMULATOR_DELAY")

	c.Plan.DepositAmountMinor = optInt64("PLAN_DEPOSIT_AMOUNT_MINOR")
	c.Plan.DailyAmountMinor = optInt64("PLAN_DAILY_AMOUNT_MINOR")
	c.Plan.DailyCount = optInt("PLAN_DAILY_COUNT")
	c.Plan.Day1PremiumMinor = optInt64("PLAN_DAY1_PREMIUM_MINOR")
	c.Plan.DailyPremiumMinor = optInt64("PLAN_DAILY_PREMIUM_MINOR")

	c.Payments.AmountToleranceMinor = optInt64("PAYMENTS_AMOUNT_TOLERANCE_MINOR")
	c.Payments.RequestExpiry = optDuration("PAYMENTS_REQUEST_EXPIRY")
	c.Payments.PollMaxAge = optDuration("PAYMENTS_POLL_MAX_AGE")
	c.Payments.PollLimit = optInt("PAYMENTS_POLL_LIMIT")

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, b)
			}
		}
	}
	c.Kafka.Topic = strings.TrimSpace(os.Getenv("KAFKA_POLICY_TOPIC"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	if c.DB.SSLMode == "" && c.IsProduction() {
		errs = append(errs, errors.New("DB_SSLMODE is required in production"))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Gateway.Environment != "" && !isValidGatewayEnv(c.Gateway.Environment) {
		errs = append(errs, fmt.Errorf("GATEWAY_ENV must be sandbox or production, got %q", c.Gateway.Environment))
	}
	if c.IsProduction() {
		// Simulation mode is a non-production convenience.
		if c.Gateway.ConsumerKey == "" || c.Gateway.ConsumerSecret == "" {
			errs = append(errs, errors.New("GATEWAY_CONSUMER_KEY and GATEWAY_CONSUMER_SECRET are required in production"))
		}
		if c.Gateway.ShortCode == "" {
			errs = append(errs, errors.New("GATEWAY_SHORTCODE is required in production"))
		}
		if c.Gateway.Passkey == "" {
			errs = append(errs, errors.New("GATEWAY_PASSKEY is required in production"))
		}
		if c.Gateway.CallbackBaseURL == "" {
			errs = append(errs, errors.New("GATEWAY_CALLBACK_BASE_URL is required in production"))
		}
	}

	if c.Plan.DepositAmountMinor < 0 || c.Plan.DailyAmountMinor < 0 || c.Plan.DailyCount < 0 {
		errs = append(errs, errors.New("plan amounts and day count must not be negative"))
	}
	if c.Plan.DepositAmountMinor > 0 && c.Plan.Day1PremiumMinor > c.Plan.DepositAmountMinor {
		errs = append(errs, errors.New("PLAN_DAY1_PREMIUM_MINOR must not exceed the deposit amount"))
	}
	if c.Plan.DailyAmountMinor > 0 && c.Plan.DailyPremiumMinor > c.Plan.DailyAmountMinor {
		errs = append(errs, errors.New("PLAN_DAILY_PREMIUM_MINOR must not exceed the daily amount"))
	}

	if c.Payments.AmountToleranceMinor < 0 {
		errs = append(errs, errors.New("PAYMENTS_AMOUNT_TOLERANCE_MINOR must not be negative"))
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_POLICY_TOPIC is required when KAFKA_BROKERS is set"))
	}

	return joinErrors(errs)
}

// applyDefaults fills optional values once validation has passed.
func (c *Config) applyDefaults() {
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Gateway.Environment == "" {
		c.Gateway.Environment = "sandbox"
	}
	if c.Gateway.TokenExpiryMargin <= 0 {
		c.Gateway.TokenExpiryMargin = 5 * time.Minute
	}
	if c.Gateway.TokenLockTTL <= 0 {
		c.Gateway.TokenLockTTL = 15 * time.Second
	}
	if c.Gateway.SimulatorDelay <= 0 {
		c.Gateway.SimulatorDelay = 5 * time.Second
	}
	if c.Plan.DepositAmountMinor <= 0 {
		c.Plan.DepositAmountMinor = 104800 // 1,048 KES
	}
	if c.Plan.DailyAmountMinor <= 0 {
		c.Plan.DailyAmountMinor = 8700 // 87 KES
	}
	if c.Plan.DailyCount <= 0 {
		c.Plan.DailyCount = 30
	}
	if c.Plan.Day1PremiumMinor <= 0 {
		c.Plan.Day1PremiumMinor = 15000
	}
	if c.Plan.DailyPremiumMinor <= 0 {
		c.Plan.DailyPremiumMinor = 7000
	}
	if c.Payments.AmountToleranceMinor <= 0 {
		c.Payments.AmountToleranceMinor = 100 // 1 KES rounding margin
	}
	if c.Payments.RequestExpiry <= 0 {
		c.Payments.RequestExpiry = 3 * time.Minute
	}
	if c.Payments.PollMaxAge <= 0 {
		c.Payments.PollMaxAge = 5 * time.Minute
	}
	if c.Payments.PollLimit <= 0 {
		c.Payments.PollLimit = 50
	}
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// GatewaySimulated reports whether the gateway should run in simulation mode.
func (c Config) GatewaySimulated() bool {
	return c.Gateway.ConsumerKey == "" || c.Gateway.ConsumerSecret == ""
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func optInt64(key string) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidGatewayEnv(v string) bool {
	switch v {
	case "sandbox", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
